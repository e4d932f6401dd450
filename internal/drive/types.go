package drive

import (
	"log/slog"
	"strconv"
	"time"
)

// MIME type Drive uses to mark folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// File is the normalized metadata for a Drive file or folder.
type File struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time
	Size         int64
}

// IsFolder reports whether the file is a Drive folder.
func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// fileResponse mirrors the Drive API file resource JSON exactly.
// Unexported — callers use File via toFile() normalization.
// Size is a string in the Drive v3 wire format.
type fileResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
	Size         string `json:"size"`
}

type fileListResponse struct {
	Files         []fileResponse `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

type createFileRequest struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`

	// Description is free-form metadata shown in the Drive UI.
	Description string `json:"description,omitempty"`
}

type aboutResponse struct {
	User struct {
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	} `json:"user"`
}

// toFile normalizes a Drive API file resource into our File type.
func (r *fileResponse) toFile(logger *slog.Logger) File {
	f := File{
		ID:       r.ID,
		Name:     r.Name,
		MimeType: r.MimeType,
	}

	f.ModifiedTime = parseTimestamp(r.ModifiedTime, "modifiedTime", r.ID, logger)

	if r.Size != "" {
		size, err := strconv.ParseInt(r.Size, 10, 64)
		if err != nil {
			logger.Warn("invalid file size, using zero",
				slog.String("file_id", r.ID),
				slog.String("raw", r.Size),
			)
		} else {
			f.Size = size
		}
	}

	return f
}

// parseTimestamp parses an RFC3339 timestamp. Invalid or empty timestamps
// are replaced with time.Now().UTC() and logged — a missing modifiedTime
// must never make a backup look infinitely old or new.
func parseTimestamp(raw, field, fileID string, logger *slog.Logger) time.Time {
	if raw == "" {
		logger.Warn("empty timestamp, using current time",
			slog.String("field", field),
			slog.String("file_id", fileID),
		)

		return time.Now().UTC()
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, using current time",
			slog.String("field", field),
			slog.String("file_id", fileID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Now().UTC()
	}

	return t
}
