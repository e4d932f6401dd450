package drive

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// listPageSize is the pageSize value for ListFiles requests.
const listPageSize = 100

// listFields restricts list responses to the metadata the engine needs.
const listFields = "nextPageToken,files(id,name,mimeType,modifiedTime,size)"

// ListFiles returns all files matching the given Drive query expression,
// handling pagination automatically. The server-side order is not relied
// upon — callers that need an ordering sort client-side.
func (c *Client) ListFiles(ctx context.Context, query string) ([]File, error) {
	c.logger.Info("listing files", slog.String("query", query))

	params := url.Values{}
	params.Set("q", query)
	params.Set("spaces", "drive")
	params.Set("fields", listFields)
	params.Set("pageSize", fmt.Sprint(listPageSize))

	var files []File

	page := 1

	for {
		resp, err := c.Do(ctx, http.MethodGet, "/files?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var flr fileListResponse
		decErr := json.NewDecoder(resp.Body).Decode(&flr)
		resp.Body.Close()

		if decErr != nil {
			return nil, fmt.Errorf("drive: decoding file list response: %w", decErr)
		}

		for i := range flr.Files {
			files = append(files, flr.Files[i].toFile(c.logger))
		}

		c.logger.Debug("fetched file list page",
			slog.Int("page", page),
			slog.Int("count", len(flr.Files)),
		)

		if flr.NextPageToken == "" {
			break
		}

		params.Set("pageToken", flr.NextPageToken)
		page++
	}

	c.logger.Info("listed files complete", slog.Int("total_files", len(files)))

	return files, nil
}

// CreateFolder creates a Drive folder with the given name at the drive root.
func (c *Client) CreateFolder(ctx context.Context, name string) (*File, error) {
	c.logger.Info("creating folder", slog.String("name", name))

	reqBody := createFileRequest{
		Name:     name,
		MimeType: FolderMimeType,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("drive: marshaling create folder request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/files", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fr fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("drive: decoding create folder response: %w", err)
	}

	file := fr.toFile(c.logger)

	return &file, nil
}

// UploadMultipart creates a file via a single multipart/related request:
// a JSON metadata part followed by a base64-encoded content part. This is
// the Drive "multipart upload" type, suitable for small payloads.
func (c *Client) UploadMultipart(
	ctx context.Context, name, parentID, description, contentType string, content []byte,
) (*File, error) {
	c.logger.Info("multipart upload",
		slog.String("name", name),
		slog.String("parent_id", parentID),
		slog.Int("size", len(content)),
	)

	meta := createFileRequest{
		Name:        name,
		Parents:     []string{parentID},
		Description: description,
	}

	body, boundary, err := buildMultipartBody(meta, contentType, content)
	if err != nil {
		return nil, err
	}

	resp, err := c.DoUpload(ctx, http.MethodPost, "/files?uploadType=multipart",
		`multipart/related; boundary="`+boundary+`"`, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fr fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("drive: decoding upload response: %w", err)
	}

	file := fr.toFile(c.logger)

	return &file, nil
}

// buildMultipartBody assembles the boundary-delimited request body for a
// multipart upload. The content part is base64-encoded with an explicit
// Content-Transfer-Encoding header, matching the wire format Drive accepts
// for binary-safe JSON bodies.
func buildMultipartBody(meta createFileRequest, contentType string, content []byte) ([]byte, string, error) {
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("drive: marshaling upload metadata: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")

	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", fmt.Errorf("drive: creating metadata part: %w", err)
	}

	if _, err := metaPart.Write(metaBytes); err != nil {
		return nil, "", fmt.Errorf("drive: writing metadata part: %w", err)
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Type", contentType)
	contentHeader.Set("Content-Transfer-Encoding", "base64")

	contentPart, err := w.CreatePart(contentHeader)
	if err != nil {
		return nil, "", fmt.Errorf("drive: creating content part: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(content)
	if _, err := contentPart.Write([]byte(encoded)); err != nil {
		return nil, "", fmt.Errorf("drive: writing content part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("drive: closing multipart body: %w", err)
	}

	return buf.Bytes(), w.Boundary(), nil
}

// Download fetches the raw content of a file by ID using media retrieval
// and returns the body bytes.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	c.logger.Info("downloading file", slog.String("file_id", fileID))

	path := fmt.Sprintf("/files/%s?alt=media", url.PathEscape(fileID))

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: reading download body: %w", err)
	}

	c.logger.Debug("download complete",
		slog.String("file_id", fileID),
		slog.Int("bytes", len(data)),
	)

	return data, nil
}

// About returns the display name and email address of the authenticated user.
func (c *Client) About(ctx context.Context) (displayName, email string, err error) {
	resp, err := c.Do(ctx, http.MethodGet, "/about?fields=user(displayName,emailAddress)", nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var ar aboutResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", "", fmt.Errorf("drive: decoding about response: %w", err)
	}

	return ar.User.DisplayName, ar.User.EmailAddress, nil
}
