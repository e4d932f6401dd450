package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/contactrack/contactrack/internal/contacts"
	"github.com/contactrack/contactrack/internal/drive"
)

// fakeDrive is an in-memory DriveAPI that records calls.
type fakeDrive struct {
	mu sync.Mutex

	// canned data
	files        map[string][]drive.File // query -> listing
	downloads    map[string][]byte       // fileID -> body
	createdID    string
	uploadedFile *drive.File

	// injected failures
	listErr     error
	createErr   error
	uploadErr   error
	downloadErr error

	// recorded calls
	listQueries   []string
	createCalls   int
	uploadNames   []string
	uploadParents []string
	uploadBodies  [][]byte
	downloadIDs   []string
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		files:     map[string][]drive.File{},
		downloads: map[string][]byte{},
		createdID: "created-folder",
	}
}

func (f *fakeDrive) ListFiles(_ context.Context, query string) ([]drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listQueries = append(f.listQueries, query)
	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.files[query], nil
}

func (f *fakeDrive) CreateFolder(_ context.Context, name string) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}

	return &drive.File{ID: f.createdID, Name: name, MimeType: drive.FolderMimeType}, nil
}

func (f *fakeDrive) UploadMultipart(
	_ context.Context, name, parentID, _, _ string, content []byte,
) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploadNames = append(f.uploadNames, name)
	f.uploadParents = append(f.uploadParents, parentID)
	f.uploadBodies = append(f.uploadBodies, content)

	if f.uploadErr != nil {
		return nil, f.uploadErr
	}

	if f.uploadedFile != nil {
		return f.uploadedFile, nil
	}

	return &drive.File{ID: "uploaded", Name: name, Size: int64(len(content))}, nil
}

func (f *fakeDrive) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.downloadIDs = append(f.downloadIDs, fileID)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}

	body, ok := f.downloads[fileID]
	if !ok {
		return nil, fmt.Errorf("no such file %s", fileID)
	}

	return body, nil
}

// folderQuery is the listing query GetOrCreate issues.
func folderQuery() string {
	return fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", FolderName, drive.FolderMimeType)
}

// fakeSession is a SessionAPI whose state tests control directly.
type fakeSession struct {
	api        DriveAPI
	signedIn   bool
	signInOK   bool
	signInDone int
}

func (s *fakeSession) SignIn(_ context.Context) bool {
	s.signInDone++
	if s.signInOK {
		s.signedIn = true
	}

	return s.signInOK
}

func (s *fakeSession) SignedIn() bool { return s.signedIn }
func (s *fakeSession) API() DriveAPI  { return s.api }

// fakeStore is an in-memory LocalStore.
type fakeStore struct {
	people  []contacts.Person
	loadErr error
	saveErr error
	saves   int
}

func (s *fakeStore) Load(_ context.Context) ([]contacts.Person, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	return s.people, nil
}

func (s *fakeStore) Save(_ context.Context, people []contacts.Person) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}

	s.people = people

	return nil
}

// fakeRepo is a RepositoryAPI for coordinator tests.
type fakeRepo struct {
	backups  []Descriptor
	listErr  error
	payloads map[string][]contacts.Person
	dlErr    error

	uploads  [][]contacts.Person
	restores []string

	uploadOutcome  Outcome
	restoreOutcome Outcome
}

func (r *fakeRepo) ListBackups(_ context.Context) ([]Descriptor, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}

	return r.backups, nil
}

func (r *fakeRepo) UploadBackup(_ context.Context, people []contacts.Person) Outcome {
	r.uploads = append(r.uploads, people)
	return r.uploadOutcome
}

func (r *fakeRepo) DownloadBackup(_ context.Context, id string) ([]contacts.Person, error) {
	if r.dlErr != nil {
		return nil, r.dlErr
	}

	return r.payloads[id], nil
}

func (r *fakeRepo) RestoreFromBackup(_ context.Context, id string) Outcome {
	r.restores = append(r.restores, id)
	return r.restoreOutcome
}

// person builds a contact with a pinned UpdatedAt for timestamp tests.
func person(name string, updatedAt time.Time) contacts.Person {
	p := contacts.New(name, "", "friend")
	p.UpdatedAt = updatedAt

	return p
}
