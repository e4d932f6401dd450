package backup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/contactrack/contactrack/internal/drive"
	"github.com/contactrack/contactrack/internal/tokenfile"
)

// DriveAPI is the slice of the Drive client the engine uses. Defined here,
// at the consumer, so tests can substitute a fake; *drive.Client satisfies it.
type DriveAPI interface {
	ListFiles(ctx context.Context, query string) ([]drive.File, error)
	CreateFolder(ctx context.Context, name string) (*drive.File, error)
	UploadMultipart(ctx context.Context, name, parentID, description, contentType string, content []byte) (*drive.File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// LoginFunc runs the interactive consent flow and returns a token source.
// It resolves exactly once: with a token source, or with an error when the
// flow fails or ctx expires. A dismissed consent screen never completes on
// its own, so callers bound the wait through ctx.
type LoginFunc func(ctx context.Context, creds drive.Credentials, tokenPath string) (drive.TokenSource, error)

// Session owns the authentication lifecycle: credential loading, sign-in,
// sign-out, and the Drive client bound to the current token. It is an
// explicit object owned by the application shell — one per process, passed
// into the coordinator, never a package-level singleton.
//
// Session is not safe for concurrent use; the engine runs as a single
// logical actor (scheduler and CLI serialize their calls).
type Session struct {
	creds      drive.Credentials
	tokenPath  string
	httpClient *http.Client
	login      LoginFunc
	logger     *slog.Logger

	// newAPI builds the Drive client once a token source exists.
	// Tests override it to observe requests without real HTTP.
	newAPI func(ts drive.TokenSource) DriveAPI

	initialized bool
	signedIn    bool
	ts          drive.TokenSource
	api         DriveAPI
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	Credentials drive.Credentials
	TokenPath   string
	HTTPClient  *http.Client // nil means http.DefaultClient
	Login       LoginFunc    // nil disables interactive sign-in
	Logger      *slog.Logger
}

// NewSession creates an unauthenticated session.
func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	s := &Session{
		creds:      opts.Credentials,
		tokenPath:  opts.TokenPath,
		httpClient: httpClient,
		login:      opts.Login,
		logger:     logger,
	}

	s.newAPI = func(ts drive.TokenSource) DriveAPI {
		return drive.NewClient(drive.DefaultBaseURL, drive.DefaultUploadURL, httpClient, ts, logger)
	}

	return s
}

// Initialize verifies that API credentials are present. Returns false when
// they are missing — never an error. Idempotent: a second call when
// already initialized returns true immediately.
func (s *Session) Initialize() bool {
	if s.initialized {
		return true
	}

	if !s.creds.Valid() {
		s.logger.Error("google api credentials not configured")
		return false
	}

	s.initialized = true

	return true
}

// SignIn establishes an authenticated session. It initializes first
// (failing fast if credentials are absent), reuses a saved token when one
// exists, and otherwise runs the interactive consent flow. Returns true
// only when a token was actually obtained.
//
// I/O failures are logged and reported as false; no error escapes.
func (s *Session) SignIn(ctx context.Context) bool {
	if s.signedIn {
		return true
	}

	if !s.Initialize() {
		return false
	}

	ts, err := drive.TokenSourceFromPath(ctx, s.creds, s.tokenPath, s.logger)

	switch {
	case err == nil:
		// Saved token found.
	case s.login != nil:
		ts, err = s.login(ctx, s.creds, s.tokenPath)
		if err != nil {
			s.logger.Error("interactive sign-in failed", slog.String("error", err.Error()))
			return false
		}
	default:
		s.logger.Warn("sign-in unavailable", slog.String("error", err.Error()))
		return false
	}

	s.ts = ts
	s.api = s.newAPI(ts)
	s.signedIn = true

	s.logger.Info("signed in to google drive")

	return true
}

// SignOut revokes the current token if present and always clears the local
// authenticated state, even when revocation fails. Best-effort cleanup —
// never returns an error.
func (s *Session) SignOut(ctx context.Context) {
	if s.ts != nil {
		if tok, err := s.ts.Token(); err == nil {
			if revErr := drive.Revoke(ctx, s.httpClient, tok, s.logger); revErr != nil {
				s.logger.Warn("token revocation failed",
					slog.String("error", revErr.Error()))
			}
		}
	}

	if err := tokenfile.Remove(s.tokenPath); err != nil {
		s.logger.Warn("removing token file failed", slog.String("error", err.Error()))
	}

	s.ts = nil
	s.api = nil
	s.signedIn = false

	s.logger.Info("signed out")
}

// SignedIn reports the current sign-in state. Pure read — never performs I/O.
func (s *Session) SignedIn() bool {
	return s.signedIn
}

// API returns the Drive client for the current session, or nil when not
// signed in.
func (s *Session) API() DriveAPI {
	return s.api
}
