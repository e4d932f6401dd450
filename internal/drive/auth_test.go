package drive

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/contactrack/contactrack/internal/tokenfile"
)

func TestCredentials_Valid(t *testing.T) {
	assert.True(t, Credentials{ClientID: "id", ClientSecret: "secret"}.Valid())
	assert.False(t, Credentials{ClientID: "id"}.Valid())
	assert.False(t, Credentials{ClientSecret: "secret"}.Valid())
	assert.False(t, Credentials{}.Valid())
}

func TestTokenSourceFromPath_NoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	_, err := TokenSourceFromPath(context.Background(), Credentials{ClientID: "id", ClientSecret: "s"}, path, slog.Default())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestTokenSourceFromPath_SavedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{
		AccessToken:  "saved-access",
		RefreshToken: "saved-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
	require.NoError(t, tokenfile.Save(path, tok, ""))

	ts, err := TokenSourceFromPath(context.Background(), Credentials{ClientID: "id", ClientSecret: "s"}, path, slog.Default())
	require.NoError(t, err)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "saved-access", got)
}

// fakeTokenSource counts calls and hands out a fixed token.
type fakeTokenSource struct {
	tok   *oauth2.Token
	calls int
}

func (f *fakeTokenSource) Token() (*oauth2.Token, error) {
	f.calls++
	return f.tok, nil
}

func TestPersistingSource_SavesOnRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	initial := &oauth2.Token{AccessToken: "old", RefreshToken: "r1"}
	require.NoError(t, tokenfile.Save(path, initial, ""))

	refreshed := &oauth2.Token{AccessToken: "new", RefreshToken: "r2", Expiry: time.Now().Add(time.Hour)}
	src := &fakeTokenSource{tok: refreshed}

	ps := newPersistingSource(src, initial, path, slog.Default())

	got, err := ps.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	onDisk, _, err := tokenfile.Load(path)
	require.NoError(t, err)
	require.NotNil(t, onDisk)
	assert.Equal(t, "new", onDisk.AccessToken)
	assert.Equal(t, "r2", onDisk.RefreshToken)
}

func TestPersistingSource_NoRewriteWhenUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	tok := &oauth2.Token{AccessToken: "same", RefreshToken: "r1"}
	src := &fakeTokenSource{tok: tok}

	ps := newPersistingSource(src, tok, path, slog.Default())

	got, err := ps.Token()
	require.NoError(t, err)
	assert.Equal(t, "same", got)

	// The token never changed, so nothing was written to disk.
	onDisk, _, err := tokenfile.Load(path)
	require.NoError(t, err)
	assert.Nil(t, onDisk)
}

func TestRevoke(t *testing.T) {
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotToken = r.PostFormValue("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Point the client at the test server by rewriting the request URL.
	client := srv.Client()
	client.Transport = rewriteHost(srv.URL, client.Transport)

	err := Revoke(context.Background(), client, "the-token", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "the-token", gotToken)
}

func TestRevoke_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := srv.Client()
	client.Transport = rewriteHost(srv.URL, client.Transport)

	err := Revoke(context.Background(), client, "bad", slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestLogout_MissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	assert.NoError(t, Logout(path, slog.Default()))
}

func TestOAuthConfig_Scope(t *testing.T) {
	cfg := oauthConfig(Credentials{ClientID: "id", ClientSecret: "s"})

	require.Len(t, cfg.Scopes, 1)
	assert.Equal(t, driveFileScope, cfg.Scopes[0])
}

// rewriteHost redirects every request to the test server regardless of the
// target host, so code with hardcoded endpoints can be exercised.
type rewriteHostTransport struct {
	target string
	next   http.RoundTripper
}

func rewriteHost(target string, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return &rewriteHostTransport{target: target, next: next}
}

func (t *rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = t.target[len("http://"):]

	return t.next.RoundTrip(clone)
}
