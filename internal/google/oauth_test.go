package google

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/bandavail/internal/apperr"
)

const webClientJSON = `{
  "web": {
    "client_id": "client-id.apps.googleusercontent.com",
    "client_secret": "secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost:5001/oauth2callback"]
  }
}`

func TestConfigFromJSON(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		redirectURL  string
		wantRedirect string
		wantErr      bool
	}{
		{
			name:         "uses document redirect",
			data:         webClientJSON,
			wantRedirect: "http://localhost:5001/oauth2callback",
		},
		{
			name:         "overrides redirect",
			data:         webClientJSON,
			redirectURL:  "https://band.example/oauth2callback",
			wantRedirect: "https://band.example/oauth2callback",
		},
		{
			name:    "invalid document",
			data:    `{"nope": {}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := ConfigFromJSON([]byte(tt.data), tt.redirectURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "client-id.apps.googleusercontent.com", conf.ClientID)
			assert.Equal(t, tt.wantRedirect, conf.RedirectURL)
			assert.Equal(t, DefaultOAuthScopes, conf.Scopes)
		})
	}
}

func TestNewHTTPClientForcesHTTP1(t *testing.T) {
	client := NewHTTPClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}))

	transport, ok := client.Transport.(*oauth2.Transport)
	require.True(t, ok)
	base, ok := transport.Base.(*http.Transport)
	require.True(t, ok)
	assert.False(t, base.ForceAttemptHTTP2)
}

func TestDefaultTokenPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CACHE_HOME is only honored on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "bandavail", "google.token"), DefaultTokenPath())
}

func TestFileTokenStore(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "google.token"))

	assert.False(t, store.Exists())
	_, err := store.Load()
	assert.True(t, apperr.Is(err, apperr.KindNotAuthenticated))

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(token))
	assert.True(t, store.Exists())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())
	assert.NoError(t, store.Delete(), "deleting twice is fine")
}

func TestFileTokenStoreRejectsEmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "google.token")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	_, err := NewFileTokenStore(path).Load()
	assert.True(t, apperr.Is(err, apperr.KindNotAuthenticated))
}

type sequenceSource struct {
	tokens []*oauth2.Token
	err    error
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	tok := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return tok, nil
}

func TestSavingTokenSourcePersistsRefresh(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "google.token"))
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "old", RefreshToken: "refresh"}))

	ts := &savingTokenSource{
		base: &sequenceSource{tokens: []*oauth2.Token{
			{AccessToken: "old", RefreshToken: "refresh"},
			{AccessToken: "new", RefreshToken: "refresh"},
		}},
		store: store,
		last:  "old",
	}

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "old", tok.AccessToken)

	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new", saved.AccessToken)
}

func TestSavingTokenSourceFailure(t *testing.T) {
	ts := &savingTokenSource{
		base:  &sequenceSource{err: errors.New("invalid_grant")},
		store: NewFileTokenStore(filepath.Join(t.TempDir(), "google.token")),
	}

	_, err := ts.Token()
	assert.True(t, apperr.Is(err, apperr.KindNotAuthenticated))
	assert.ErrorContains(t, err, "invalid_grant")
}

func TestFileTokenStoreTokenSourceWithoutToken(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "google.token"))
	_, err := store.TokenSource(context.Background(), &oauth2.Config{})
	assert.True(t, apperr.Is(err, apperr.KindNotAuthenticated))
}
