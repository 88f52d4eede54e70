package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/bandavail/internal/apperr"
)

// FileTokenStore keeps one OAuth token as JSON on disk.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore returns a store backed by path. An empty path selects
// DefaultTokenPath.
func NewFileTokenStore(path string) *FileTokenStore {
	if path == "" {
		path = DefaultTokenPath()
	}
	return &FileTokenStore{path: path}
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Exists reports whether a token file is present.
func (s *FileTokenStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the stored token. A missing file is reported as
// apperr.KindNotAuthenticated.
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.Wrap(apperr.KindNotAuthenticated, err, "no stored Google token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", s.path, err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, apperr.New(apperr.KindNotAuthenticated, "stored Google token is empty")
	}
	return &token, nil
}

// Save writes token with mode 0600, creating the directory if needed.
func (s *FileTokenStore) Save(token *oauth2.Token) error {
	if token == nil {
		return errors.New("token is nil")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the token file. Deleting a missing file is not an error.
func (s *FileTokenStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// TokenSource returns a refreshing token source for the stored token.
// Refreshed tokens are written back to the store.
func (s *FileTokenStore) TokenSource(ctx context.Context, conf *oauth2.Config) (oauth2.TokenSource, error) {
	token, err := s.Load()
	if err != nil {
		return nil, err
	}
	return &savingTokenSource{
		base:  conf.TokenSource(ctx, token),
		store: s,
		last:  token.AccessToken,
	}, nil
}

// savingTokenSource persists a token whenever its access token changes.
type savingTokenSource struct {
	base  oauth2.TokenSource
	store *FileTokenStore

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotAuthenticated, err, "stored Google token is no longer valid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		if err := s.store.Save(token); err != nil {
			return nil, err
		}
		s.last = token.AccessToken
	}
	return token, nil
}
