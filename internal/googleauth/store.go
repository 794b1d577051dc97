package googleauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
)

// ErrMissingTokens signals that no usable Google credential is held.
var ErrMissingTokens = errors.New("missing tokens; the one-time authorization flow must be completed")

// Store holds the process-wide Google token. Requests only read it; the
// OAuth callback is the single writer.
type Store struct {
	mu   sync.RWMutex
	path string
	tok  *oauth2.Token
}

// NewStore resolves the startup credential. The inline JSON secret wins;
// the token file applies only when the inline secret is absent. A missing
// file leaves the store empty until the consent flow fills it.
func NewStore(inlineJSON, path string) (*Store, error) {
	s := &Store{path: path}
	if inlineJSON != "" {
		tok, err := decodeToken([]byte(inlineJSON))
		if err != nil {
			return nil, fmt.Errorf("googleauth: parse inline token: %w", err)
		}
		s.tok = tok
		return s, nil
	}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("googleauth: read token file: %w", err)
	}
	tok, err := decodeToken(raw)
	if err != nil {
		return nil, fmt.Errorf("googleauth: parse token file %s: %w", path, err)
	}
	s.tok = tok
	return s, nil
}

// Token returns the held credential, or ErrMissingTokens when the store is
// empty or holds no refresh token. Callers must treat the result as
// read-only.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil || s.tok.RefreshToken == "" {
		return nil, ErrMissingTokens
	}
	return s.tok, nil
}

// Authorized reports whether a usable credential is held.
func (s *Store) Authorized() bool {
	_, err := s.Token()
	return err == nil
}

// Save refreshes the in-memory credential and persists it to the token
// file with mode 0600. The in-memory copy is updated even when the file
// write fails, so hosts without a writable disk stay authorized for the
// life of the process.
func (s *Store) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Google omits the refresh token on re-consent; keep the one we have.
	if tok.RefreshToken == "" && s.tok != nil {
		tok.RefreshToken = s.tok.RefreshToken
	}
	s.tok = tok
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("googleauth: encode token: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("googleauth: write token file %s: %w", s.path, err)
	}
	return nil
}

// Path returns the token file location, empty when file persistence is off.
func (s *Store) Path() string {
	return s.path
}

func decodeToken(raw []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}
