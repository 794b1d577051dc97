package googleauth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

func writeTokenFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	return path
}

func TestNewStoreInlineBeatsFile(t *testing.T) {
	path := writeTokenFile(t, `{"access_token":"file-at","refresh_token":"file-rt","token_type":"Bearer"}`)
	store, err := NewStore(`{"access_token":"inline-at","refresh_token":"inline-rt","token_type":"Bearer"}`, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := store.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "inline-at" {
		t.Fatalf("expected inline secret to win, got %s", tok.AccessToken)
	}
}

func TestNewStoreFileFallback(t *testing.T) {
	path := writeTokenFile(t, `{"access_token":"file-at","refresh_token":"file-rt","token_type":"Bearer"}`)
	store, err := NewStore("", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := store.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "file-at" || tok.RefreshToken != "file-rt" {
		t.Fatalf("expected file token, got %+v", tok)
	}
}

func TestNewStoreMissingFileLeavesStoreEmpty(t *testing.T) {
	store, err := NewStore("", filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not fail startup: %v", err)
	}
	if _, err := store.Token(); !errors.Is(err, ErrMissingTokens) {
		t.Fatalf("expected ErrMissingTokens, got %v", err)
	}
	if store.Authorized() {
		t.Fatalf("expected unauthorized store")
	}
}

func TestNewStoreRejectsMalformedToken(t *testing.T) {
	if _, err := NewStore("{not json", ""); err == nil {
		t.Fatalf("expected error for malformed inline secret")
	}
	path := writeTokenFile(t, "{not json")
	if _, err := NewStore("", path); err == nil {
		t.Fatalf("expected error for malformed token file")
	}
}

func TestTokenRequiresRefreshToken(t *testing.T) {
	store, err := NewStore(`{"access_token":"at","token_type":"Bearer"}`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Token(); !errors.Is(err, ErrMissingTokens) {
		t.Fatalf("expected ErrMissingTokens without refresh token, got %v", err)
	}
}

func TestSavePersistsAndPreservesRefreshToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store, err := NewStore(`{"access_token":"old-at","refresh_token":"keep-me","token_type":"Bearer"}`, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Save(&oauth2.Token{AccessToken: "new-at", TokenType: "Bearer"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	tok, err := store.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "new-at" {
		t.Fatalf("expected refreshed access token, got %s", tok.AccessToken)
	}
	if tok.RefreshToken != "keep-me" {
		t.Fatalf("expected prior refresh token preserved, got %s", tok.RefreshToken)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected token file written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 token file, got %v", info.Mode().Perm())
	}

	reloaded, err := NewStore("", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok2, err := reloaded.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok2.AccessToken != "new-at" || tok2.RefreshToken != "keep-me" {
		t.Fatalf("expected persisted token to round-trip, got %+v", tok2)
	}
}

func TestSaveWithoutFileKeepsMemoryCopy(t *testing.T) {
	store, err := NewStore("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save(&oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}); err != nil {
		t.Fatalf("save without file should succeed: %v", err)
	}
	if !store.Authorized() {
		t.Fatalf("expected store authorized after save")
	}
}
