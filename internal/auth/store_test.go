package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileStore(path)

	if err := store.Save(TokenPair{Access: "a1", Refresh: "r1"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	pair, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if pair.Access != "a1" || pair.Refresh != "r1" {
		t.Fatalf("wrong pair: %+v", pair)
	}

	if err := store.SaveAccess("a2"); err != nil {
		t.Fatalf("save access failed: %v", err)
	}
	pair, _ = store.Load()
	if pair.Access != "a2" {
		t.Errorf("access not updated: %q", pair.Access)
	}
	if pair.Refresh != "r1" {
		t.Errorf("refresh token must survive an access update: %q", pair.Refresh)
	}
}

func TestFileStoreClearRemovesBoth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileStore(path)

	if err := store.Save(TokenPair{Access: "a1", Refresh: "r1"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("token file should be gone after clear")
	}
	pair, err := store.Load()
	if err != nil {
		t.Fatalf("load after clear failed: %v", err)
	}
	if pair.Access != "" || pair.Refresh != "" {
		t.Errorf("expected empty pair, got %+v", pair)
	}
}

func TestFileStoreMissingFileIsEmptyPair(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	pair, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if pair != (TokenPair{}) {
		t.Errorf("expected zero pair, got %+v", pair)
	}
	// Clearing a store that never persisted anything is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("clear on missing file: %v", err)
	}
}

func TestFileStoreLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "tokens.json"))
	if err := store.Save(TokenPair{Access: "a", Refresh: "r"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the token file in %s, found %d entries", dir, len(entries))
	}
}
