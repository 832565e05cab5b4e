package status

import (
	"errors"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := ConnectSQLite(filepath.Join(t.TempDir(), "status.db"))
	if err != nil {
		t.Fatalf("ConnectSQLite failed: %v", err)
	}
	return s
}

func TestStore_SetAndGet(t *testing.T) {
	s := testStore(t)

	if err := s.Set("abc123", Deployed); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get("abc123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != Deployed {
		t.Errorf("expected %q, got %q", Deployed, got)
	}
}

func TestStore_GetAbsent(t *testing.T) {
	s := testStore(t)

	_, err := s.Get("never-submitted")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	s := testStore(t)

	if err := s.Set("abc123", Failed); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("abc123", Deployed); err != nil {
		t.Fatalf("overwriting Set failed: %v", err)
	}

	got, err := s.Get("abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got != Deployed {
		t.Errorf("expected %q after overwrite, got %q", Deployed, got)
	}
}
