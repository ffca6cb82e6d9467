package sqlite

import (
	"path/filepath"
	"testing"
)

func TestNewDBInMemory(t *testing.T) {
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	// in-memory databases report "memory"; on-disk ones report "wal"
	if mode != "memory" && mode != "wal" {
		t.Fatalf("unexpected journal mode %q", mode)
	}
}

func TestNewDBOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatal("foreign key enforcement must be on")
	}
}

func TestNewDBMissingParentDir(t *testing.T) {
	if _, err := NewDB(filepath.Join(t.TempDir(), "no", "such", "dir", "x.db")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
