package database

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count); err != nil {
		t.Fatalf("kv table missing: %v", err)
	}
	if count != 0 {
		t.Errorf("fresh kv has %d rows, want 0", count)
	}
}

func TestOpenFileTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO kv (key, value) VALUES ('products', '[]')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	// Migrations are idempotent and data survives reopening
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()

	var value string
	if err := db.QueryRow(`SELECT value FROM kv WHERE key = 'products'`).Scan(&value); err != nil {
		t.Fatalf("select: %v", err)
	}
	if value != "[]" {
		t.Errorf("value = %q, want %q", value, "[]")
	}
}
