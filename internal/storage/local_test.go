package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorePutCreatesParents(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)

	err := store.Put(context.Background(), "nested/dir/photo_clean.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "nested", "dir", "photo_clean.png"))
	if err != nil {
		t.Fatalf("Expected file written, got: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("Unexpected file contents: %q", data)
	}
}

func TestLocalStoreExists(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "photo_clean.png")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("Expected missing key to report false")
	}

	if err := store.Put(ctx, "photo_clean.png", []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	ok, err = store.Exists(ctx, "photo_clean.png")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("Expected written key to report true")
	}
}
