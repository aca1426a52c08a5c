package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWritePersistsAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	url, err := store.Write(context.Background(), "generated/images/abc/scene-01.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if url != "http://localhost:8080/static/generated/images/abc/scene-01.png" {
		t.Fatalf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generated", "images", "abc", "scene-01.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("stored data = %q", data)
	}
}

func TestWriteRejectsTraversalKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, key := range []string{"", ".", "../outside", "a/../../outside"} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestExtensionForMIME(t *testing.T) {
	tests := map[string]string{
		"image/png":  ".png",
		"IMAGE/JPEG": ".jpg",
		"image/webp": ".webp",
		"video/mp4":  ".mp4",
		"who/knows":  ".bin",
	}
	for mime, want := range tests {
		if got := ExtensionForMIME(mime); got != want {
			t.Fatalf("ExtensionForMIME(%q) = %q, want %q", mime, got, want)
		}
	}
}
