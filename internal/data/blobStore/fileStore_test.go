package blobStore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKeyRejectsTraversal(t *testing.T) {
	bad := [][2]string{
		{"u1", "../etc/passwd"},
		{"..", "a.pdf"},
		{"u1", ""},
		{"", "a.pdf"},
		{"u1", `dir\a.pdf`},
	}
	for _, parts := range bad {
		if _, err := Key(parts[0], parts[1]); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Key(%q, %q) err = %v; want ErrInvalidKey", parts[0], parts[1], err)
		}
	}
	tests := []struct {
		userId, fileName, want string
	}{
		{"u1", "week1.pdf", "u1/week1.pdf"},
		{"user 1", "week 1.pdf", "user%201/week 1.pdf"},
		{"org/u2", "notes, week1.pdf", "org%2Fu2/notes, week1.pdf"},
	}
	for _, tt := range tests {
		key, err := Key(tt.userId, tt.fileName)
		if err != nil || key != tt.want {
			t.Errorf("Key(%q, %q) = %q, %v; want %q", tt.userId, tt.fileName, key, err, tt.want)
		}
	}
}

func TestUploadDownloadDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStorage(root, "http://localhost:3000/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	n, err := s.Upload(ctx, "u1/a.pdf", strings.NewReader("%PDF-1.4 first"))
	if err != nil || n != int64(len("%PDF-1.4 first")) {
		t.Fatalf("Upload = %d, %v", n, err)
	}
	if _, err = s.Upload(ctx, "u1/a.pdf", strings.NewReader("%PDF-1.4 second")); err != nil {
		t.Fatal(err)
	}

	rc, err := s.Download(ctx, "u1/a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "%PDF-1.4 second" {
		t.Errorf("body = %q; want the overwrite", body)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "u1"))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}

	if err = s.Delete(ctx, "u1/a.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err = s.Download(ctx, "u1/a.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download after delete err = %v", err)
	}
}

func TestUploadCancelled(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err = s.Upload(ctx, "u1/a.pdf", strings.NewReader("data")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
	if _, err = s.Download(context.Background(), "u1/a.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancelled upload left an object: %v", err)
	}
}

func TestGetPublicURL(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), "http://localhost:3000/")
	if err != nil {
		t.Fatal(err)
	}
	for userId, want := range map[string]string{
		"user 1": "http://localhost:3000/files/user%201/week%201.pdf",
		"org/u2": "http://localhost:3000/files/org%2Fu2/week%201.pdf",
	} {
		key, err := Key(userId, "week 1.pdf")
		if err != nil {
			t.Fatal(err)
		}
		if got := s.GetPublicURL(key); got != want {
			t.Errorf("GetPublicURL(%q) = %q; want %q", key, got, want)
		}
	}
}
