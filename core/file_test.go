package core

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCreateFile(t *testing.T) {
	t.Run("creates missing parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "c.png")
		f, err := CreateFile(path)
		if err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
		defer f.Close()

		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected file to exist at %s: %v", path, err)
		}
	})

	t.Run("fails when parent is a file", func(t *testing.T) {
		root := t.TempDir()
		blocker := filepath.Join(root, "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := CreateFile(filepath.Join(blocker, "out.png")); err == nil {
			t.Error("Expected error when a parent path component is a regular file")
		}
	})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "page.pdf")
	data := []byte("%PDF-1.4 test")

	if err := WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Expected %q, got %q", data, got)
	}
}

func TestFileExists(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "exists.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"regular file", file, true},
		{"directory", root, false},
		{"missing", filepath.Join(root, "missing.txt"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FileExists(tt.path)
			if err != nil {
				t.Fatalf("FileExists(%q) returned error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsExecutable(t *testing.T) {
	root := t.TempDir()

	exe := filepath.Join(root, "chrome")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !IsExecutable(exe) {
		t.Errorf("Expected %s to be executable", exe)
	}

	if IsExecutable(root) {
		t.Error("Expected a directory not to count as executable")
	}
	if IsExecutable(filepath.Join(root, "missing")) {
		t.Error("Expected a missing file not to count as executable")
	}

	if runtime.GOOS != "windows" {
		plain := filepath.Join(root, "plain")
		if err := os.WriteFile(plain, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if IsExecutable(plain) {
			t.Errorf("Expected %s without exec bits not to be executable", plain)
		}
	}
}
