package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// WriteImage writes a file with a .jpg extension but no parseable metadata
// and pins its modification time. Useful for exercising mtime fallbacks.
func WriteImage(t *testing.T, path string, mtime time.Time) {
	t.Helper()

	WriteFile(t, path, []byte("not really a jpeg"))
	Chtimes(t, path, mtime)
}

// Chtimes pins both access and modification time of path.
func Chtimes(t *testing.T, path string, when time.Time) {
	t.Helper()

	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}
