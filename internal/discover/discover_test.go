package discover_test

import (
	"os"
	"path/filepath"
	"testing"

	"shootsort/internal/discover"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestImagesFlatFiltersExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))
	writeFile(t, filepath.Join(root, "b.JPEG"))
	writeFile(t, filepath.Join(root, "c.png"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, "raw.cr2"))
	writeFile(t, filepath.Join(root, "nested", "d.jpg"))

	got, err := discover.Images(root, discover.Options{})
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "b.JPEG"),
		filepath.Join(root, "c.png"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d files %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestImagesRecursiveSkipsGroupDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))
	writeFile(t, filepath.Join(root, "trip", "b.jpg"))
	writeFile(t, filepath.Join(root, "trip", "deeper", "c.jpg"))
	writeFile(t, filepath.Join(root, "_groups", "old_20240101-1200_01_5", "moved.jpg"))
	writeFile(t, filepath.Join(root, "_groups_backup", "d.jpg"))

	got, err := discover.Images(root, discover.Options{Recurse: true})
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d files %v, want 3", len(got), got)
	}
	for _, path := range got {
		rel, _ := filepath.Rel(root, path)
		if rel == "" || rel[0] == '_' {
			t.Fatalf("pruned directory leaked into results: %q", rel)
		}
	}
}

func TestImagesNonRecursiveIgnoresSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.jpg"))
	writeFile(t, filepath.Join(root, "sub", "below.jpg"))

	got, err := discover.Images(root, discover.Options{})
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(got) != 1 || got[0] != filepath.Join(root, "top.jpg") {
		t.Fatalf("got %v, want just top.jpg", got)
	}
}

func TestImagesSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "only.jpeg")
	writeFile(t, img)

	got, err := discover.Images(img, discover.Options{})
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(got) != 1 || got[0] != img {
		t.Fatalf("got %v, want the single file", got)
	}

	text := filepath.Join(root, "only.txt")
	writeFile(t, text)
	got, err = discover.Images(text, discover.Options{})
	if err != nil {
		t.Fatalf("Images on non-image file: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("non-image file root should yield nothing, got %v", got)
	}
}

func TestImagesMissingRoot(t *testing.T) {
	if _, err := discover.Images(filepath.Join(t.TempDir(), "absent"), discover.Options{}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestImagesCustomSkipPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep", "a.jpg"))
	writeFile(t, filepath.Join(root, "sessions", "b.jpg"))

	got, err := discover.Images(root, discover.Options{Recurse: true, SkipDirPrefix: "sessions"})
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %v, want only keep/a.jpg", got)
	}
}
