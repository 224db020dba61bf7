package settings_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shootsort/internal/settings"
)

func TestLoadMissingFile(t *testing.T) {
	s, err := settings.Load(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LastInputRoot != "" || s.LastOutputRoot != "" {
		t.Errorf("s = %+v, want zero settings", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "settings.toml")
	want := settings.Settings{
		LastInputRoot:  "/shoots/in",
		LastOutputRoot: "/shoots/out",
		UpdatedAt:      time.Date(2025, 4, 10, 6, 25, 0, 0, time.UTC),
	}

	if err := settings.Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := settings.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastInputRoot != want.LastInputRoot || got.LastOutputRoot != want.LastOutputRoot {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	if err := settings.Save(path, settings.Settings{LastInputRoot: "/old"}); err != nil {
		t.Fatalf("Save old: %v", err)
	}
	if err := settings.Save(path, settings.Settings{LastInputRoot: "/new"}); err != nil {
		t.Fatalf("Save new: %v", err)
	}

	got, err := settings.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastInputRoot != "/new" {
		t.Errorf("LastInputRoot = %q, want /new", got.LastInputRoot)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover temp files: %v", entries)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("last_input_root = [broken"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := settings.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
