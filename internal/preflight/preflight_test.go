package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"shootsort/internal/testsupport"
)

func TestCheckReadableTree_OK(t *testing.T) {
	result := CheckReadableTree("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckReadableTree_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	testsupport.WriteFile(t, path, []byte("x"))

	result := CheckReadableTree("test", path)
	if !result.Passed {
		t.Fatalf("expected pass for readable file, got: %s", result.Detail)
	}
}

func TestCheckReadableTree_NotExist(t *testing.T) {
	result := CheckReadableTree("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckWritableTarget_Existing(t *testing.T) {
	result := CheckWritableTarget("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckWritableTarget_MissingWithAncestor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out")
	result := CheckWritableTarget("test", path)
	if !result.Passed {
		t.Fatalf("expected pass for creatable path, got: %s", result.Detail)
	}
}

func TestCheckWritableTarget_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	testsupport.WriteFile(t, f, []byte("x"))

	result := CheckWritableTarget("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableTarget_Empty(t *testing.T) {
	if CheckWritableTarget("test", "").Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckHistory_OK(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckHistory(cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result.Detail == "" {
		t.Fatal("expected detail to carry the database path")
	}
}

func TestCheckHistory_CorruptDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.HistoryDBPath(), []byte("not a database"))

	result := CheckHistory(cfg)
	if result.Passed {
		t.Fatal("expected failure for corrupt database")
	}
}

func TestCheckGeocoder_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":0,"message":"OK"}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithGeocode(srv.URL))
	result := CheckGeocoder(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckGeocoder_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithGeocode(srv.URL))
	result := CheckGeocoder(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for unavailable geocoder")
	}
}

func TestRunAll_SkipsDisabledFeatures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false

	results := RunAll(context.Background(), cfg, "", "")
	if len(results) != 2 {
		t.Fatalf("got %d results, want log and state checks only: %+v", len(results), results)
	}
	if !AllPassed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
}

func TestRunAll_WithTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := t.TempDir()

	results := RunAll(context.Background(), cfg, input, filepath.Join(input, "_groups"))
	if len(results) != 5 {
		t.Fatalf("got %d results: %+v", len(results), results)
	}
	if !AllPassed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
}
