package imagemeta_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"shootsort/internal/imagemeta"
	"shootsort/internal/testsupport"
)

func extractOne(t *testing.T, path string) imagemeta.Record {
	t.Helper()

	rec, err := imagemeta.NewExtractor(nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return rec
}

func TestExtractEXIFTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	mtime := time.Date(2020, 1, 1, 12, 0, 0, 0, time.Local)
	testsupport.WriteJPEG(t, path, testsupport.JPEGSpec{
		DateTimeOriginal: "2025:04:10 06:25:03",
		SubSecOriginal:   "037",
	}, mtime)

	rec := extractOne(t, path)

	want := time.Date(2025, 4, 10, 6, 25, 3, 37_000_000, time.Local)
	if !rec.CapturedAt.Equal(want) {
		t.Errorf("CapturedAt = %v, want %v", rec.CapturedAt, want)
	}
	if rec.Source != imagemeta.SourceExifOriginal {
		t.Errorf("Source = %q, want %q", rec.Source, imagemeta.SourceExifOriginal)
	}
}

func TestExtractSingleDigitSubsec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	testsupport.WriteJPEG(t, path, testsupport.JPEGSpec{
		DateTimeOriginal: "2025:04:10 06:25:03",
		SubSecOriginal:   "5",
	}, time.Now())

	rec := extractOne(t, path)

	want := time.Date(2025, 4, 10, 6, 25, 3, 500_000_000, time.Local)
	if !rec.CapturedAt.Equal(want) {
		t.Errorf("CapturedAt = %v, want %v", rec.CapturedAt, want)
	}
}

func TestExtractMtimeFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.jpg")
	mtime := time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local)
	testsupport.WriteImage(t, path, mtime)

	rec := extractOne(t, path)

	if rec.Source != imagemeta.SourceFileMtime {
		t.Errorf("Source = %q, want %q", rec.Source, imagemeta.SourceFileMtime)
	}
	if !rec.CapturedAt.Equal(mtime) {
		t.Errorf("CapturedAt = %v, want %v", rec.CapturedAt, mtime)
	}
	if len(rec.Candidates) != 0 {
		t.Errorf("Candidates = %v, want none", rec.Candidates)
	}
}

func TestExtractImplausibleYearUsesMtime(t *testing.T) {
	mtime := time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local)
	for _, stamp := range []string{"1999:12:31 23:59:59", "2150:01:01 00:00:00"} {
		path := filepath.Join(t.TempDir(), "a.jpg")
		testsupport.WriteJPEG(t, path, testsupport.JPEGSpec{DateTimeOriginal: stamp}, mtime)

		rec := extractOne(t, path)

		if rec.Source != imagemeta.SourceFileMtime {
			t.Errorf("%s: Source = %q, want %q", stamp, rec.Source, imagemeta.SourceFileMtime)
		}
		if !rec.CapturedAt.Equal(mtime) {
			t.Errorf("%s: CapturedAt = %v, want %v", stamp, rec.CapturedAt, mtime)
		}
	}
}

func TestExtractUnreadableFile(t *testing.T) {
	_, err := imagemeta.NewExtractor(nil).Extract(context.Background(),
		filepath.Join(t.TempDir(), "missing.jpg"))
	if !errors.Is(err, imagemeta.ErrUnreadableImage) {
		t.Fatalf("err = %v, want ErrUnreadableImage", err)
	}
}

func TestExtractCanceledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	testsupport.WriteImage(t, path, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := imagemeta.NewExtractor(nil).Extract(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExtractCandidateOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	testsupport.WriteJPEG(t, path, testsupport.JPEGSpec{
		DateTimeOriginal: "2025:04:10 06:25:03",
		XPTitle:          "Harbour Bridge",
		HasGPS:           true,
		Lat:              -33.85,
		Lon:              151.21,
		XMP:              testsupport.XMPWithCity("Sydney"),
	}, time.Now())

	rec := extractOne(t, path)

	if len(rec.Candidates) != 3 {
		t.Fatalf("Candidates = %+v, want 3 entries", rec.Candidates)
	}
	if c := rec.Candidates[0]; c.Kind != imagemeta.CandidateXMP || c.Value != "Sydney" {
		t.Errorf("candidate 0 = %+v, want xmp Sydney", c)
	}
	if c := rec.Candidates[1]; c.Kind != imagemeta.CandidateEXIF || c.Value != "Harbour Bridge" {
		t.Errorf("candidate 1 = %+v, want exif Harbour Bridge", c)
	}
	c := rec.Candidates[2]
	if c.Kind != imagemeta.CandidateGPS {
		t.Fatalf("candidate 2 = %+v, want gps", c)
	}
	if math.Abs(c.Lat - -33.85) > 1e-6 || math.Abs(c.Lon-151.21) > 1e-6 {
		t.Errorf("gps = (%v, %v), want (-33.85, 151.21)", c.Lat, c.Lon)
	}
}

func TestExtractUTF16XPTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	testsupport.WriteJPEG(t, path, testsupport.JPEGSpec{
		DateTimeOriginal: "2025:04:10 06:25:03",
		XPTitle:          "São Paulo",
	}, time.Now())

	rec := extractOne(t, path)

	if len(rec.Candidates) != 1 {
		t.Fatalf("Candidates = %+v, want 1 entry", rec.Candidates)
	}
	if c := rec.Candidates[0]; c.Kind != imagemeta.CandidateEXIF || c.Value != "São Paulo" {
		t.Errorf("candidate = %+v, want exif São Paulo", c)
	}
}

func TestExtractXMPWithoutEXIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	content := append([]byte("\x89PNG\r\n\x1a\n not a real png "),
		[]byte(testsupport.XMPWithCity("Lavender Bay"))...)
	testsupport.WriteFile(t, path, content)
	mtime := time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local)
	testsupport.Chtimes(t, path, mtime)

	rec := extractOne(t, path)

	if rec.Source != imagemeta.SourceFileMtime {
		t.Errorf("Source = %q, want %q", rec.Source, imagemeta.SourceFileMtime)
	}
	if len(rec.Candidates) != 1 || rec.Candidates[0].Value != "Lavender Bay" {
		t.Errorf("Candidates = %+v, want single xmp Lavender Bay", rec.Candidates)
	}
}
