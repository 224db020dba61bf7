// Package place turns extracted metadata into the normalized place token
// used in group directory names. Strategies run in a fixed priority
// order and the first usable answer wins; resolution never fails, it
// only degrades toward the unknown token.
package place

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"shootsort/internal/geocode"
	"shootsort/internal/imagemeta"
	"shootsort/internal/logging"
)

// Source identifies which strategy produced a resolution.
type Source string

const (
	SourceXMP       Source = "xmp"
	SourceEXIF      Source = "exif"
	SourceGPS       Source = "gps_geocode"
	SourceParentDir Source = "parent_dir"
	SourceNone      Source = "none"
)

// Resolution is the place decision for one image.
type Resolution struct {
	ImagePath string
	// Place is the normalized token, never empty.
	Place string
	// Raw is the pre-normalization value the winning strategy produced.
	Raw    string
	Source Source
}

const defaultSkipPrefix = "_groups"

// Directory names that describe structure rather than where a shoot
// happened, compared after normalization.
var genericDirNames = map[string]struct{}{
	"copy":   {},
	"sub":    {},
	"temp":   {},
	"backup": {},
	"raw":    {},
}

// Maximum ancestor directories consulted by the parent-dir fallback.
const maxParentLevels = 5

// Resolver chains the place strategies. A nil geocoder disables the GPS
// strategy, which is how offline runs are expressed.
type Resolver struct {
	geocoder   geocode.Geocoder
	skipPrefix string
	logger     *slog.Logger
}

func NewResolver(geocoder geocode.Geocoder, skipDirPrefix string, logger *slog.Logger) *Resolver {
	if skipDirPrefix == "" {
		skipDirPrefix = defaultSkipPrefix
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		geocoder:   geocoder,
		skipPrefix: skipDirPrefix,
		logger:     logging.NewComponentLogger(logger, "place"),
	}
}

// Resolve walks the record's candidates in priority order, then falls
// back to ancestor directory names, then to the unknown token.
func (r *Resolver) Resolve(ctx context.Context, rec imagemeta.Record) Resolution {
	for _, cand := range rec.Candidates {
		var raw string
		var source Source
		switch cand.Kind {
		case imagemeta.CandidateXMP:
			raw, source = cand.Value, SourceXMP
		case imagemeta.CandidateEXIF:
			raw, source = cand.Value, SourceEXIF
		case imagemeta.CandidateGPS:
			raw, source = r.reverseGeocode(ctx, rec.Path, cand), SourceGPS
		}
		if raw == "" {
			continue
		}
		if place := Normalize(raw); place != Unknown {
			return r.resolved(rec.Path, place, raw, source)
		}
	}

	if place, raw, ok := r.fromParentDirs(rec.Path); ok {
		return r.resolved(rec.Path, place, raw, SourceParentDir)
	}
	return Resolution{ImagePath: rec.Path, Place: Unknown, Source: SourceNone}
}

func (r *Resolver) resolved(path, place, raw string, source Source) Resolution {
	r.logger.Debug("place resolved",
		logging.String(logging.FieldImage, path),
		logging.String(logging.FieldPlace, place),
		logging.String(logging.FieldSource, string(source)))
	return Resolution{ImagePath: path, Place: place, Raw: raw, Source: source}
}

func (r *Resolver) reverseGeocode(ctx context.Context, path string, cand imagemeta.PlaceCandidate) string {
	if r.geocoder == nil {
		return ""
	}
	raw, err := r.geocoder.Reverse(ctx, cand.Lat, cand.Lon)
	switch {
	case err == nil:
		return raw
	case errors.Is(err, geocode.ErrNoPlace):
		r.logger.Debug("no locality for coordinates",
			logging.String(logging.FieldImage, path),
			logging.Float64("lat", cand.Lat),
			logging.Float64("lon", cand.Lon))
	case errors.Is(err, geocode.ErrUnavailable):
		r.logger.Warn("geocoder unavailable, falling back",
			logging.String(logging.FieldImage, path),
			logging.Error(err))
	default:
		r.logger.Debug("geocode lookup aborted",
			logging.String(logging.FieldImage, path),
			logging.Error(err))
	}
	return ""
}

// fromParentDirs walks up from the image's directory looking for the
// first ancestor whose name is a plausible place. Group output dirs and
// structural names like raw or backup are skipped.
func (r *Resolver) fromParentDirs(path string) (place, raw string, ok bool) {
	dir := filepath.Dir(path)
	for level := 0; level < maxParentLevels; level++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		name := filepath.Base(dir)
		if !strings.HasPrefix(name, r.skipPrefix) {
			if p := Normalize(name); p != Unknown {
				if _, generic := genericDirNames[p]; !generic {
					return p, name, true
				}
			}
		}
		dir = parent
	}
	return "", "", false
}
