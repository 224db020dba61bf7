// Package imagemeta extracts capture timestamps and place hints from
// image files. Extraction is best effort: a file with no usable metadata
// still yields a record built from filesystem state, and only files that
// cannot be read at all produce an error.
package imagemeta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"shootsort/internal/logging"
)

// ErrUnreadableImage marks files that could not be opened or stat'd.
// Metadata-level problems never surface as errors.
var ErrUnreadableImage = errors.New("unreadable image")

// Source identifies where a record's timestamp came from.
type Source string

const (
	SourceExifOriginal Source = "exif_original"
	SourceFileMtime    Source = "file_mtime"
)

// CandidateKind identifies the metadata field family a place hint came from.
type CandidateKind string

const (
	CandidateXMP  CandidateKind = "xmp"
	CandidateEXIF CandidateKind = "exif"
	CandidateGPS  CandidateKind = "gps"
)

// PlaceCandidate is a single place hint. XMP and EXIF candidates carry a
// textual value; GPS candidates carry coordinates for reverse geocoding.
type PlaceCandidate struct {
	Kind     CandidateKind
	Value    string
	Lat, Lon float64
}

// Record is the extracted metadata for one image.
type Record struct {
	Path       string
	CapturedAt time.Time
	Source     Source
	Candidates []PlaceCandidate
}

const (
	exifTimeLayout = "2006:01:02 15:04:05"
	saneYearMin    = 2000
)

// Extractor reads image metadata. It is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		logger: logging.NewComponentLogger(logger, "imagemeta"),
		now:    time.Now,
	}
}

// Extract builds the metadata record for path. It returns
// ErrUnreadableImage only when the file itself cannot be accessed;
// missing or corrupt metadata degrades to filesystem timestamps and an
// empty candidate list.
func (e *Extractor) Extract(ctx context.Context, path string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}

	x, err := e.decodeEXIF(path)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Path: path}
	rec.CapturedAt, rec.Source = e.timestamp(x, path, info.ModTime())
	rec.Candidates = e.placeCandidates(x, path)
	return rec, nil
}

// decodeEXIF returns nil without error when the file carries no parseable
// EXIF block, which covers PNGs and stripped JPEGs.
func (e *Extractor) decodeEXIF(path string) (*exif.Exif, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		e.logger.Debug("no exif metadata",
			logging.String(logging.FieldImage, path),
			logging.Error(err))
		return nil, nil
	}
	return x, nil
}

func (e *Extractor) timestamp(x *exif.Exif, path string, mtime time.Time) (time.Time, Source) {
	if x == nil {
		return mtime, SourceFileMtime
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return mtime, SourceFileMtime
	}
	raw, err := tag.StringVal()
	if err != nil {
		return mtime, SourceFileMtime
	}

	captured, err := time.ParseInLocation(exifTimeLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		e.logger.Debug("unparseable exif timestamp",
			logging.String(logging.FieldImage, path),
			logging.String("value", raw))
		return mtime, SourceFileMtime
	}

	// Cameras with dead clocks write epoch-era dates. Far-future years
	// point at the same kind of fault.
	if year := captured.Year(); year < saneYearMin || year > e.now().Year()+1 {
		e.logger.Debug("implausible exif year, using file mtime",
			logging.String(logging.FieldImage, path),
			logging.Int("year", year))
		return mtime, SourceFileMtime
	}

	if frac := subsecDuration(e.subsec(x)); frac > 0 {
		captured = captured.Add(frac)
	}
	return captured, SourceExifOriginal
}

func (e *Extractor) subsec(x *exif.Exif) string {
	tag, err := x.Get(exif.SubSecTimeOriginal)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

// subsecDuration interprets SubSecTimeOriginal digits as the decimal
// fraction of a second: "5" is half a second, "037" is 37 milliseconds.
func subsecDuration(digits string) time.Duration {
	digits = strings.TrimSpace(digits)
	if digits == "" {
		return 0
	}
	if len(digits) > 9 {
		digits = digits[:9]
	}

	value := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0
		}
		value = value*10 + int(r-'0')
	}
	for i := len(digits); i < 9; i++ {
		value *= 10
	}
	return time.Duration(value) * time.Nanosecond
}

// placeCandidates gathers hints in resolution priority order: embedded
// XMP city fields, then Windows XP description tags, then GPS coordinates.
func (e *Extractor) placeCandidates(x *exif.Exif, path string) []PlaceCandidate {
	var out []PlaceCandidate

	if city := scanXMPPlace(path); city != "" {
		out = append(out, PlaceCandidate{Kind: CandidateXMP, Value: city})
	}
	if x != nil {
		if v := firstXPString(x); v != "" {
			out = append(out, PlaceCandidate{Kind: CandidateEXIF, Value: v})
		}
		if lat, lon, err := x.LatLong(); err == nil {
			out = append(out, PlaceCandidate{Kind: CandidateGPS, Lat: lat, Lon: lon})
		}
	}
	return out
}
