package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"
	"unicode/utf16"
)

// JPEGSpec describes the metadata embedded in a fabricated image. The
// resulting file is a structurally valid JPEG holding only metadata
// segments, which is all the extraction code ever reads.
type JPEGSpec struct {
	// DateTimeOriginal uses the EXIF layout "2006:01:02 15:04:05".
	// Empty omits the tag.
	DateTimeOriginal string
	// SubSecOriginal holds the fractional-second digits. Empty omits the tag.
	SubSecOriginal string
	// XPTitle is stored as UTF-16LE bytes the way Windows Explorer writes it.
	XPTitle string
	// HasGPS embeds Lat/Lon as degree/minute/second rationals with
	// hemisphere refs.
	HasGPS   bool
	Lat, Lon float64
	// XMP is a raw packet written to its own APP1 segment.
	XMP string
}

// WriteJPEG fabricates a JPEG carrying the spec's metadata and pins its
// modification time.
func WriteJPEG(t *testing.T, path string, spec JPEGSpec, mtime time.Time) {
	t.Helper()

	WriteFile(t, path, BuildJPEG(spec))
	Chtimes(t, path, mtime)
}

// BuildJPEG returns the raw bytes for a metadata-only JPEG.
func BuildJPEG(spec JPEGSpec) []byte {
	out := &bytes.Buffer{}
	out.Write([]byte{0xFF, 0xD8})
	writeAPP1(out, append([]byte("Exif\x00\x00"), buildTIFF(spec)...))
	if spec.XMP != "" {
		writeAPP1(out, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), []byte(spec.XMP)...))
	}
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

// XMPPacket wraps RDF descriptions in a standard xmpmeta envelope.
func XMPPacket(descriptions string) string {
	return `<?xpacket begin="` + "\uFEFF" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>` +
		`<x:xmpmeta xmlns:x="adobe:ns:meta/">` +
		`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		descriptions +
		`</rdf:RDF></x:xmpmeta><?xpacket end="w"?>`
}

// XMPWithCity returns a packet carrying a photoshop:City element.
func XMPWithCity(city string) string {
	return XMPPacket(`<rdf:Description rdf:about="" ` +
		`xmlns:photoshop="http://ns.adobe.com/photoshop/1.0/">` +
		`<photoshop:City>` + city + `</photoshop:City>` +
		`</rdf:Description>`)
}

func writeAPP1(out *bytes.Buffer, payload []byte) {
	out.Write([]byte{0xFF, 0xE1})
	length := uint16(len(payload) + 2)
	out.Write([]byte{byte(length >> 8), byte(length)})
	out.Write(payload)
}

// TIFF value types used by the builder.
const (
	tiffByte     = 1
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

// EXIF tag IDs used by the builder.
const (
	tagExifIFDPointer = 0x8769
	tagGPSIFDPointer  = 0x8825
	tagXPTitle        = 0x9C9B
	tagDateTimeOrig   = 0x9003
	tagSubSecOrig     = 0x9291
	tagGPSLatRef      = 0x0001
	tagGPSLat         = 0x0002
	tagGPSLonRef      = 0x0003
	tagGPSLon         = 0x0004
)

type tiffEntry struct {
	id   uint16
	typ  uint16
	data []byte
}

func (e tiffEntry) count() uint32 {
	switch e.typ {
	case tiffLong:
		return uint32(len(e.data) / 4)
	case tiffRational:
		return uint32(len(e.data) / 8)
	default:
		return uint32(len(e.data))
	}
}

func asciiEntry(id uint16, s string) tiffEntry {
	return tiffEntry{id: id, typ: tiffASCII, data: append([]byte(s), 0)}
}

func longEntry(id uint16, v uint32) tiffEntry {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return tiffEntry{id: id, typ: tiffLong, data: data}
}

// buildTIFF lays out a little-endian TIFF: header, IFD0, the EXIF and GPS
// sub-IFDs, then the shared out-of-line value area. All offsets are
// relative to the TIFF header as the format requires.
func buildTIFF(spec JPEGSpec) []byte {
	var exifEntries []tiffEntry
	if spec.DateTimeOriginal != "" {
		exifEntries = append(exifEntries, asciiEntry(tagDateTimeOrig, spec.DateTimeOriginal))
	}
	if spec.SubSecOriginal != "" {
		exifEntries = append(exifEntries, asciiEntry(tagSubSecOrig, spec.SubSecOriginal))
	}

	var gpsEntries []tiffEntry
	if spec.HasGPS {
		latRef, lat := "N", spec.Lat
		if lat < 0 {
			latRef, lat = "S", -lat
		}
		lonRef, lon := "E", spec.Lon
		if lon < 0 {
			lonRef, lon = "W", -lon
		}
		gpsEntries = append(gpsEntries,
			asciiEntry(tagGPSLatRef, latRef),
			tiffEntry{id: tagGPSLat, typ: tiffRational, data: degreeRationals(lat)},
			asciiEntry(tagGPSLonRef, lonRef),
			tiffEntry{id: tagGPSLon, typ: tiffRational, data: degreeRationals(lon)},
		)
	}

	ifdSize := func(n int) uint32 { return 2 + 12*uint32(n) + 4 }

	// IFD0 entry count must be fixed before offsets can be computed, so
	// pointer values are filled in below once the sub-IFD offsets are known.
	ifd0Count := 1 // EXIF pointer is always present
	if len(gpsEntries) > 0 {
		ifd0Count++
	}
	if spec.XPTitle != "" {
		ifd0Count++
	}

	exifOffset := 8 + ifdSize(ifd0Count)
	gpsOffset := exifOffset + ifdSize(len(exifEntries))
	dataOffset := gpsOffset
	if len(gpsEntries) > 0 {
		dataOffset += ifdSize(len(gpsEntries))
	}

	// Entries within an IFD are ordered by ascending tag ID.
	ifd0 := []tiffEntry{longEntry(tagExifIFDPointer, exifOffset)}
	if len(gpsEntries) > 0 {
		ifd0 = append(ifd0, longEntry(tagGPSIFDPointer, gpsOffset))
	}
	if spec.XPTitle != "" {
		ifd0 = append(ifd0, tiffEntry{id: tagXPTitle, typ: tiffByte, data: utf16leBytes(spec.XPTitle)})
	}

	ifds := &bytes.Buffer{}
	data := &bytes.Buffer{}
	writeIFD(ifds, ifd0, data, dataOffset)
	writeIFD(ifds, exifEntries, data, dataOffset)
	if len(gpsEntries) > 0 {
		writeIFD(ifds, gpsEntries, data, dataOffset)
	}

	tif := &bytes.Buffer{}
	tif.Write([]byte("II"))
	binary.Write(tif, binary.LittleEndian, uint16(42))
	binary.Write(tif, binary.LittleEndian, uint32(8))
	tif.Write(ifds.Bytes())
	tif.Write(data.Bytes())
	return tif.Bytes()
}

func writeIFD(w *bytes.Buffer, entries []tiffEntry, data *bytes.Buffer, dataBase uint32) {
	binary.Write(w, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(w, binary.LittleEndian, e.id)
		binary.Write(w, binary.LittleEndian, e.typ)
		binary.Write(w, binary.LittleEndian, e.count())
		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			w.Write(inline[:])
		} else {
			if data.Len()%2 == 1 {
				data.WriteByte(0)
			}
			binary.Write(w, binary.LittleEndian, dataBase+uint32(data.Len()))
			data.Write(e.data)
		}
	}
	binary.Write(w, binary.LittleEndian, uint32(0))
}

func degreeRationals(v float64) []byte {
	deg := math.Floor(v)
	rem := (v - deg) * 60
	min := math.Floor(rem)
	sec := (rem - min) * 60

	buf := &bytes.Buffer{}
	writeRat := func(num, den uint32) {
		binary.Write(buf, binary.LittleEndian, num)
		binary.Write(buf, binary.LittleEndian, den)
	}
	writeRat(uint32(deg), 1)
	writeRat(uint32(min), 1)
	writeRat(uint32(math.Round(sec*10000)), 10000)
	return buf.Bytes()
}

func utf16leBytes(s string) []byte {
	codes := utf16.Encode([]rune(s))
	buf := make([]byte, 0, 2*len(codes)+2)
	for _, c := range codes {
		buf = append(buf, byte(c), byte(c>>8))
	}
	return append(buf, 0, 0)
}
