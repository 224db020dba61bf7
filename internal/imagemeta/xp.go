package imagemeta

import (
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/text/encoding/unicode"
)

// Windows Explorer stores free-text descriptions in the XP* tags, which
// some workflows use for location notes. Checked in this order.
var xpFields = []exif.FieldName{
	exif.XPTitle,
	exif.XPSubject,
	exif.XPAuthor,
	exif.XPComment,
	exif.XPKeywords,
}

func firstXPString(x *exif.Exif) string {
	for _, field := range xpFields {
		if v := xpString(x, field); v != "" {
			return v
		}
	}
	return ""
}

// xpString decodes a single XP tag. The tags are nominally UTF-16LE byte
// arrays, but some writers store plain ASCII, so a string read is tried
// first.
func xpString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	if s, err := tag.StringVal(); err == nil {
		return trimXP(s)
	}

	raw := make([]byte, 0, tag.Count)
	for i := 0; i < int(tag.Count); i++ {
		v, err := tag.Int(i)
		if err != nil {
			return ""
		}
		raw = append(raw, byte(v))
	}
	return decodeUTF16LE(raw)
}

func decodeUTF16LE(b []byte) string {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return ""
	}
	return trimXP(string(out))
}

func trimXP(s string) string {
	return strings.Trim(s, "\x00 \t\r\n")
}
