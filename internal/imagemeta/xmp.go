package imagemeta

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"slices"
	"strings"
)

const (
	// Packets live in metadata segments near the head of the file, so a
	// bounded read is enough and keeps huge originals cheap to scan.
	xmpScanLimit = 4 << 20

	xmpOpenTag  = "<x:xmpmeta"
	xmpCloseTag = "</x:xmpmeta>"
)

// scanXMPPlace pulls the best place field out of an embedded XMP packet.
// The packet is located by scanning raw bytes, which works for JPEG APP1
// segments and PNG text chunks alike without a format-specific parser.
func scanXMPPlace(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, xmpScanLimit))
	if err != nil {
		return ""
	}
	packet := extractPacket(head)
	if packet == nil {
		return ""
	}
	return placeFromPacket(packet)
}

func extractPacket(b []byte) []byte {
	start := bytes.Index(b, []byte(xmpOpenTag))
	if start < 0 {
		return nil
	}
	end := bytes.Index(b[start:], []byte(xmpCloseTag))
	if end < 0 {
		return nil
	}
	return b[start : start+end+len(xmpCloseTag)]
}

// Priority slots for the place fields a packet may carry.
const (
	slotCity = iota
	slotLocationCreated
	slotLocationShown
	slotDCLocation
	slotCount
)

// placeFromPacket walks the packet and returns the highest-priority place
// field present: photoshop:City, then the City leaf of the IPTC
// LocationCreated and LocationShown structures, then dc:location.
// Elements are matched by local name because prefix bindings vary across
// writers, and both element and attribute serializations are accepted.
func placeFromPacket(packet []byte) string {
	var found [slotCount]string
	set := func(slot int, value string) {
		value = strings.TrimSpace(value)
		if value != "" && found[slot] == "" {
			found[slot] = value
		}
	}
	citySlot := func(stack []string) int {
		switch {
		case slices.Contains(stack, "LocationCreated"):
			return slotLocationCreated
		case slices.Contains(stack, "LocationShown"):
			return slotLocationShown
		default:
			return slotCity
		}
	}

	dec := xml.NewDecoder(bytes.NewReader(packet))
	var stack []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			stack = append(stack, el.Name.Local)
			for _, attr := range el.Attr {
				switch attr.Name.Local {
				case "City":
					set(citySlot(stack), attr.Value)
				case "location":
					set(slotDCLocation, attr.Value)
				}
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := string(el)
			top := stack[len(stack)-1]
			inList := top == "li"
			switch {
			case top == "City":
				set(citySlot(stack), text)
			case top == "LocationCreated",
				inList && slices.Contains(stack, "LocationCreated"):
				set(slotLocationCreated, text)
			case top == "LocationShown",
				inList && slices.Contains(stack, "LocationShown"):
				set(slotLocationShown, text)
			case top == "location",
				inList && slices.Contains(stack, "location"):
				set(slotDCLocation, text)
			}
		}
	}

	for _, v := range found {
		if v != "" {
			return v
		}
	}
	return ""
}
