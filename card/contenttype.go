package card

import "bytes"

// magicRule is one entry in the fixed magic-byte prefix table used to
// override the coarse text/binary classifier. First match in table order
// wins.
type magicRule struct {
	mime   string
	prefix []byte
	// offset into the content where prefix must match; most signatures
	// start at byte 0, WEBP/WAV/MP4 need a short offset past a container
	// header.
	offset int
}

var magicTable = []magicRule{
	{"image/jpeg", []byte{0xFF, 0xD8, 0xFF}, 0},
	{"image/png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0},
	{"image/gif", []byte("GIF87a"), 0},
	{"image/gif", []byte("GIF89a"), 0},
	{"image/webp", []byte("WEBP"), 8},
	{"image/bmp", []byte("BM"), 0},
	{"application/pdf", []byte("%PDF-"), 0},
	{"audio/mpeg", []byte{0x49, 0x44, 0x33}, 0}, // "ID3"
	{"audio/mpeg", []byte{0xFF, 0xFB}, 0},
	{"audio/wav", []byte("WAVE"), 8},
	{"video/mp4", []byte("ftyp"), 4},
	{"video/webm", []byte{0x1A, 0x45, 0xDF, 0xA3}, 0},
	{"application/zip", []byte{0x50, 0x4B, 0x03, 0x04}, 0},
	{"application/gzip", []byte{0x1F, 0x8B}, 0},
}

// classify returns a coarse MIME tag for b: a magic-byte match from the
// fixed table above if one applies, otherwise text/plain when the bytes
// beyond a 4-byte magic check are printable ASCII or common whitespace
// with no NUL byte, otherwise application/octet-stream.
func classify(b []byte) string {
	for _, rule := range magicTable {
		if matchesAt(b, rule.offset, rule.prefix) {
			return rule.mime
		}
	}

	check := b
	if len(check) > 4 {
		check = check[4:]
	}
	for _, c := range check {
		if c == 0 {
			return "application/octet-stream"
		}
		if !isPrintableOrWhitespace(c) {
			return "application/octet-stream"
		}
	}
	return "text/plain"
}

func matchesAt(b []byte, offset int, prefix []byte) bool {
	if offset+len(prefix) > len(b) {
		return false
	}
	return bytes.Equal(b[offset:offset+len(prefix)], prefix)
}

func isPrintableOrWhitespace(c byte) bool {
	if c == '\t' || c == '\n' || c == '\r' {
		return true
	}
	return c >= 0x20 && c < 0x7F
}
