package card

// Kind tags which variant of input a Content value carries.
type Kind int

const (
	// KindInvalid is the zero value of Kind, so a zero Content{} (the
	// normalized stand-in for a caller passing no content at all) has no
	// recognized variant and is rejected as InvalidContent rather than
	// silently behaving like BytesContent(nil).
	KindInvalid Kind = iota
	KindBytes
	KindText
	KindObject
)

// Content is the tagged union accepted by New: bytes, text, or a JSON-able
// object. Exactly one of Bytes/Text/Object is meaningful, selected by Kind.
type Content struct {
	Kind   Kind
	Bytes  []byte
	Text   string
	Object map[string]any
}

// BytesContent wraps raw bytes as Content, used as-is with no further encoding.
func BytesContent(b []byte) Content {
	return Content{Kind: KindBytes, Bytes: b}
}

// TextContent wraps a UTF-8 string as Content.
func TextContent(s string) Content {
	return Content{Kind: KindText, Text: s}
}

// ObjectContent wraps a JSON-serializable map as Content. An empty map is
// rejected by New with cerr.InvalidContent.
func ObjectContent(v map[string]any) Content {
	return Content{Kind: KindObject, Object: v}
}
