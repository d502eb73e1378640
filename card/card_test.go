package card

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/gtime"
	"github.com/cardvault/cardvault/hashalgo"
)

func TestNewFromText(t *testing.T) {
	c, err := New(TextContent("Hello, World!"), hashalgo.SHA256, "UTC")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if string(c.ContentBytes()) != "Hello, World!" {
		t.Errorf("ContentBytes() = %q", c.ContentBytes())
	}
	if len(c.Hash()) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(c.Hash()))
	}
	if c.HashAlgorithm() != hashalgo.SHA256 {
		t.Errorf("HashAlgorithm() = %v", c.HashAlgorithm())
	}
	if !strings.HasPrefix(string(c.GTime()), "sha256|") {
		t.Errorf("GTime() = %v, want prefix sha256|", c.GTime())
	}
}

func TestNewFromObject(t *testing.T) {
	c, err := New(ObjectContent(map[string]any{"key": "value"}), "", "UTC")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	want, _ := json.Marshal(map[string]any{"key": "value"})
	if string(c.ContentBytes()) != string(want) {
		t.Errorf("ContentBytes() = %s, want %s", c.ContentBytes(), want)
	}
}

func TestNewEmptyObjectRejected(t *testing.T) {
	_, err := New(ObjectContent(map[string]any{}), "", "UTC")
	if !cerr.Of(err, cerr.InvalidContent) {
		t.Fatalf("New() error = %v, want InvalidContent", err)
	}
}

func TestNewZeroValueRejected(t *testing.T) {
	_, err := New(Content{}, "", "UTC")
	if !cerr.Of(err, cerr.InvalidContent) {
		t.Fatalf("New() error = %v, want InvalidContent", err)
	}
}

func TestNewEmptyBytesRejected(t *testing.T) {
	_, err := New(BytesContent(nil), "", "UTC")
	if !cerr.Of(err, cerr.EmptyContent) {
		t.Fatalf("New() error = %v, want EmptyContent", err)
	}
}

func TestNewUnknownAlgorithmRejected(t *testing.T) {
	_, err := New(TextContent("x"), hashalgo.Algorithm("crc32"), "UTC")
	if !cerr.Of(err, cerr.UnknownAlgorithm) {
		t.Fatalf("New() error = %v, want UnknownAlgorithm", err)
	}
}

func TestDeterminism(t *testing.T) {
	c1, err := New(TextContent("same bytes"), hashalgo.SHA256, "UTC")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := New(TextContent("same bytes"), hashalgo.SHA256, "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if c1.Hash() != c2.Hash() || c1.HashAlgorithm() != c2.HashAlgorithm() {
		t.Errorf("determinism violated: %v/%v vs %v/%v", c1.Hash(), c1.HashAlgorithm(), c2.Hash(), c2.HashAlgorithm())
	}
}

func TestTimestampMonotonic(t *testing.T) {
	c1, _ := New(TextContent("a"), hashalgo.SHA256, "UTC")
	c2, _ := New(TextContent("b"), hashalgo.SHA256, "UTC")
	t1, _ := c1.GTime().Timestamp()
	t2, _ := c2.GTime().Timestamp()
	if t1 > t2 {
		t.Errorf("timestamps not monotonic: %v > %v", t1, t2)
	}
}

func TestFromRowDetectsContentType(t *testing.T) {
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, []byte("restofpng")...)
	g := gtime.GTime("md5|2023-01-01T12:00:00.000000Z|REGION")
	c, err := FromRow(png, "abc", g)
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}
	ct, ok := c.ContentType()
	if !ok || ct != "image/png" {
		t.Errorf("ContentType() = %v, %v, want image/png, true", ct, ok)
	}
}

func TestFromRowRequiresWellFormedGTime(t *testing.T) {
	_, err := FromRow([]byte("x"), "abc", gtime.GTime("not-a-gtime"))
	if !cerr.Of(err, cerr.InvalidArgument) {
		t.Fatalf("FromRow() error = %v, want InvalidArgument", err)
	}
}

func TestEqualsIsDigestEquality(t *testing.T) {
	g := gtime.GTime("sha256|2023-01-01T12:00:00.000000Z|UTC")
	a, err := FromRow([]byte("bytes one"), "samehash", g)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromRow([]byte("totally different bytes"), "samehash", g)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equals(b) {
		t.Error("Equals() = false, want true for matching hashes regardless of bytes")
	}
}

func TestContentAsTextOnlyForTextOrTextPlain(t *testing.T) {
	bin, err := New(BytesContent([]byte{0x00, 0x01, 0x02, 0x03, 0x04}), hashalgo.SHA256, "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := bin.ContentAsText(); ok {
		t.Error("ContentAsText() ok = true for raw binary bytes content")
	}

	txt, err := New(TextContent("hi"), hashalgo.SHA256, "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := txt.ContentAsText(); !ok || s != "hi" {
		t.Errorf("ContentAsText() = %q, %v, want hi, true", s, ok)
	}
}
