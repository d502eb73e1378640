// Package card implements the immutable card model: normalization of
// caller-supplied content into canonical bytes, digesting those bytes
// under a named hash algorithm, and stamping the result with a GTime.
package card

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/gtime"
	"github.com/cardvault/cardvault/hashalgo"
)

// Card is an immutable triple of canonical content bytes, a hash digest of
// those bytes, and a GTime stamp whose algorithm field names the hash
// algorithm used. Cards constructed from persisted rows additionally carry
// a coarse content type.
type Card struct {
	contentBytes []byte
	hash         string
	algorithm    hashalgo.Algorithm
	gtime        gtime.GTime
	contentType  string
	hasType      bool
	text         string
	hasText      bool
}

// New normalizes content to canonical bytes, digests it under alg (or
// hashalgo.Default if alg is empty), and stamps it with the current wall
// clock tagged with region.
func New(c Content, alg hashalgo.Algorithm, region string) (Card, error) {
	if alg == "" {
		alg = hashalgo.Default
	}
	if !hashalgo.Valid(alg) {
		return Card{}, cerr.New(cerr.UnknownAlgorithm, "unknown hash algorithm: "+string(alg))
	}

	b, text, hasText, err := normalize(c)
	if err != nil {
		return Card{}, err
	}
	if len(b) == 0 {
		return Card{}, cerr.New(cerr.EmptyContent, "content normalizes to zero bytes")
	}

	hash, err := hashalgo.Digest(alg, b)
	if err != nil {
		return Card{}, err
	}

	return Card{
		contentBytes: b,
		hash:         hash,
		algorithm:    alg,
		gtime:        gtime.StampNow(alg, region),
		text:         text,
		hasText:      hasText,
	}, nil
}

// normalize converts a Content value into canonical bytes: bytes used
// as-is, text UTF-8 encoded, objects serialized to canonical JSON (empty
// objects rejected), and the zero Content (Kind unset with no payload at
// all) rejected as InvalidContent.
func normalize(c Content) (b []byte, text string, hasText bool, err error) {
	switch c.Kind {
	case KindBytes:
		return c.Bytes, "", false, nil
	case KindText:
		return []byte(c.Text), c.Text, true, nil
	case KindObject:
		if len(c.Object) == 0 {
			return nil, "", false, cerr.New(cerr.InvalidContent, "object content must not be empty")
		}
		out, err := json.Marshal(c.Object)
		if err != nil {
			return nil, "", false, cerr.Wrap(cerr.InvalidContent, "object content is not JSON-serializable", err)
		}
		return out, "", false, nil
	default:
		return nil, "", false, cerr.New(cerr.InvalidContent, "content has no recognized variant")
	}
}

// FromRow reconstructs a Card from a persisted row. Unlike New, the digest
// is not recomputed: hash and g must already agree, and the caller (the
// engine) is trusted to have preserved that invariant.
func FromRow(contentBytes []byte, hash string, g gtime.GTime) (Card, error) {
	if len(contentBytes) == 0 {
		return Card{}, cerr.New(cerr.InvalidContent, "row content must be non-empty bytes")
	}
	if hash == "" {
		return Card{}, cerr.New(cerr.InvalidArgument, "row hash must not be empty")
	}
	if !g.IsValid() {
		return Card{}, cerr.New(cerr.InvalidArgument, "row g_time is malformed")
	}
	alg, err := g.Algorithm()
	if err != nil {
		return Card{}, err
	}

	ctype := classify(contentBytes)

	return Card{
		contentBytes: contentBytes,
		hash:         hash,
		algorithm:    alg,
		gtime:        g,
		contentType:  ctype,
		hasType:      true,
		text:         string(contentBytes),
		hasText:      utf8.Valid(contentBytes) && ctype == "text/plain",
	}, nil
}

// ContentBytes returns the card's canonical content bytes. Always
// available, regardless of how the card was constructed.
func (c Card) ContentBytes() []byte { return c.contentBytes }

// ContentAsText returns the card's content decoded as text, and true, only
// when the card was built from text content or its detected content type
// is text/plain. Otherwise it returns ("", false).
func (c Card) ContentAsText() (string, bool) {
	if c.hasText {
		return c.text, true
	}
	return "", false
}

// Hash returns the lowercase hex digest of ContentBytes() under
// HashAlgorithm().
func (c Card) Hash() string { return c.hash }

// HashAlgorithm returns the algorithm the card's hash was computed under.
func (c Card) HashAlgorithm() hashalgo.Algorithm { return c.algorithm }

// GTime returns the card's ingestion timestamp.
func (c Card) GTime() gtime.GTime { return c.gtime }

// ContentType returns the card's coarse MIME classification and true, but
// only for cards reconstructed via FromRow; freshly constructed cards
// carry no content type until they round-trip through an engine.
func (c Card) ContentType() (string, bool) {
	if c.hasType {
		return c.contentType, true
	}
	return "", false
}

// Equals implements the digest-equality contract: two cards are equal iff
// their hashes match, regardless of their content bytes. This is
// deliberately not byte equality — resolving the rare case where digests
// collide on different bytes is the collection's job, not the card's.
func (c Card) Equals(other Card) bool {
	return c.hash == other.hash
}

// ToDict returns a plain map view of the card's fields, suitable for
// logging or embedding in an event payload's context.
func (c Card) ToDict() map[string]any {
	m := map[string]any{
		"hash":          c.hash,
		"hash_algorithm": string(c.algorithm),
		"g_time":        string(c.gtime),
	}
	if c.hasType {
		m["content_type"] = c.contentType
	}
	return m
}
