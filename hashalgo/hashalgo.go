// Package hashalgo implements the closed hash-algorithm hierarchy cards are
// digested under: a named set of algorithms ordered by digest length, with
// an upgrade function that steps to the next strictly stronger algorithm.
package hashalgo

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/cardvault/cardvault/cerr"
)

// Algorithm is the name of one member of the closed hash-algorithm set.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA224 Algorithm = "sha224"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// Default is the algorithm new cards are digested under when the caller
// doesn't specify one. Production call sites should prefer the algorithm
// carried in internal/config.Config rather than this constant directly;
// Default exists so packages with no config dependency (card, collection)
// have a single well-known fallback.
const Default = SHA256

// order lists every algorithm weakest to strongest. Upgrade walks this
// slice; DigestLen/Digest/Valid all key off the same table.
var order = []Algorithm{MD5, SHA1, SHA224, SHA256, SHA384, SHA512}

var digestLen = map[Algorithm]int{
	MD5:    16,
	SHA1:   20,
	SHA224: 28,
	SHA256: 32,
	SHA384: 48,
	SHA512: 64,
}

// Valid reports whether a is one of the six supported algorithm names.
func Valid(a Algorithm) bool {
	_, ok := digestLen[a]
	return ok
}

// All returns every supported algorithm, ordered weakest to strongest.
func All() []Algorithm {
	out := make([]Algorithm, len(order))
	copy(out, order)
	return out
}

// DigestLen returns the raw (non-hex) digest length in bytes for a.
func DigestLen(a Algorithm) (int, error) {
	n, ok := digestLen[a]
	if !ok {
		return 0, cerr.New(cerr.UnknownAlgorithm, fmt.Sprintf("unknown hash algorithm %q", a))
	}
	return n, nil
}

// Digest returns the lowercase hex digest of b under algorithm a.
func Digest(a Algorithm, b []byte) (string, error) {
	switch a {
	case MD5:
		sum := md5.Sum(b)
		return hex.EncodeToString(sum[:]), nil
	case SHA1:
		sum := sha1.Sum(b)
		return hex.EncodeToString(sum[:]), nil
	case SHA224:
		sum := sha256.Sum224(b)
		return hex.EncodeToString(sum[:]), nil
	case SHA256:
		sum := sha256.Sum256(b)
		return hex.EncodeToString(sum[:]), nil
	case SHA384:
		sum := sha512.Sum384(b)
		return hex.EncodeToString(sum[:]), nil
	case SHA512:
		sum := sha512.Sum512(b)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", cerr.New(cerr.UnknownAlgorithm, fmt.Sprintf("unknown hash algorithm %q", a))
	}
}

// Upgrade returns the next strictly stronger algorithm than a,
// cerr.NoStrongerAlgorithm if a is already the strongest in the hierarchy,
// or cerr.UnknownAlgorithm if a isn't a recognized algorithm at all.
func Upgrade(a Algorithm) (Algorithm, error) {
	for i, cur := range order {
		if cur == a {
			if i+1 >= len(order) {
				return "", cerr.New(cerr.NoStrongerAlgorithm, fmt.Sprintf("no algorithm stronger than %q", a))
			}
			return order[i+1], nil
		}
	}
	return "", cerr.New(cerr.UnknownAlgorithm, fmt.Sprintf("unknown hash algorithm %q", a))
}
