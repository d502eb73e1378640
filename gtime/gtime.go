// Package gtime implements the GTime stamp: a string encoding both the
// hash algorithm a card was digested under and the moment of ingestion,
// in the wire form ALG|ISO8601|REGION.
package gtime

import (
	"strings"
	"time"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/hashalgo"
)

// isoLayout is the canonical YYYY-MM-DDTHH:MM:SS.ffffffZ form, always UTC.
const isoLayout = "2006-01-02T15:04:05.000000Z"

// GTime is a structured timestamp string, ALG|ISO8601|REGION.
type GTime string

// StampNow produces a GTime for algorithm a, timestamped at the current
// wall clock, tagged with region. Callers needing a deterministic instant
// should format one directly with Format instead.
func StampNow(a hashalgo.Algorithm, region string) GTime {
	return Format(a, time.Now().UTC(), region)
}

// Format builds a GTime from an explicit algorithm, instant, and region.
func Format(a hashalgo.Algorithm, t time.Time, region string) GTime {
	return GTime(string(a) + "|" + t.UTC().Format(isoLayout) + "|" + region)
}

// split breaks g into its three fields, splitting on '|' at most twice so
// a region tag may itself never contain '|'.
func split(g GTime) ([]string, error) {
	parts := strings.SplitN(string(g), "|", 3)
	if len(parts) != 3 {
		return nil, cerr.New(cerr.InvalidArgument, "malformed g_time: expected ALG|ISO|REGION")
	}
	return parts, nil
}

// Algorithm returns the algorithm field of g.
func (g GTime) Algorithm() (hashalgo.Algorithm, error) {
	parts, err := split(g)
	if err != nil {
		return "", err
	}
	a := hashalgo.Algorithm(parts[0])
	if !hashalgo.Valid(a) {
		return "", cerr.New(cerr.UnknownAlgorithm, "g_time names an unknown algorithm")
	}
	return a, nil
}

// Timestamp returns the ISO8601 field of g.
func (g GTime) Timestamp() (string, error) {
	parts, err := split(g)
	if err != nil {
		return "", err
	}
	return parts[1], nil
}

// Region returns the region field of g.
func (g GTime) Region() (string, error) {
	parts, err := split(g)
	if err != nil {
		return "", err
	}
	return parts[2], nil
}

// IsValid reports whether g splits into three well-formed fields with a
// recognized algorithm and a canonical ISO timestamp.
func (g GTime) IsValid() bool {
	parts, err := split(g)
	if err != nil {
		return false
	}
	if !hashalgo.Valid(hashalgo.Algorithm(parts[0])) {
		return false
	}
	return IsISOFormat(parts[1])
}

// IsISOFormat reports whether s is exactly YYYY-MM-DDTHH:MM:SS.ffffffZ.
func IsISOFormat(s string) bool {
	_, err := time.Parse(isoLayout, s)
	return err == nil
}
