// Package event defines the side-channel notification payloads emitted
// when a card is ingested as a duplicate or triggers a hash collision.
package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cardvault/cardvault/card"
	"github.com/cardvault/cardvault/gtime"
)

// Type identifies the kind of notable ingestion outcome a Payload reports.
type Type string

const (
	TypeDuplicate Type = "duplicate"
	TypeCollision Type = "collision"
)

// Payload is the notification body published when Collection.Add
// observes a duplicate card or a hash collision between two distinct
// contents. Algorithm is populated for duplicates (the single algorithm
// both observations share); Algorithms is populated for collisions (the
// existing card's algorithm followed by the upgraded one).
type Payload struct {
	EventType  Type           `json:"event_type"`
	Timestamp  gtime.GTime    `json:"timestamp"`
	Hashes     []string       `json:"hashes"`
	Algorithm  string         `json:"algorithm,omitempty"`
	Algorithms []string       `json:"algorithms,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// Duplicate builds the payload for a card that was re-ingested with
// identical content and therefore hashed to an identical digest.
func Duplicate(original card.Card) Payload {
	return Payload{
		EventType: TypeDuplicate,
		Timestamp: original.GTime(),
		Hashes:    []string{original.Hash()},
		Algorithm: string(original.HashAlgorithm()),
	}
}

// Collision builds the payload for two cards whose content differs but
// whose digests under some algorithm coincided, forcing an upgrade.
func Collision(newCard, existingCard card.Card) Payload {
	return Payload{
		EventType: TypeCollision,
		Timestamp: newCard.GTime(),
		Hashes:    []string{existingCard.Hash(), newCard.Hash()},
		Algorithms: []string{
			string(existingCard.HashAlgorithm()),
			string(newCard.HashAlgorithm()),
		},
	}
}

// MarshalJSON renders the payload using its json tags directly; it is
// defined explicitly so callers can rely on event.Payload satisfying
// json.Marshaler regardless of future field additions.
func (p Payload) MarshalJSON() ([]byte, error) {
	type wire Payload
	return json.Marshal(wire(p))
}

// schemaJSON is the single fixed JSON Schema every outgoing payload is
// checked against before publication — a guard against a future field
// being dropped or mistyped silently on the way out.
const schemaJSON = `{
	"type": "object",
	"required": ["event_type", "timestamp", "hashes"],
	"properties": {
		"event_type": {"type": "string", "enum": ["duplicate", "collision"]},
		"timestamp": {"type": "string"},
		"hashes": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"algorithm": {"type": "string"},
		"algorithms": {"type": "array", "items": {"type": "string"}},
		"context": {"type": "object"}
	}
}`

var compiledSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("event: invalid payload schema: %v", err))
	}
	compiledSchema = schema
}

// Validate checks p against the fixed payload schema, returning a
// descriptive error naming every violation found.
func Validate(p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("event: marshal payload: %w", err)
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("event: validation error: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("event: payload invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}
