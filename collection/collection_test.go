package collection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cardvault/cardvault/card"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/memstore"
	"github.com/cardvault/cardvault/hashalgo"
)

func mustCard(t *testing.T, text string, alg hashalgo.Algorithm) card.Card {
	t.Helper()
	c, err := card.New(card.TextContent(text), alg, "US")
	if err != nil {
		t.Fatalf("card.New() error = %v", err)
	}
	return c
}

func TestAddInsertsOnFirstSight(t *testing.T) {
	ctx := context.Background()
	col := New(memstore.New())

	c := mustCard(t, "Hello, World!", hashalgo.SHA256)
	hash, err := col.Add(ctx, c)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if hash != c.Hash() {
		t.Errorf("Add() = %q, want %q", hash, c.Hash())
	}
	n, err := col.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v, want 1, nil", n, err)
	}
}

// Scenario 5 of the card-constructor spec: re-adding byte-identical
// content stores a duplicate event card, not the original again.
func TestAddDuplicateWritesEventCard(t *testing.T) {
	ctx := context.Background()
	col := New(memstore.New())

	c1 := mustCard(t, "A", hashalgo.SHA256)
	h1, err := col.Add(ctx, c1)
	if err != nil {
		t.Fatalf("first Add() error = %v", err)
	}

	c2 := mustCard(t, "A", hashalgo.SHA256)
	h2, err := col.Add(ctx, c2)
	if err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	if h2 == h1 {
		t.Fatalf("Add() duplicate returned original hash %q, want a distinct event-card hash", h1)
	}

	eventCard, err := col.Get(ctx, h2)
	if err != nil {
		t.Fatalf("Get() event card error = %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(eventCard.ContentBytes(), &payload); err != nil {
		t.Fatalf("event card content is not JSON: %v", err)
	}
	if payload["event_type"] != "duplicate" {
		t.Errorf("event_type = %v, want duplicate", payload["event_type"])
	}

	n, err := col.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count() = %d, %v, want 2, nil", n, err)
	}
}

// Scenario 6: a forced hash collision (identical hash, distinct bytes)
// upgrades the algorithm and writes a collision event card.
func TestAddCollisionUpgradesAlgorithm(t *testing.T) {
	ctx := context.Background()
	eng := memstore.New()
	col := New(eng)

	original, err := card.New(card.BytesContent([]byte("b1")), hashalgo.SHA256, "US")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Add(ctx, engine.Row{Hash: original.Hash(), GTime: original.GTime(), Content: original.ContentBytes()}); err != nil {
		t.Fatal(err)
	}

	forced, err := card.FromRow([]byte("b2"), original.Hash(), original.GTime())
	if err != nil {
		t.Fatal(err)
	}

	hash, err := col.Add(ctx, forced)
	if err != nil {
		t.Fatalf("Add() collision error = %v", err)
	}

	eventCard, err := col.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get() event card error = %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(eventCard.ContentBytes(), &payload); err != nil {
		t.Fatalf("event card content is not JSON: %v", err)
	}
	if payload["event_type"] != "collision" {
		t.Errorf("event_type = %v, want collision", payload["event_type"])
	}

	n, err := col.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count() = %d, %v, want 3 (original + upgraded + event)", n, err)
	}
}

func TestAddCollisionRespectsWithoutStaleCardRetention(t *testing.T) {
	ctx := context.Background()
	eng := memstore.New()
	col := New(eng, WithoutStaleCardRetention(true))

	original, err := card.New(card.BytesContent([]byte("b1")), hashalgo.SHA256, "US")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Add(ctx, engine.Row{Hash: original.Hash(), GTime: original.GTime(), Content: original.ContentBytes()}); err != nil {
		t.Fatal(err)
	}

	forced, err := card.FromRow([]byte("b2"), original.Hash(), original.GTime())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := col.Add(ctx, forced); err != nil {
		t.Fatalf("Add() collision error = %v", err)
	}

	if _, err := col.Get(ctx, original.Hash()); err != engine.ErrNotFound {
		t.Errorf("Get() original after drop = %v, want ErrNotFound", err)
	}
}

func TestGetReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	col := New(memstore.New())
	if _, err := col.Get(ctx, "missing"); err != engine.ErrNotFound {
		t.Errorf("Get() missing error = %v, want ErrNotFound", err)
	}
}

func TestUpdateReturnsFalseForMissingHash(t *testing.T) {
	ctx := context.Background()
	col := New(memstore.New())
	ok, err := col.Update(ctx, "missing", []byte("x"))
	if err != nil || ok {
		t.Errorf("Update() missing = %v, %v, want false, nil", ok, err)
	}
}

func TestSearchByHashRejectsEmptyHash(t *testing.T) {
	ctx := context.Background()
	col := New(memstore.New())
	if _, err := col.SearchByHash(ctx, "", 1, 10); err == nil {
		t.Error("SearchByHash() with empty hash = nil error, want InvalidArgument")
	}
}

func TestGetPageRejectsInvalidArguments(t *testing.T) {
	ctx := context.Background()
	col := New(memstore.New())
	if _, err := col.GetPage(ctx, 0, 10); err == nil {
		t.Error("GetPage() page_number=0 = nil error, want InvalidArgument")
	}
	if _, err := col.GetPage(ctx, 1, 0); err == nil {
		t.Error("GetPage() page_size=0 = nil error, want InvalidArgument")
	}
}

// A collision forced on a card already at the top of the hash-algorithm
// hierarchy fails fast with NoStrongerAlgorithm instead of recursing.
func TestCollisionAtTopOfHierarchyFailsFast(t *testing.T) {
	ctx := context.Background()
	eng := memstore.New()
	col := New(eng)

	original, err := card.New(card.BytesContent([]byte("b1")), hashalgo.SHA512, "US")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Add(ctx, engine.Row{Hash: original.Hash(), GTime: original.GTime(), Content: original.ContentBytes()}); err != nil {
		t.Fatal(err)
	}

	forced, err := card.FromRow([]byte("b2"), original.Hash(), original.GTime())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := col.Add(ctx, forced); err == nil {
		t.Error("Add() collision past sha512 = nil error, want NoStrongerAlgorithm")
	}
}
