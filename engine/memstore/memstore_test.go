package memstore

import (
	"context"
	"testing"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/gtime"
)

func TestAddGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	row := engine.Row{Hash: "h1", GTime: gtime.GTime("sha256|2023-01-01T00:00:00.000000Z|UTC"), Content: []byte("hello")}

	if err := s.Add(ctx, row); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, ok, err := s.Get(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", got, ok, err)
	}
	if string(got.Content) != "hello" {
		t.Errorf("Get() content = %q", got.Content)
	}
}

func TestAddDuplicateHashConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	row := engine.Row{Hash: "h1", GTime: gtime.GTime("sha256|2023-01-01T00:00:00.000000Z|UTC"), Content: []byte("a")}

	if err := s.Add(ctx, row); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, row); err != engine.ErrHashConflict {
		t.Errorf("second Add() error = %v, want ErrHashConflict", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	ok, err := s.Delete(ctx, "missing")
	if err != nil || ok {
		t.Errorf("Delete() missing = %v, %v, want false, nil", ok, err)
	}
}

func TestGetPageOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Add(ctx, engine.Row{Hash: "h1", GTime: gtime.GTime("sha256|2023-01-01T00:00:00.000000Z|UTC"), Content: []byte("a")}); err != nil {
		t.Fatal(err)
	}
	_, err := s.GetPage(ctx, 5, 10)
	if !cerr.Of(err, cerr.PageOutOfRange) {
		t.Errorf("GetPage() error = %v, want PageOutOfRange", err)
	}
}

func TestGetPageStableOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, h := range []string{"h1", "h2", "h3"} {
		_ = i
		if err := s.Add(ctx, engine.Row{Hash: h, GTime: gtime.GTime("sha256|2023-01-01T00:00:00.000000Z|UTC"), Content: []byte(h)}); err != nil {
			t.Fatal(err)
		}
	}
	p, err := s.GetPage(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Items) != 3 || p.Items[0].Hash != "h1" || p.Items[2].Hash != "h3" {
		t.Errorf("GetPage() items = %+v, want insertion order h1,h2,h3", p.Items)
	}
}

func TestSearchByContent(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Add(ctx, engine.Row{Hash: "h1", GTime: gtime.GTime("sha256|2023-01-01T00:00:00.000000Z|UTC"), Content: []byte("needle in haystack")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, engine.Row{Hash: "h2", GTime: gtime.GTime("sha256|2023-01-01T00:00:00.000000Z|UTC"), Content: []byte("nothing here")}); err != nil {
		t.Fatal(err)
	}
	p, err := s.SearchByContent(ctx, "needle", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Items) != 1 || p.Items[0].Hash != "h1" {
		t.Errorf("SearchByContent() items = %+v", p.Items)
	}
}
