// Package enginetest is a conformance suite run against every
// engine.Engine implementation, so properties that must hold for all
// backends (pagination math, round-tripping through the engine boundary)
// are checked once per backend instead of duplicated per package.
package enginetest

import (
	"context"
	"testing"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/gtime"
)

// Factory constructs a fresh, empty engine for one test case. Each
// call must return an engine isolated from any other call's state.
type Factory func(t *testing.T) engine.Engine

func row(hash, content string) engine.Row {
	return engine.Row{
		Hash:    hash,
		GTime:   gtime.GTime("sha256|2023-01-01T00:00:00.000000Z|UTC"),
		Content: []byte(content),
	}
}

// Run executes the full conformance suite against the engine returned
// by newEngine.
func Run(t *testing.T, newEngine Factory) {
	t.Run("AddGetRoundTrip", func(t *testing.T) { testAddGetRoundTrip(t, newEngine) })
	t.Run("AddConflict", func(t *testing.T) { testAddConflict(t, newEngine) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newEngine) })
	t.Run("DeleteRemoves", func(t *testing.T) { testDeleteRemoves(t, newEngine) })
	t.Run("DeleteMissingIsFalse", func(t *testing.T) { testDeleteMissingIsFalse(t, newEngine) })
	t.Run("UpdateMissingIsNotFound", func(t *testing.T) { testUpdateMissingIsNotFound(t, newEngine) })
	t.Run("UpdateChangesContent", func(t *testing.T) { testUpdateChangesContent(t, newEngine) })
	t.Run("CountTracksAddAndDelete", func(t *testing.T) { testCountTracksAddAndDelete(t, newEngine) })
	t.Run("ClearEmptiesEngine", func(t *testing.T) { testClearEmptiesEngine(t, newEngine) })
	t.Run("PageMathAndOrder", func(t *testing.T) { testPageMathAndOrder(t, newEngine) })
	t.Run("PageOutOfRange", func(t *testing.T) { testPageOutOfRange(t, newEngine) })
	t.Run("SearchByContentFilters", func(t *testing.T) { testSearchByContentFilters(t, newEngine) })
}

func testAddGetRoundTrip(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	r := row("h1", "hello world")
	if err := e.Add(ctx, r); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	got, ok, err := e.Get(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", got, ok, err)
	}
	if string(got.Content) != "hello world" {
		t.Errorf("Get() content = %q, want %q", got.Content, "hello world")
	}
	if got.GTime != r.GTime {
		t.Errorf("Get() g_time = %v, want %v", got.GTime, r.GTime)
	}
}

func testAddConflict(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	r := row("h1", "a")
	if err := e.Add(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := e.Add(ctx, r); err != engine.ErrHashConflict {
		t.Errorf("second Add() error = %v, want ErrHashConflict", err)
	}
}

func testGetMissing(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	_, ok, err := e.Get(ctx, "missing")
	if err != nil || ok {
		t.Errorf("Get() missing = ok:%v err:%v, want ok:false err:nil", ok, err)
	}
}

func testDeleteRemoves(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	if err := e.Add(ctx, row("h1", "a")); err != nil {
		t.Fatal(err)
	}
	ok, err := e.Delete(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v, want true, nil", ok, err)
	}
	_, ok, err = e.Get(ctx, "h1")
	if err != nil || ok {
		t.Errorf("Get() after Delete() = ok:%v err:%v, want ok:false err:nil", ok, err)
	}
}

func testDeleteMissingIsFalse(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	ok, err := e.Delete(ctx, "missing")
	if err != nil || ok {
		t.Errorf("Delete() missing = %v, %v, want false, nil", ok, err)
	}
}

func testUpdateMissingIsNotFound(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	if err := e.Update(ctx, "missing", []byte("x")); err != engine.ErrNotFound {
		t.Errorf("Update() missing error = %v, want ErrNotFound", err)
	}
}

func testUpdateChangesContent(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	if err := e.Add(ctx, row("h1", "old")); err != nil {
		t.Fatal(err)
	}
	if err := e.Update(ctx, "h1", []byte("new")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, ok, err := e.Get(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("Get() after Update() = %v, %v, %v", got, ok, err)
	}
	if string(got.Content) != "new" {
		t.Errorf("Get() content after Update() = %q, want %q", got.Content, "new")
	}
}

func testCountTracksAddAndDelete(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	if n, err := e.Count(ctx); err != nil || n != 0 {
		t.Fatalf("Count() initial = %d, %v, want 0, nil", n, err)
	}
	if err := e.Add(ctx, row("h1", "a")); err != nil {
		t.Fatal(err)
	}
	if err := e.Add(ctx, row("h2", "b")); err != nil {
		t.Fatal(err)
	}
	if n, err := e.Count(ctx); err != nil || n != 2 {
		t.Fatalf("Count() after two Add() = %d, %v, want 2, nil", n, err)
	}
	if _, err := e.Delete(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if n, err := e.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count() after Delete() = %d, %v, want 1, nil", n, err)
	}
}

func testClearEmptiesEngine(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	if err := e.Add(ctx, row("h1", "a")); err != nil {
		t.Fatal(err)
	}
	if err := e.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, err := e.Count(ctx); err != nil || n != 0 {
		t.Fatalf("Count() after Clear() = %d, %v, want 0, nil", n, err)
	}
}

func testPageMathAndOrder(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	hashes := []string{"h1", "h2", "h3", "h4", "h5"}
	for _, h := range hashes {
		if err := e.Add(ctx, row(h, h)); err != nil {
			t.Fatal(err)
		}
	}

	p, err := e.GetPage(ctx, 1, 2)
	if err != nil {
		t.Fatalf("GetPage(1,2) error = %v", err)
	}
	if p.TotalItems != 5 || p.TotalPages != 3 {
		t.Errorf("GetPage(1,2) totals = %d/%d, want 5/3", p.TotalItems, p.TotalPages)
	}
	if !p.HasNext || p.HasPrevious {
		t.Errorf("GetPage(1,2) HasNext=%v HasPrevious=%v, want true,false", p.HasNext, p.HasPrevious)
	}
	if len(p.Items) != 2 {
		t.Errorf("GetPage(1,2) items = %d, want 2", len(p.Items))
	} else if p.Items[0].Hash != "h1" || p.Items[1].Hash != "h2" {
		t.Errorf("GetPage(1,2) hashes = %s,%s, want insertion order h1,h2", p.Items[0].Hash, p.Items[1].Hash)
	}

	last, err := e.GetPage(ctx, 3, 2)
	if err != nil {
		t.Fatalf("GetPage(3,2) error = %v", err)
	}
	if last.HasNext {
		t.Errorf("GetPage(3,2) HasNext = true, want false")
	}
	if len(last.Items) != 1 {
		t.Errorf("GetPage(3,2) items = %d, want 1", len(last.Items))
	} else if last.Items[0].Hash != "h5" {
		t.Errorf("GetPage(3,2) hash = %s, want h5", last.Items[0].Hash)
	}
}

func testPageOutOfRange(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	if err := e.Add(ctx, row("h1", "a")); err != nil {
		t.Fatal(err)
	}
	_, err := e.GetPage(ctx, 99, 10)
	if !cerr.Of(err, cerr.PageOutOfRange) {
		t.Errorf("GetPage() out-of-range error = %v, want PageOutOfRange", err)
	}
}

func testSearchByContentFilters(t *testing.T, newEngine Factory) {
	ctx := context.Background()
	e := newEngine(t)
	if err := e.Add(ctx, row("h1", "needle in haystack")); err != nil {
		t.Fatal(err)
	}
	if err := e.Add(ctx, row("h2", "nothing interesting")); err != nil {
		t.Fatal(err)
	}
	p, err := e.SearchByContent(ctx, "needle", 1, 10)
	if err != nil {
		t.Fatalf("SearchByContent() error = %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].Hash != "h1" {
		t.Errorf("SearchByContent() items = %+v, want only h1", p.Items)
	}
}
