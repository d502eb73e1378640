// Package collection implements the ingestion protocol that sits
// between the card model and a pluggable storage engine: duplicate
// detection, collision-triggered algorithm upgrade, and event-card
// emission, wrapped with metrics and tracing instrumentation.
package collection

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardvault/cardvault/card"
	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/page"
	"github.com/cardvault/cardvault/event"
	"github.com/cardvault/cardvault/gtime"
	"github.com/cardvault/cardvault/hashalgo"
	"github.com/cardvault/cardvault/internal/metrics"
)

// Notifier receives a best-effort copy of every duplicate/collision
// event payload the collection emits. A Notifier error is logged, not
// returned to the caller of Add — the event card is already durably
// written by the time Notify is called.
type Notifier interface {
	Notify(ctx context.Context, payload event.Payload) error
}

// Collection enforces the ingestion invariants of the card model on
// top of an Engine. It holds no mutable state of its own beyond the
// engine reference and the optional collaborators wired in via Option.
type Collection struct {
	engine           engine.Engine
	notifier         Notifier
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	retainStaleCards bool
}

// Option configures a Collection at construction time.
type Option func(*Collection)

// WithNotifier wires a side-channel publisher for duplicate/collision
// event payloads.
func WithNotifier(n Notifier) Option {
	return func(c *Collection) { c.notifier = n }
}

// WithMetrics wires prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collection) { c.metrics = m }
}

// WithTracer wires an OpenTelemetry tracer; each Add becomes one span.
// The collection starts no separate spans for the engine calls it makes.
func WithTracer(t trace.Tracer) Option {
	return func(c *Collection) { c.tracer = t }
}

// WithoutStaleCardRetention controls what happens to the original,
// weaker-algorithm card after a collision upgrade. drop=false is the
// default applied by New even if this option is never used, and
// preserves the original behavior: both the original and the upgraded
// card stay discoverable under their own hashes. drop=true makes the
// collision branch delete the original card once the upgraded card and
// the collision event card have both been written successfully.
func WithoutStaleCardRetention(drop bool) Option {
	return func(c *Collection) { c.retainStaleCards = !drop }
}

// New builds a Collection over e, applying opts in order.
func New(e engine.Engine, opts ...Option) *Collection {
	c := &Collection{engine: e, retainStaleCards: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add implements the ingestion protocol: insert on first sight,
// duplicate-event on a byte-identical resubmission, and a
// collision-triggered algorithm upgrade plus collision event when the
// same hash is claimed by two different byte strings. It returns the
// hash that now identifies the newly durable row — the card's own hash
// on insert, or the written event card's hash on duplicate/collision.
func (c *Collection) Add(ctx context.Context, crd card.Card) (string, error) {
	ctx, span := c.startSpan(ctx, "Add")
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() { c.observeCollection("add", outcome, start) }()

	existingRow, found, err := c.engine.Get(ctx, crd.Hash())
	if err != nil {
		return "", c.fail(span, cerr.Wrap(cerr.EngineFailure, "collection: get existing row", err))
	}

	if !found {
		if err := c.engineAdd(ctx, crd); err != nil {
			return "", c.fail(span, err)
		}
		outcome = "insert"
		return crd.Hash(), nil
	}

	existing, err := card.FromRow(existingRow.Content, existingRow.Hash, existingRow.GTime)
	if err != nil {
		return "", c.fail(span, cerr.Wrap(cerr.EngineFailure, "collection: reconstruct existing card", err))
	}

	if bytes.Equal(existing.ContentBytes(), crd.ContentBytes()) {
		hash, err := c.handleDuplicate(ctx, existing)
		if err != nil {
			return "", c.fail(span, err)
		}
		outcome = "duplicate"
		return hash, nil
	}

	hash, err := c.handleCollision(ctx, crd, existing)
	if err != nil {
		return "", c.fail(span, err)
	}
	outcome = "collision"
	return hash, nil
}

func (c *Collection) handleDuplicate(ctx context.Context, existing card.Card) (string, error) {
	payload := event.Duplicate(existing)
	hash, err := c.writeEventCard(ctx, regionOf(existing.GTime()), payload)
	if err != nil {
		return "", err
	}
	c.notify(ctx, payload)
	return hash, nil
}

func (c *Collection) handleCollision(ctx context.Context, incoming, existing card.Card) (string, error) {
	upgradedAlgo, err := hashalgo.Upgrade(incoming.HashAlgorithm())
	if err != nil {
		return "", err
	}

	upgraded, err := card.New(card.BytesContent(incoming.ContentBytes()), upgradedAlgo, regionOf(incoming.GTime()))
	if err != nil {
		return "", cerr.Wrap(cerr.UpgradeFailed, "collection: construct upgraded card", err)
	}

	oldLen, err := hashalgo.DigestLen(incoming.HashAlgorithm())
	if err != nil {
		return "", cerr.Wrap(cerr.UpgradeFailed, "collection: digest length of original algorithm", err)
	}
	newLen, err := hashalgo.DigestLen(upgraded.HashAlgorithm())
	if err != nil {
		return "", cerr.Wrap(cerr.UpgradeFailed, "collection: digest length of upgraded algorithm", err)
	}
	if upgraded.HashAlgorithm() == incoming.HashAlgorithm() || newLen <= oldLen {
		return "", cerr.New(cerr.UpgradeFailed, "collection: upgrade did not produce a strictly stronger algorithm")
	}

	if err := c.engineAdd(ctx, upgraded); err != nil {
		return "", err
	}

	payload := event.Collision(upgraded, existing)
	hash, err := c.writeEventCard(ctx, regionOf(incoming.GTime()), payload)
	if err != nil {
		return "", err
	}

	if !c.retainStaleCards {
		if _, err := c.engine.Delete(ctx, existing.Hash()); err != nil {
			slog.Warn("collection: failed to drop stale card after collision upgrade", "hash", existing.Hash(), "error", err)
		}
	}

	c.notify(ctx, payload)
	return hash, nil
}

// writeEventCard marshals payload, validates it, wraps it as a card
// under the DEFAULT algorithm, and writes it through the engine —
// always strictly after the card whose outcome it describes.
func (c *Collection) writeEventCard(ctx context.Context, region string, payload event.Payload) (string, error) {
	if err := event.Validate(payload); err != nil {
		return "", cerr.Wrap(cerr.InvalidContent, "collection: event payload failed validation", err)
	}
	body, err := payload.MarshalJSON()
	if err != nil {
		return "", cerr.Wrap(cerr.InvalidContent, "collection: marshal event payload", err)
	}

	eventCard, err := card.New(card.BytesContent(body), hashalgo.Default, region)
	if err != nil {
		return "", cerr.Wrap(cerr.InvalidContent, "collection: build event card", err)
	}

	if err := c.engineAdd(ctx, eventCard); err != nil {
		return "", err
	}
	return eventCard.Hash(), nil
}

func (c *Collection) engineAdd(ctx context.Context, crd card.Card) error {
	start := time.Now()
	err := c.engine.Add(ctx, engine.Row{Hash: crd.Hash(), GTime: crd.GTime(), Content: crd.ContentBytes()})
	outcome := "ok"
	if err == engine.ErrHashConflict {
		outcome = "conflict"
		c.observeEngine("add", outcome, start)
		return cerr.Wrap(cerr.HashConflict, "collection: engine reported a hash conflict the collection did not detect", err)
	}
	if err != nil {
		outcome = "error"
		c.observeEngine("add", outcome, start)
		return cerr.Wrap(cerr.EngineFailure, "collection: engine add", err)
	}
	c.observeEngine("add", outcome, start)
	return nil
}

// Get returns the card stored under hash, or engine.ErrNotFound if no
// such row exists.
func (c *Collection) Get(ctx context.Context, hash string) (card.Card, error) {
	row, found, err := c.engine.Get(ctx, hash)
	if err != nil {
		return card.Card{}, cerr.Wrap(cerr.EngineFailure, "collection: get", err)
	}
	if !found {
		return card.Card{}, engine.ErrNotFound
	}
	return card.FromRow(row.Content, row.Hash, row.GTime)
}

// Delete removes the row bound to hash; deleting a missing hash
// returns false, not an error.
func (c *Collection) Delete(ctx context.Context, hash string) (bool, error) {
	ok, err := c.engine.Delete(ctx, hash)
	if err != nil {
		return false, cerr.Wrap(cerr.EngineFailure, "collection: delete", err)
	}
	return ok, nil
}

// Count returns the exact number of stored rows, cards and event cards
// alike.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	n, err := c.engine.Count(ctx)
	if err != nil {
		return 0, cerr.Wrap(cerr.EngineFailure, "collection: count", err)
	}
	return n, nil
}

// Clear removes every row.
func (c *Collection) Clear(ctx context.Context) error {
	if err := c.engine.Clear(ctx); err != nil {
		return cerr.Wrap(cerr.EngineFailure, "collection: clear", err)
	}
	return nil
}

// GetPage returns page n (1-indexed) of size rows, in insertion order.
func (c *Collection) GetPage(ctx context.Context, n, size int) (page.Page[card.Card], error) {
	if n < 1 || size < 1 {
		return page.Page[card.Card]{}, cerr.New(cerr.InvalidArgument, "collection: page_number and page_size must both be >= 1")
	}
	rows, err := c.engine.GetPage(ctx, n, size)
	if err != nil {
		return page.Page[card.Card]{}, err
	}
	return rowsToCardPage(rows)
}

// GetAll is an alias for GetPage, kept distinct because the collection
// protocol names both operations separately.
func (c *Collection) GetAll(ctx context.Context, n, size int) (page.Page[card.Card], error) {
	return c.GetPage(ctx, n, size)
}

// SearchByHash filters one page of engine rows by exact hash equality.
// It is collection-side filtering, not an indexed lookup — use Get for
// that.
func (c *Collection) SearchByHash(ctx context.Context, h string, n, size int) (page.Page[card.Card], error) {
	if h == "" {
		return page.Page[card.Card]{}, cerr.New(cerr.InvalidArgument, "collection: search hash must not be empty")
	}
	if n < 1 || size < 1 {
		return page.Page[card.Card]{}, cerr.New(cerr.InvalidArgument, "collection: page_number and page_size must both be >= 1")
	}

	rows, err := c.engine.GetPage(ctx, n, size)
	if err != nil {
		return page.Page[card.Card]{}, err
	}

	var matched []card.Card
	for _, row := range rows.Items {
		if row.Hash != h {
			continue
		}
		crd, err := card.FromRow(row.Content, row.Hash, row.GTime)
		if err != nil {
			return page.Page[card.Card]{}, cerr.Wrap(cerr.EngineFailure, "collection: reconstruct matched card", err)
		}
		matched = append(matched, crd)
	}

	return page.New(matched, int64(len(matched)), n, size), nil
}

// SearchByContent delegates a substring search to the engine.
func (c *Collection) SearchByContent(ctx context.Context, q string, n, size int) (page.Page[card.Card], error) {
	if q == "" {
		return page.Page[card.Card]{}, cerr.New(cerr.InvalidArgument, "collection: search query must not be empty")
	}
	if n < 1 || size < 1 {
		return page.Page[card.Card]{}, cerr.New(cerr.InvalidArgument, "collection: page_number and page_size must both be >= 1")
	}

	rows, err := c.engine.SearchByContent(ctx, q, n, size)
	if err != nil {
		return page.Page[card.Card]{}, err
	}
	return rowsToCardPage(rows)
}

// Update replaces the bytes bound to hash without re-digesting, a
// known hazard: afterward the row's hash no longer equals the digest
// of its content until it is deleted or replaced outright. It returns
// false, not an error, if no row is bound to hash.
func (c *Collection) Update(ctx context.Context, h string, newContent []byte) (bool, error) {
	err := c.engine.Update(ctx, h, newContent)
	if err == engine.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, cerr.Wrap(cerr.EngineFailure, "collection: update", err)
	}
	return true, nil
}

// regionOf reads the region tag off an already-constructed card's
// g_time. The card was built by card.New or card.FromRow, both of
// which reject malformed g_time values, so the error case here is
// unreachable in practice; it is treated as an empty region rather
// than threaded through Add's error path.
func regionOf(g gtime.GTime) string {
	region, err := g.Region()
	if err != nil {
		return ""
	}
	return region
}

func rowsToCardPage(rows page.Page[engine.Row]) (page.Page[card.Card], error) {
	cards := make([]card.Card, 0, len(rows.Items))
	for _, row := range rows.Items {
		crd, err := card.FromRow(row.Content, row.Hash, row.GTime)
		if err != nil {
			return page.Page[card.Card]{}, cerr.Wrap(cerr.EngineFailure, "collection: reconstruct card", err)
		}
		cards = append(cards, crd)
	}
	return page.Page[card.Card]{
		Items:        cards,
		TotalItems:   rows.TotalItems,
		PageNumber:   rows.PageNumber,
		PageSize:     rows.PageSize,
		TotalPages:   rows.TotalPages,
		HasNext:      rows.HasNext,
		HasPrevious:  rows.HasPrevious,
		NextPage:     rows.NextPage,
		PreviousPage: rows.PreviousPage,
	}, nil
}

func (c *Collection) notify(ctx context.Context, payload event.Payload) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, payload); err != nil {
		slog.Warn("collection: notify failed", "event_type", payload.EventType, "error", err)
	}
}

func (c *Collection) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return c.tracer.Start(ctx, "collection."+name)
}

func (c *Collection) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *Collection) observeCollection(op, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.CollectionOpTotal.WithLabelValues(op, outcome).Inc()
	c.metrics.CollectionOpDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

func (c *Collection) observeEngine(op, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.EngineOpTotal.WithLabelValues(op, outcome).Inc()
	c.metrics.EngineOpDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
