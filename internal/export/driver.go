// Package export drives the dump pipeline: it pages over sequence entities,
// resolves relationships for each page up front, aggregates and renders each
// entity on a bounded worker pool, and writes one dump chunk per page.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rnaindex/internal/aggregate"
	"rnaindex/internal/blob"
	"rnaindex/internal/document"
	"rnaindex/internal/relations"
	"rnaindex/internal/store"
	"rnaindex/pkg/domain"
)

const (
	defaultPageSize = 1000
	defaultWorkers  = 4
	contentType     = "application/xml"
)

// Config tunes a run.
type Config struct {
	// PageSize bounds the entities per page and per chunk.
	PageSize int
	// ResolvePageSize bounds the cross-references per resolution query.
	ResolvePageSize int
	Workers         int
	// TaxID narrows relationship resolution to one taxon; zero disables it.
	TaxID       int64
	ChunkPrefix string
	Release     string
	// Overwrite replaces existing chunks instead of failing the run.
	Overwrite bool
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.ResolvePageSize <= 0 {
		c.ResolvePageSize = c.PageSize
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	return c
}

// ChunkKey names the dump chunk of a 1-based page.
func ChunkKey(prefix string, page int) string {
	return fmt.Sprintf("%schunk_%05d.xml", prefix, page)
}

// MetricsRecorder receives operation timings and outcome counts.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	Entity(success bool)
	Chunk()
}

// Resolver computes the relationship edges of a page of cross-references.
type Resolver interface {
	ResolveBatched(ctx context.Context, ids []domain.XrefID, pageSize int, taxid int64) (*relations.EdgeMap, error)
}

// Driver runs exports. It is safe to call Run sequentially; concurrent runs
// against the same sink would race on chunk keys.
type Driver struct {
	store    store.Store
	resolver Resolver
	sink     blob.Store
	cfg      Config
	log      *zap.SugaredLogger
	metrics  MetricsRecorder
	now      func() time.Time
	buffers  sync.Pool
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger installs a logger; the default discards output.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// New constructs a driver. A nil resolver resolves against st with every
// rule enabled.
func New(st store.Store, resolver Resolver, sink blob.Store, cfg Config, opts ...Option) *Driver {
	if resolver == nil {
		resolver = relations.NewResolver(st)
	}
	d := &Driver{
		store:    st,
		resolver: resolver,
		sink:     sink,
		cfg:      cfg.withDefaults(),
		log:      zap.NewNop().Sugar(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	d.buffers.New = func() any { return aggregate.NewBuffer() }
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run exports every sequence entity. Entity failures are collected in the
// report; a store failure that outlives its retries aborts the run, leaving
// chunks written by earlier pages in place.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	report := Report{Status: StatusRunning, Release: d.cfg.Release, StartedAt: d.now()}
	d.log.Infow("export started", "release", d.cfg.Release, "page_size", d.cfg.PageSize, "workers", d.cfg.Workers, "taxid", d.cfg.TaxID)

	after := ""
	for page := 1; ; page++ {
		entities, err := d.store.Entities(ctx, after, d.cfg.PageSize)
		if err != nil {
			return d.abort(report, fmt.Errorf("list entities after %q: %w", after, err))
		}
		if len(entities) == 0 {
			break
		}
		start := time.Now()
		out, err := d.exportPage(ctx, page, entities)
		d.observe(ctx, "page", err == nil, time.Since(start))
		if err != nil {
			return d.abort(report, fmt.Errorf("page %d: %w", page, err))
		}
		report.Pages++
		report.Entities += len(entities)
		report.Exported += out.exported
		report.Edges += out.edges
		report.Failures = append(report.Failures, out.failures...)
		if out.chunk != nil {
			report.Chunks = append(report.Chunks, *out.chunk)
		}
		after = entities[len(entities)-1].UPI
		if len(entities) < d.cfg.PageSize {
			break
		}
	}

	report.complete(d.now())
	d.log.Infow("export finished", "pages", report.Pages, "entities", report.Entities, "exported", report.Exported, "failed", report.Failed(), "chunks", len(report.Chunks))
	return report, nil
}

func (d *Driver) abort(report Report, err error) (Report, error) {
	report.fail(d.now(), err.Error())
	d.log.Errorw("export aborted", "pages", report.Pages, "error", err)
	return report, err
}

type pageResult struct {
	exported int
	edges    int
	failures []EntityFailure
	chunk    *Chunk
}

func (d *Driver) exportPage(ctx context.Context, page int, entities []domain.SequenceEntity) (pageResult, error) {
	upis := make([]string, len(entities))
	for i, e := range entities {
		upis[i] = e.UPI
	}
	ids, err := d.store.XrefIDs(ctx, upis, d.cfg.TaxID)
	if err != nil {
		return pageResult{}, fmt.Errorf("list cross-references: %w", err)
	}
	start := time.Now()
	edges, err := d.resolver.ResolveBatched(ctx, ids, d.cfg.ResolvePageSize, d.cfg.TaxID)
	d.observe(ctx, "resolve", err == nil, time.Since(start))
	if err != nil {
		return pageResult{}, fmt.Errorf("resolve relationships: %w", err)
	}
	d.log.Infow("page resolved", "page", page, "entities", len(entities), "xrefs", len(ids), "edges", edges.Edges())

	docs := make([][]byte, len(entities))
	errs := make([]error, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			doc, err := d.render(gctx, entity, edges)
			d.observe(gctx, "entity", err == nil, time.Since(start))
			if err != nil {
				if store.IsTransient(err) || gctx.Err() != nil {
					return fmt.Errorf("entity %s: %w", entity.UPI, err)
				}
				errs[i] = err
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pageResult{}, err
	}

	out := pageResult{edges: edges.Edges()}
	entries := make([][]byte, 0, len(entities))
	for i, entity := range entities {
		if errs[i] != nil {
			out.failures = append(out.failures, EntityFailure{UPI: entity.UPI, Error: errs[i].Error()})
			d.entity(false)
			d.log.Warnw("entity skipped", "upi", entity.UPI, "error", errs[i])
			continue
		}
		entries = append(entries, docs[i])
		d.entity(true)
	}
	out.exported = len(entries)
	if len(entries) == 0 {
		return out, nil
	}
	chunk, err := d.writeChunk(ctx, page, entries)
	if err != nil {
		return pageResult{}, err
	}
	out.chunk = &chunk
	return out, nil
}

// render builds one entity document. Nothing is returned on error so a
// failed entity leaves no partial output.
func (d *Driver) render(ctx context.Context, entity domain.SequenceEntity, edges *relations.EdgeMap) ([]byte, error) {
	buf := d.buffers.Get().(*aggregate.Buffer)
	defer d.buffers.Put(buf)
	if err := buf.Load(ctx, d.store, entity, edges); err != nil {
		return nil, err
	}
	doc, err := document.Format(buf)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Driver) writeChunk(ctx context.Context, page int, entries [][]byte) (Chunk, error) {
	var payload bytes.Buffer
	if err := document.WriteDump(&payload, d.cfg.Release, entries); err != nil {
		return Chunk{}, fmt.Errorf("render chunk: %w", err)
	}
	key := ChunkKey(d.cfg.ChunkPrefix, page)
	if d.cfg.Overwrite {
		if _, err := d.sink.Delete(ctx, key); err != nil {
			return Chunk{}, fmt.Errorf("replace chunk %s: %w", key, err)
		}
	}
	start := time.Now()
	info, err := d.sink.Put(ctx, key, bytes.NewReader(payload.Bytes()), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"entries": strconv.Itoa(len(entries)),
			"release": d.cfg.Release,
		},
	})
	d.observe(ctx, "chunk", err == nil, time.Since(start))
	if err != nil {
		return Chunk{}, fmt.Errorf("store chunk %s: %w", key, err)
	}
	if d.metrics != nil {
		d.metrics.Chunk()
	}
	chunk := Chunk{
		Key:       info.Key,
		Page:      page,
		Entries:   len(entries),
		SizeBytes: info.Size,
		ETag:      info.ETag,
		CreatedAt: info.LastModified,
	}
	if chunk.SizeBytes == 0 {
		chunk.SizeBytes = int64(payload.Len())
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = d.now()
	}
	url, err := d.sink.PresignURL(ctx, key, blob.SignedURLOptions{})
	switch {
	case err == nil:
		chunk.URL = url
	case !errors.Is(err, blob.ErrUnsupported):
		d.log.Warnw("presign failed", "key", key, "error", err)
	}
	d.log.Infow("chunk written", "page", page, "key", key, "entries", len(entries), "bytes", chunk.SizeBytes)
	return chunk, nil
}

func (d *Driver) observe(ctx context.Context, op string, success bool, dur time.Duration) {
	if d.metrics != nil {
		d.metrics.Observe(ctx, op, success, dur)
	}
}

func (d *Driver) entity(success bool) {
	if d.metrics != nil {
		d.metrics.Entity(success)
	}
}
