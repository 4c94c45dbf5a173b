package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/astrokml/models"
	"github.com/aluiziolira/astrokml/parser"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrPipelineClosed is returned when Run is called after Close.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// Drop reasons reported in Stats.
const (
	DropNotPlacemark  = "not_placemark"
	DropMetadataParse = "metadata_parse"
	DropInvalid       = "invalid_record"
	DropFetch         = "fetch_error"
)

const (
	defaultBatchSize = 16
	progressEvery    = 10
)

// AttributeSource resolves the attribute set of one record.
type AttributeSource interface {
	Attributes(ctx context.Context, rec models.Record) (models.AttributeSet, error)
}

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(sets []models.AttributeSet) error
	Close() error
	Validate() error
}

// Stats summarises one pipeline run.
type Stats struct {
	Records int
	Written int
	Dropped map[string]int
	Failed  []string
}

// Pipeline fetches attribute sets for records on a bounded worker pool and
// writes them in record order.
type Pipeline struct {
	writer    OutputWriter
	source    AttributeSource
	workers   int
	batchSize int

	metrics metrics

	mu     sync.Mutex // guards closed
	closed bool
}

// NewPipeline builds a pipeline running at most workers fetches at once.
func NewPipeline(writer OutputWriter, source AttributeSource, workers int) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		writer:    writer,
		source:    source,
		workers:   workers,
		batchSize: defaultBatchSize,
		metrics:   newMetrics(),
	}
}

type slot struct {
	attrs models.AttributeSet
	ok    bool
	done  bool
}

// orderedBuffer releases completed results strictly in input order.
type orderedBuffer struct {
	mu    sync.Mutex
	slots []slot
	next  int
	ready []models.AttributeSet
}

func (b *orderedBuffer) complete(i int, attrs models.AttributeSet, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = slot{attrs: attrs, ok: ok, done: true}
	for b.next < len(b.slots) && b.slots[b.next].done {
		if s := b.slots[b.next]; s.ok {
			b.ready = append(b.ready, s.attrs)
		}
		b.slots[b.next] = slot{done: true}
		b.next++
	}
}

func (b *orderedBuffer) take(min int) []models.AttributeSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ready) == 0 || len(b.ready) < min {
		return nil
	}
	out := b.ready
	b.ready = nil
	return out
}

// Run resolves every record and writes the successful ones. Record
// failures are logged and counted; only writer errors and cancellation
// end the run early.
func (p *Pipeline) Run(ctx context.Context, records []models.Record) (Stats, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return Stats{}, ErrPipelineClosed
	}

	buf := &orderedBuffer{slots: make([]slot, len(records))}
	var writeMu sync.Mutex
	flush := func(min int) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		batch := buf.take(min)
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		p.metrics.addWritten(len(batch))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, rec := range records {
		i, rec := i, rec
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			attrs, err := p.resolve(gctx, rec)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			buf.complete(i, attrs, err == nil)

			if done := p.metrics.incrementProcessed(); done%progressEvery == 0 {
				slog.Info("metadata progress",
					slog.Int("done", done),
					slog.Int("total", len(records)),
				)
			}
			return flush(p.batchSize)
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = flush(1)
	}

	stats := p.Stats()
	stats.Records = len(records)
	return stats, err
}

func (p *Pipeline) resolve(ctx context.Context, rec models.Record) (models.AttributeSet, error) {
	if err := parser.ValidateRecord(rec); err != nil {
		p.metrics.addDropped(DropInvalid, rec.Key())
		slog.Warn("dropping invalid record", slog.String("key", rec.Key()), slog.Any("error", err))
		return models.AttributeSet{}, err
	}

	attrs, err := p.source.Attributes(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			return models.AttributeSet{}, err
		}
		reason := dropReason(err)
		p.metrics.addDropped(reason, rec.Key())
		slog.Warn("dropping record",
			slog.String("key", rec.Key()),
			slog.Int("page", rec.Page),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		return models.AttributeSet{}, err
	}
	return attrs, nil
}

func dropReason(err error) string {
	if errors.Is(err, parser.ErrNotPlacemark) {
		return DropNotPlacemark
	}
	var metaErr parser.MetadataParseError
	if errors.As(err, &metaErr) {
		return DropMetadataParse
	}
	return DropFetch
}

// Close closes the writer and prevents further runs.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.writer.Close()
}

// Stats returns a snapshot of the internal counters.
func (p *Pipeline) Stats() Stats {
	return p.metrics.snapshot()
}

type metrics struct {
	mu        *sync.Mutex
	processed int
	written   int
	dropped   map[string]int
	failed    []string
}

func newMetrics() metrics {
	return metrics{
		mu:      &sync.Mutex{},
		dropped: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
	return m.processed
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += n
	m.mu.Unlock()
}

func (m *metrics) addDropped(reason, key string) {
	m.mu.Lock()
	m.dropped[reason]++
	m.failed = append(m.failed, key)
	m.mu.Unlock()
}

func (m *metrics) snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := make(map[string]int, len(m.dropped))
	for k, v := range m.dropped {
		dropped[k] = v
	}
	failed := make([]string, len(m.failed))
	copy(failed, m.failed)

	return Stats{
		Written: m.written,
		Dropped: dropped,
		Failed:  failed,
	}
}
