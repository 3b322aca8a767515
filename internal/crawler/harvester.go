package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/internal/logger"
	"github.com/samvad-hq/samvad-feed-harvester/internal/metrics"
	"github.com/samvad-hq/samvad-feed-harvester/internal/sink"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/providers"
)

// Harvester drives one control flow per provider. Sections of a provider run strictly in
// catalog order; providers run concurrently up to the worker limit.
type Harvester struct {
	fetcher providers.Fetcher
	sink    sink.Sink
	log     logger.Logger
	metrics *metrics.Metrics

	date       string
	workers    int
	runTimeout time.Duration
	limiter    *rate.Limiter

	sleep    func(ctx context.Context, d time.Duration) error
	randUnit func() float64
	now      func() time.Time
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(h *Harvester) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMetrics records fetch and batch outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harvester) { h.metrics = m }
}

// WithWorkers caps the number of concurrently running providers. Zero means one per provider.
func WithWorkers(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithRunTimeout bounds a single pass.
func WithRunTimeout(d time.Duration) Option {
	return func(h *Harvester) {
		if d > 0 {
			h.runTimeout = d
		}
	}
}

// WithRateLimit shares a fetch rate limit across all providers. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(h *Harvester) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithSleep replaces the politeness delay implementation.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Harvester) {
		if fn != nil {
			h.sleep = fn
		}
	}
}

// WithRand replaces the uniform [0,1) source used for delays.
func WithRand(fn func() float64) Option {
	return func(h *Harvester) {
		if fn != nil {
			h.randUnit = fn
		}
	}
}

// New builds a Harvester. date is the batch date captured once at process start.
func New(fetcher providers.Fetcher, out sink.Sink, date string, opts ...Option) *Harvester {
	h := &Harvester{
		fetcher:  fetcher,
		sink:     out,
		log:      logger.NopLogger{},
		date:     date,
		sleep:    sleepContext,
		randUnit: rand.Float64,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Summary counts the outcome of one or more passes.
type Summary struct {
	Sections   int
	Succeeded  int
	Failed     int
	SinkErrors int
}

func (s *Summary) add(o Summary) {
	s.Sections += o.Sections
	s.Succeeded += o.Succeeded
	s.Failed += o.Failed
	s.SinkErrors += o.SinkErrors
}

type tally struct {
	sections   atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	sinkErrors atomic.Int64
}

func (t *tally) summary() Summary {
	return Summary{
		Sections:   int(t.sections.Load()),
		Succeeded:  int(t.succeeded.Load()),
		Failed:     int(t.failed.Load()),
		SinkErrors: int(t.sinkErrors.Load()),
	}
}

// Run performs one pass over every provider and waits for all flows to finish.
// Section failures are recorded as failure batches, never returned.
func (h *Harvester) Run(ctx context.Context, provs []providers.Provider) (Summary, error) {
	if h.fetcher == nil || h.sink == nil {
		return Summary{}, errors.New("harvester needs a fetcher and a sink")
	}
	if len(provs) == 0 {
		return Summary{}, nil
	}

	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	workers := h.workers
	if workers <= 0 || workers > len(provs) {
		workers = len(provs)
	}

	start := h.now()
	h.log.InfoObj("harvest pass started", "pass_start", map[string]any{
		"providers": len(provs),
		"workers":   workers,
		"date":      h.date,
	})

	var (
		t tally
		g errgroup.Group
	)
	g.SetLimit(workers)
	for _, p := range provs {
		g.Go(func() error {
			h.runProvider(ctx, p, &t)
			return nil
		})
	}
	_ = g.Wait()

	sum := t.summary()
	h.metrics.RecordPass()
	h.log.InfoObj("harvest pass finished", "pass_done", map[string]any{
		"sections":    sum.Sections,
		"succeeded":   sum.Succeeded,
		"failed":      sum.Failed,
		"sink_errors": sum.SinkErrors,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return sum, nil
}

// RunEvery repeats passes every interval until ctx is cancelled. A non-positive
// interval performs a single pass.
func (h *Harvester) RunEvery(ctx context.Context, provs []providers.Provider, interval time.Duration) (Summary, error) {
	if interval <= 0 {
		return h.Run(ctx, provs)
	}

	var total Summary
	for {
		sum, err := h.Run(ctx, provs)
		if err != nil {
			return total, err
		}
		total.add(sum)

		if ctx.Err() != nil {
			return total, nil
		}
		h.log.InfoObj("waiting for next pass", "pass_wait", map[string]any{
			"interval": interval.String(),
		})
		if err := h.sleep(ctx, interval); err != nil {
			return total, nil
		}
	}
}

// runProvider processes the provider's sections in order with a random delay in between.
func (h *Harvester) runProvider(ctx context.Context, p providers.Provider, t *tally) {
	defer func() {
		if r := recover(); r != nil {
			h.log.ErrorObj("provider flow panicked", "provider_panic", map[string]any{
				"provider_id": p.ID,
				"panic":       fmt.Sprint(r),
			})
		}
	}()

	sources := p.Sources()
	h.log.InfoObj(fmt.Sprintf("Starting %s RSS feed harvest", p.ID), "provider_start", map[string]any{
		"provider_id": p.ID,
		"sections":    len(sources),
	})

	for i, src := range sources {
		if ctx.Err() != nil {
			break
		}

		batch := h.harvestSection(ctx, src)
		if err := ctx.Err(); err != nil {
			// An expired run timeout still leaves a record of the hung section; shutdown does not.
			if errors.Is(err, context.DeadlineExceeded) {
				h.record(context.WithoutCancel(ctx), batch, t)
				break
			}
			h.log.WarnObj("section aborted by shutdown", "section_aborted", map[string]any{
				"provider_id": src.Provider,
				"section":     src.Section,
			})
			break
		}
		h.record(ctx, batch, t)

		if i == len(sources)-1 {
			break
		}
		if err := h.sleep(ctx, h.delay(src.Delay)); err != nil {
			break
		}
	}

	h.log.InfoObj(fmt.Sprintf("%s harvesting completed", p.ID), "provider_done", map[string]any{
		"provider_id": p.ID,
	})
}

// record appends the batch and logs the progress line. Sink errors and sink panics are
// logged and counted; the batch only counts as succeeded or failed once it is stored.
func (h *Harvester) record(ctx context.Context, batch domain.IngestBatch, t *tally) {
	t.sections.Add(1)
	fields := map[string]any{
		"provider_id": batch.Provider,
		"section":     batch.Section,
	}

	if err := h.appendBatch(ctx, batch); err != nil {
		t.sinkErrors.Add(1)
		h.metrics.RecordSinkError(batch.Provider)
		fields["error"] = err.Error()
		fields["stage"] = string(StageSinking)
		h.log.ErrorObj("append batch failed", "sink_error", fields)
		return
	}

	if batch.Failed() {
		t.failed.Add(1)
		h.metrics.RecordBatch(batch.Provider, "failure", 0)
		h.log.WarnObj(fmt.Sprintf("Failed to download articles from section: %s - %s", batch.Provider, batch.Section), "section_failed", fields)
		return
	}
	t.succeeded.Add(1)
	h.metrics.RecordBatch(batch.Provider, "success", len(batch.Articles))
	fields["articles"] = len(batch.Articles)
	fields["state"] = string(StageIdle)
	h.log.InfoObj(fmt.Sprintf("Downloaded articles from section: %s - %s", batch.Provider, batch.Section), "section_done", fields)
}

func (h *Harvester) appendBatch(ctx context.Context, batch domain.IngestBatch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: StageSinking, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return h.sink.Append(ctx, batch)
}

// delay draws a uniform duration in the provider's bounds.
func (h *Harvester) delay(r providers.DelayRange) time.Duration {
	lo, hi := r.Bounds()
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(h.randUnit()*float64(hi-lo))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
