package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/extract"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/feedtree"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/providers"
)

// Stage is the position of a section in the pipeline.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageFetching   Stage = "fetching"
	StageParsing    Stage = "parsing"
	StageExtracting Stage = "extracting"
	StageSinking    Stage = "sinking"
	StageFailed     Stage = "failed"
)

// ErrNoArticles marks a feed that parsed but yielded no items.
var ErrNoArticles = errors.New("feed contained no articles")

// StageError records the stage a section failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// harvestSection runs fetch, parse and extract for one section. It always returns a batch:
// any error or panic becomes a failure batch carrying the cause.
func (h *Harvester) harvestSection(ctx context.Context, src providers.FeedSource) (batch domain.IngestBatch) {
	stage := StageFetching
	defer func() {
		if r := recover(); r != nil {
			batch = h.fail(src, &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	h.log.DebugObj("fetching feed", "fetch_start", map[string]any{
		"provider_id": src.Provider,
		"section":     src.Section,
		"url":         src.URL,
		"stage":       string(stage),
	})

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return h.fail(src, &StageError{Stage: stage, Err: err})
		}
	}

	start := h.now()
	raw, err := h.fetcher.Fetch(ctx, src)
	h.metrics.RecordFetch(src.Provider, fetchOutcome(err), h.now().Sub(start))
	if err != nil {
		return h.fail(src, &StageError{Stage: stage, Err: err})
	}

	stage = StageParsing
	doc, err := feedtree.Parser{Lenient: src.LenientXML}.Parse(raw)
	if err != nil {
		return h.fail(src, &StageError{Stage: stage, Err: err})
	}

	stage = StageExtracting
	articles, err := extract.Extract(doc, src.Profile)
	if err != nil {
		return h.fail(src, &StageError{Stage: stage, Err: err})
	}
	if len(articles) == 0 {
		return h.fail(src, &StageError{Stage: stage, Err: ErrNoArticles})
	}

	h.log.DebugObj("section extracted", "extract_done", map[string]any{
		"provider_id": src.Provider,
		"section":     src.Section,
		"articles":    len(articles),
		"stage":       string(StageSinking),
	})
	return domain.NewSuccessBatch(h.date, src.Provider, src.Section, articles)
}

func (h *Harvester) fail(src providers.FeedSource, err *StageError) domain.IngestBatch {
	h.log.WarnObj("section failed", "section_error", map[string]any{
		"provider_id": src.Provider,
		"section":     src.Section,
		"url":         src.URL,
		"stage":       string(err.Stage),
		"state":       string(StageFailed),
		"reason":      failureReason(err),
		"error":       err.Error(),
	})
	return domain.NewFailureBatch(h.date, src.Provider, src.Section, err)
}

func fetchOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var terr *providers.TransportError
	if errors.As(err, &terr) {
		return terr.Reason
	}
	return "error"
}

// failureReason flattens the error taxonomy into a log-friendly code.
func failureReason(err error) string {
	var (
		terr *providers.TransportError
		perr *feedtree.ParseError
	)
	switch {
	case errors.As(err, &terr):
		return terr.Reason
	case errors.As(err, &perr):
		return "parse_" + string(perr.Kind)
	case errors.Is(err, extract.ErrNoChannel):
		return "no_channel"
	case errors.Is(err, ErrNoArticles):
		return "no_articles"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
