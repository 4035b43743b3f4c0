package enrich

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/source"
	"github.com/linnemanlabs/sift/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/enrich")

// Extract types written by the engine. Existence of any of these satisfies
// the trust guard's extract condition.
const (
	ExtractSummary        = "summary"
	ExtractHighlights     = "highlights"
	ExtractSuggestedLinks = "suggested_links"
	ExtractSuggestedTask  = "suggested_task"
)

// autoLinkConfidence is the floor above which a suggested link is recorded as
// an ai_match entity link without waiting for the user.
const autoLinkConfidence = 0.8

// Notifier is told when enrichment lands an item in needs_review.
type Notifier interface {
	Notify(ctx context.Context, owner string, item *triage.WorkItem, summary string) error
}

// Engine runs the enrichment pipeline: ensure a pending work item, call the
// provider, persist extracts, auto-link confident matches, and advance the
// item to needs_review with its reason codes.
type Engine struct {
	provider Provider
	svc      *triage.Service
	store    triage.Store
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier
	now      func() time.Time
}

// NewEngine creates a new enrichment engine. notifier may be nil.
func NewEngine(provider Provider, svc *triage.Service, store triage.Store, logger log.Logger, metrics *Metrics, notifier Notifier) *Engine {
	return &Engine{
		provider: provider,
		svc:      svc,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
		now:      time.Now,
	}
}

// Submit records the observation and kicks off enrichment asynchronously. The
// returned work item is the durable record in its pre-enrichment state.
func (e *Engine) Submit(ctx context.Context, owner string, req *Request) (*triage.WorkItem, error) {
	sourceType, err := source.ParseType(req.SourceType)
	if err != nil {
		return nil, err
	}
	key := triage.ItemKey{SourceType: sourceType, SourceID: req.SourceID}

	item, err := e.svc.Ensure(ctx, owner, key, nil)
	if err != nil {
		return nil, err
	}

	// Already judged or already enriched: do not re-run the provider.
	if item.Status != triage.StatusPending {
		return item, nil
	}

	go e.run(context.WithoutCancel(ctx), owner, key, req)

	return item, nil
}

func (e *Engine) run(ctx context.Context, owner string, key triage.ItemKey, req *Request) {
	ctx, span := tracer.Start(ctx, "enrich.run", trace.WithAttributes(
		attribute.String("sift.item.id", key.ItemID()),
		attribute.String("sift.owner", owner),
	))
	defer span.End()

	L := e.logger.With("item", key.ItemID(), "owner", owner)
	start := e.now()

	llmCtx, llmSpan := tracer.Start(ctx, "llm.extract")
	ext, err := e.provider.Extract(llmCtx, req)
	if err != nil {
		llmSpan.RecordError(err)
		llmSpan.SetStatus(codes.Error, err.Error())
		llmSpan.End()
		span.SetStatus(codes.Error, "extract failed")
		L.Error(ctx, err, "enrichment failed, item stays pending")
		e.metrics.IncExtraction("error")
		return
	}
	llmSpan.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", ext.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", ext.Usage.OutputTokens),
	)
	llmSpan.End()
	e.metrics.AddTokens(ext.Usage.InputTokens, ext.Usage.OutputTokens)

	now := e.now()
	if err := e.putExtracts(ctx, owner, key, ext, now); err != nil {
		span.SetStatus(codes.Error, "persist extracts failed")
		L.Error(ctx, err, "failed to persist extracts")
		e.metrics.IncExtraction("error")
		return
	}

	linked := req.HasCompany
	for _, sl := range ext.SuggestedLinks {
		if sl.Confidence < autoLinkConfidence {
			continue
		}
		conf := sl.Confidence
		if err := e.svc.LinkEntity(ctx, owner, key, sl.TargetType, sl.TargetID, triage.LinkAIMatch, &conf); err != nil {
			L.Error(ctx, err, "failed to record ai_match link", "target", sl.TargetID)
			continue
		}
		e.metrics.IncAutoLink()
		linked = true
	}

	reasons := reasonCodes(req, ext, linked)
	item, err := e.advance(ctx, owner, key, reasons, now)
	if err != nil {
		span.SetStatus(codes.Error, "advance failed")
		L.Error(ctx, err, "failed to advance item to needs_review")
		e.metrics.IncExtraction("error")
		return
	}

	e.metrics.IncExtraction("ok")
	L.Info(ctx, "enrichment complete",
		"duration", time.Since(start).Seconds(),
		"input_tokens", ext.Usage.InputTokens,
		"output_tokens", ext.Usage.OutputTokens,
		"reason_codes", reasons,
	)

	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, owner, item, ext.Summary); err != nil {
		L.Error(ctx, err, "needs_review notification failed")
	}
}

func (e *Engine) putExtracts(ctx context.Context, owner string, key triage.ItemKey, ext *Extraction, now time.Time) error {
	put := func(extractType string, content any) error {
		raw, err := json.Marshal(content)
		if err != nil {
			return err
		}
		return e.store.PutItemExtract(ctx, &triage.ItemExtract{
			CreatedBy:   owner,
			SourceType:  key.SourceType,
			SourceID:    key.SourceID,
			ExtractType: extractType,
			Content:     raw,
			CreatedAt:   now,
		})
	}

	if err := put(ExtractSummary, map[string]string{"summary": ext.Summary}); err != nil {
		return err
	}
	if len(ext.Highlights) > 0 {
		if err := put(ExtractHighlights, ext.Highlights); err != nil {
			return err
		}
	}
	if len(ext.SuggestedLinks) > 0 {
		if err := put(ExtractSuggestedLinks, ext.SuggestedLinks); err != nil {
			return err
		}
	}
	if ext.SuggestedTask != nil {
		if err := put(ExtractSuggestedTask, ext.SuggestedTask); err != nil {
			return err
		}
	}
	return nil
}

// advance moves the item to needs_review with its machine reason codes. A
// user action racing ahead of enrichment wins: only pending items advance.
func (e *Engine) advance(ctx context.Context, owner string, key triage.ItemKey, reasons []string, now time.Time) (*triage.WorkItem, error) {
	item, ok, err := e.store.GetWorkItem(ctx, owner, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, triage.ErrNotFound
	}
	if item.Status != triage.StatusPending {
		return item, nil
	}

	item.Status = triage.StatusNeedsReview
	item.ReasonCodes = reasons
	item.LastTouchedAt = now
	item.UpdatedAt = now
	if err := e.store.PutWorkItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// reasonCodes derives the machine flags the reviewer sees.
func reasonCodes(req *Request, ext *Extraction, linked bool) []string {
	reasons := []string{}
	if !linked {
		reasons = append(reasons, triage.ReasonUnlinkedCompany)
	}
	if ext.SuggestedTask != nil {
		reasons = append(reasons, triage.ReasonNoNextAction)
	}
	if req.Stale {
		reasons = append(reasons, triage.ReasonStale)
	}
	return reasons
}
