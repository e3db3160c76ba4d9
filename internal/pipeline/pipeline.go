// Package pipeline orchestrates one batch of firewall decision logs from
// encoded frame to persisted, attributed, classified events:
//
//	decode → normalize → classify → attribute → persist → aggregate → escalate
//
// Each run processes exactly one delivery to completion. Only two failures
// abort a batch before any write: an undecodable frame and a batch that
// cannot be attributed to a tenant. Everything else is contained at record
// level and reported in the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/archive"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/attribution"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/classifier"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/decoder"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/escalation"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/logging"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/metrics"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/normalizer"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/repository"
)

const defaultWorkers = 4

// Pipeline processes firewall log batches. Collaborators are injected so
// the pipeline is testable against in-memory fakes.
type Pipeline struct {
	attributor *attribution.Attributor
	registry   repository.ConfigRegistry
	events     repository.EventStore
	notifier   escalation.Notifier
	archiver   archive.Archiver
	logger     *logging.Logger
	workers    int
	now        func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds the persist worker pool.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock overrides the pipeline clock (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithArchiver attaches a best-effort audit sink.
func WithArchiver(a archive.Archiver) Option {
	return func(p *Pipeline) { p.archiver = a }
}

// New creates a Pipeline over the given collaborators.
func New(attributor *attribution.Attributor, registry repository.ConfigRegistry, events repository.EventStore, notifier escalation.Notifier, logger *logging.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.Default()
	}
	p := &Pipeline{
		attributor: attributor,
		registry:   registry,
		events:     events,
		notifier:   notifier,
		archiver:   archive.NoopArchiver{},
		logger:     logger,
		workers:    defaultWorkers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// classified pairs a normalized event with its classification.
type classified struct {
	event models.ParsedEvent
	class models.Classification
}

// Run processes one encoded payload to completion and returns the batch
// result. The error is non-nil only for batch-fatal conditions (decode
// failure, unattributable batch); the result is always populated so the
// caller can report it either way.
func (p *Pipeline) Run(ctx context.Context, encodedPayload string) (*models.BatchResult, error) {
	start := p.now()
	batchID := uuid.New().String()
	result := &models.BatchResult{Errors: []string{}}

	envelope, err := decoder.Decode(encodedPayload)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		metrics.BatchesTotal.WithLabelValues("decode_error").Inc()
		return result, err
	}

	// Control messages confirm the subscription; nothing to process.
	if envelope.IsControl() {
		result.Success = true
		metrics.BatchesTotal.WithLabelValues("control").Inc()
		return result, nil
	}

	result.EventsReceived = len(envelope.LogEvents)
	metrics.EventsReceived.Add(float64(result.EventsReceived))

	events, recordErrs := normalizer.Normalize(envelope.LogEvents)
	result.EventsParsed = len(events)
	result.Errors = append(result.Errors, recordErrs...)
	metrics.EventsParsed.Add(float64(len(events)))
	metrics.RecordErrors.Add(float64(len(recordErrs)))

	for _, msg := range recordErrs {
		p.logger.WarnContext(ctx, "dropped malformed record",
			logging.BatchID(batchID), slog.String("reason", msg))
	}

	batch := make([]classified, 0, len(events))
	for _, ev := range events {
		cl, _ := classifier.Classify(ev)
		batch = append(batch, classified{event: ev, class: cl})
	}

	cfg, err := p.attributor.Resolve(ctx, attribution.Query{
		LogGroup:       envelope.LogGroup,
		OwnerAccountID: envelope.Owner,
	})
	if err != nil {
		// Fail closed: no writes without a proven tenant.
		result.Errors = append(result.Errors, err.Error())
		metrics.BatchesTotal.WithLabelValues("unattributed").Inc()
		p.logger.ErrorContext(ctx, "batch attribution failed",
			logging.BatchID(batchID),
			logging.LogGroup(envelope.LogGroup),
			logging.AccountID(envelope.Owner),
			logging.Error(err),
		)
		return result, err
	}

	saved, blocked, newEvents := p.persist(ctx, cfg, batch, result)

	if saved > 0 {
		if err := p.registry.IncrementCounters(ctx, cfg.ID, saved, blocked, p.now()); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("increment counters: %v", err))
		}
	}

	var escalatable []models.PersistedEvent
	for _, ev := range newEvents {
		cl := models.Classification{ThreatType: ev.ThreatType, Severity: ev.Severity}
		if cl.IsEscalatable() {
			escalatable = append(escalatable, ev)
		}
	}

	p.escalate(ctx, cfg.OrganizationID, escalatable)
	p.archive(ctx, batchID, newEvents)

	result.Success = len(result.Errors) == 0
	outcome := "success"
	if !result.Success {
		outcome = "partial_failure"
	}
	metrics.BatchesTotal.WithLabelValues(outcome).Inc()
	metrics.BatchDuration.Observe(p.now().Sub(start).Seconds())

	p.logger.InfoContext(ctx, "batch processed",
		logging.BatchID(batchID),
		logging.OrgID(cfg.OrganizationID),
		logging.LogGroup(envelope.LogGroup),
		slog.Int("events_received", result.EventsReceived),
		slog.Int("events_parsed", result.EventsParsed),
		slog.Int("events_saved", result.EventsSaved),
		slog.Int("duplicates_skipped", result.DuplicatesSkipped),
		slog.Int("errors", len(result.Errors)),
		logging.Duration(p.now().Sub(start).Milliseconds()),
	)

	return result, nil
}

// persist writes every event through the dedup store with a bounded worker
// pool. Writes are independent and idempotent, so ordering does not matter;
// counts are accumulated atomically. It returns the newly persisted count,
// the newly persisted BLOCK count, and the newly persisted events.
func (p *Pipeline) persist(ctx context.Context, cfg *models.MonitoringConfig, batch []classified, result *models.BatchResult) (saved, blocked int64, newEvents []models.PersistedEvent) {
	var (
		savedCount   atomic.Int64
		blockedCount atomic.Int64
		dupCount     atomic.Int64

		mu        sync.Mutex
		writeErrs []string
		inserted  []models.PersistedEvent
	)

	now := p.now()
	jobs := make(chan classified)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > len(batch) {
		workers = len(batch)
	}
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				ev := models.NewPersistedEvent(cfg.OrganizationID, cfg.MonitoredAccountID, c.event, c.class, now)

				wrote, err := p.events.UpsertIfAbsent(ctx, ev)
				if err != nil {
					mu.Lock()
					writeErrs = append(writeErrs, fmt.Sprintf("persist event %s: %v", ev.ID, err))
					mu.Unlock()
					continue
				}
				if !wrote {
					dupCount.Add(1)
					continue
				}

				savedCount.Add(1)
				if ev.Action == models.ActionBlock {
					blockedCount.Add(1)
				}
				mu.Lock()
				inserted = append(inserted, *ev)
				mu.Unlock()
			}
		}()
	}

	for _, c := range batch {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	result.EventsSaved = int(savedCount.Load())
	result.DuplicatesSkipped = int(dupCount.Load())
	result.Errors = append(result.Errors, writeErrs...)

	metrics.EventsSaved.Add(float64(savedCount.Load()))
	metrics.DuplicatesSkipped.Add(float64(dupCount.Load()))
	metrics.RecordErrors.Add(float64(len(writeErrs)))

	return savedCount.Load(), blockedCount.Load(), inserted
}

// escalate hands high/critical events to the campaign collaborator. Best
// effort: a failure here is logged and never fails the batch.
func (p *Pipeline) escalate(ctx context.Context, orgID string, events []models.PersistedEvent) {
	if len(events) == 0 {
		return
	}

	if err := p.notifier.Notify(ctx, orgID, events); err != nil {
		metrics.EscalationErrors.Inc()
		p.logger.WarnContext(ctx, "escalation failed",
			logging.OrgID(orgID),
			slog.Int("events", len(events)),
			logging.Error(err),
		)
		return
	}
	metrics.EscalationsPublished.Inc()
}

func (p *Pipeline) archive(ctx context.Context, batchID string, events []models.PersistedEvent) {
	if len(events) == 0 {
		return
	}
	if err := p.archiver.Archive(ctx, events); err != nil {
		p.logger.WarnContext(ctx, "archive failed",
			logging.BatchID(batchID), logging.Error(err))
	}
}
