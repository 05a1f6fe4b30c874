// Package scheduler runs durable transfer triggers.
//
// A Gateway stores (job, trigger) pairs in a domain.JobStore and fires them: one
// poller goroutine claims due triggers and hands them, as typed domain.Fire
// values, to a fixed pool of workers over a bounded channel. The store keeps a
// trigger claimed until its fire is released, so a trigger fires on one node at a
// time and successive occurrences of the same trigger never overlap.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// FireHandler executes the job behind a fire
type FireHandler interface {
	Execute(ctx context.Context, fire domain.Fire) (*domain.TransferResult, error)
}

// Config tunes the gateway. Zero values fall back to defaults.
type Config struct {
	InstanceID       string
	Workers          int
	PollInterval     time.Duration
	BatchSize        int
	MisfireThreshold time.Duration
	RecoveryAfter    time.Duration
	DedupTTL         time.Duration
}

const (
	defaultInstanceID       = "transferflow"
	defaultWorkers          = 4
	defaultPollInterval     = time.Second
	defaultBatchSize        = 16
	defaultMisfireThreshold = time.Minute
	defaultRecoveryAfter    = 10 * time.Minute
	defaultDedupTTL         = 24 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.InstanceID == "" {
		c.InstanceID = defaultInstanceID
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MisfireThreshold <= 0 {
		c.MisfireThreshold = defaultMisfireThreshold
	}
	if c.RecoveryAfter <= 0 {
		c.RecoveryAfter = defaultRecoveryAfter
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = defaultDedupTTL
	}
	return c
}

// Option configures optional gateway collaborators
type Option func(*Gateway)

// WithDeduplicator guards every fire with a claim on its key.
func WithDeduplicator(d domain.FireDeduplicator) Option {
	return func(g *Gateway) { g.dedup = d }
}

// WithRecorder writes a FireOutcome for every fire to the execution audit.
func WithRecorder(r domain.ExecutionRecorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// Gateway schedules jobs durably and executes them when their triggers fire
type Gateway struct {
	store    domain.JobStore
	handler  FireHandler
	dedup    domain.FireDeduplicator
	recorder domain.ExecutionRecorder

	cfg   Config
	log   zerolog.Logger
	now   func() time.Time
	queue chan domain.Fire
}

// NewGateway creates a Gateway over the given store and handler
func NewGateway(store domain.JobStore, handler FireHandler, cfg Config, log zerolog.Logger, opts ...Option) *Gateway {
	cfg = cfg.withDefaults()
	g := &Gateway{
		store:   store,
		handler: handler,
		cfg:     cfg,
		log:     log.With().Str("component", "scheduler").Str("instance_id", cfg.InstanceID).Logger(),
		now:     time.Now,
		queue:   make(chan domain.Fire, cfg.BatchSize),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Schedule stores the job and its trigger atomically. It returns once both are
// durable; any store error matches domain.ErrSchedulingFailure.
func (g *Gateway) Schedule(ctx context.Context, job *domain.ScheduledJob, trig *domain.Trigger) error {
	if err := g.store.Save(ctx, job, trig); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSchedulingFailure, err)
	}
	g.log.Info().
		Str("job_id", job.ID).
		Str("trigger_id", trig.ID).
		Str("trigger_group", trig.Group).
		Time("next_fire_at", trig.NextFireAt).
		Msg("job stored")
	return nil
}

// Run polls the store and executes due fires until ctx is cancelled.
// Fires already being executed run to completion before Run returns.
func (g *Gateway) Run(ctx context.Context) error {
	g.log.Info().
		Int("workers", g.cfg.Workers).
		Dur("poll_interval", g.cfg.PollInterval).
		Msg("scheduler started")

	var wg sync.WaitGroup
	for i := 0; i < g.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.worker(ctx)
		}()
	}

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		g.poll(ctx)
		select {
		case <-ctx.Done():
			wg.Wait()
			g.log.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// poll claims due fires and queues them. Fires that cannot be queued before ctx
// ends stay claimed and are recovered once their claim goes stale.
func (g *Gateway) poll(ctx context.Context) {
	fires, err := g.store.AcquireDue(ctx, g.cfg.InstanceID, g.now().UTC(), g.cfg.BatchSize, g.cfg.RecoveryAfter)
	if err != nil {
		if ctx.Err() == nil {
			g.log.Error().Err(err).Msg("failed to acquire due triggers")
		}
		return
	}
	for _, fire := range fires {
		select {
		case g.queue <- fire:
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) worker(ctx context.Context) {
	// A fire in progress is not interrupted by shutdown.
	execCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case fire := <-g.queue:
			g.process(execCtx, fire)
		}
	}
}

// process runs one fire and hands its trigger back to the store
func (g *Gateway) process(ctx context.Context, fire domain.Fire) {
	started := g.now().UTC()
	log := g.log.With().
		Str("job_id", fire.JobID).
		Str("trigger_id", fire.TriggerID).
		Str("fire_key", fire.Key()).
		Logger()

	outcome := domain.FireOutcome{
		FireKey:      fire.Key(),
		JobID:        fire.JobID,
		TriggerID:    fire.TriggerID,
		TriggerGroup: fire.TriggerGroup,
		ScheduledFor: fire.ScheduledFor,
		StartedAt:    started,
	}

	// 1. Misfire handling
	if domain.IsMisfired(fire.ScheduledFor, started, g.cfg.MisfireThreshold) {
		if fire.Trigger.Misfire == domain.MisfireSkipMissed {
			log.Warn().Time("scheduled_for", fire.ScheduledFor).Msg("skipping missed occurrence")
			outcome.Status = domain.FireSkippedMisfire
			g.finish(ctx, log, fire, outcome, started)
			return
		}
		log.Warn().Time("scheduled_for", fire.ScheduledFor).Msg("misfired, firing now")
	}

	// 2. Duplicate guard
	if g.dedup != nil {
		claimed, err := g.dedup.Claim(ctx, fire.Key(), g.cfg.DedupTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("fire dedup unavailable, relying on store claim")
		case !claimed:
			log.Warn().Msg("occurrence already executed, skipping")
			outcome.Status = domain.FireSkippedDuplicate
			g.finish(ctx, log, fire, outcome, fire.ScheduledFor)
			return
		}
	}

	// 3. Execute
	result, err := g.handler.Execute(ctx, fire)
	if err != nil {
		outcome.Status = domain.FireFailed
		outcome.Error = err.Error()
	} else {
		outcome.Status = domain.FireSucceeded
		if result != nil {
			outcome.TransactionID = result.TransactionID
		}
	}

	// 4. Record and release
	g.finish(ctx, log, fire, outcome, fire.ScheduledFor)
}

// finish records the outcome and releases the trigger to its next occurrence
// strictly after `after`, or removes it when there is none.
func (g *Gateway) finish(ctx context.Context, log zerolog.Logger, fire domain.Fire, outcome domain.FireOutcome, after time.Time) {
	outcome.FinishedAt = g.now().UTC()
	if g.recorder != nil {
		if err := g.recorder.Record(ctx, outcome); err != nil {
			log.Warn().Err(err).Msg("failed to record fire outcome")
		}
	}

	var next *time.Time
	at, ok, err := fire.Trigger.FireTimeAfter(after)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("failed to compute next fire time, removing trigger")
	case ok:
		next = &at
	}

	if err := g.store.Release(ctx, fire, next); err != nil {
		log.Error().Err(err).Msg("failed to release trigger")
		return
	}

	evt := log.Info().Str("status", string(outcome.Status))
	if next != nil {
		evt = evt.Time("next_fire_at", *next)
	}
	evt.Msg("fire finished")
}
