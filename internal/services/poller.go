package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/observability"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/models"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
)

type PollOutcome string

const (
	PollSucceeded PollOutcome = "succeeded"
	PollFailed    PollOutcome = "failed"
	PollTimedOut  PollOutcome = "timed_out"
)

type PollConfig struct {
	// Delays before successive attempts; the last one repeats.
	Delays []time.Duration
	// Budget bounds the whole loop, measured from its start.
	Budget time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Delays: []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second, 30 * time.Second},
		Budget: 3 * time.Minute,
	}
}

// Poller runs at most one status loop per transaction id, across instances
// when the lock store is shared Redis.
type Poller struct {
	checker StatusChecker
	locks   redis.RedisClient
	cfg     PollConfig

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

func NewPoller(checker StatusChecker, locks redis.RedisClient, cfg PollConfig) *Poller {
	if len(cfg.Delays) == 0 {
		cfg.Delays = DefaultPollConfig().Delays
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultPollConfig().Budget
	}
	return &Poller{
		checker: checker,
		locks:   locks,
		cfg:     cfg,
		active:  make(map[string]struct{}),
	}
}

// Start launches a background loop for transactionID. The loop outlives the
// caller's request but not the poll budget.
func (p *Poller) Start(ctx context.Context, transactionID string) error {
	if err := p.acquire(ctx, transactionID); err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.release(bg, transactionID)
		outcome := p.run(bg, transactionID)
		slog.Info("status poll finished", "transaction_id", transactionID, "outcome", outcome)
	}()
	return nil
}

// Wait blocks until every background loop has returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, transactionID string) PollOutcome {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Budget)
	defer cancel()
	deadline, _ := ctx.Deadline()

	observability.ActivePolls.Inc()
	defer observability.ActivePolls.Dec()

	for attempt := 0; ; attempt++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return PollTimedOut
		}
		delay := p.cfg.Delays[min(attempt, len(p.cfg.Delays)-1)]
		if delay > remaining {
			delay = remaining
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return PollTimedOut
		case <-timer.C:
		}

		res, err := p.checker.Check(ctx, transactionID)
		if err != nil {
			slog.Warn("status poll attempt failed", "transaction_id", transactionID, "attempt", attempt+1, "error", err)
			continue
		}
		switch res.Status {
		case models.StatusCompleted:
			return PollSucceeded
		case models.StatusFailed:
			return PollFailed
		}
		slog.Debug("transaction still pending", "transaction_id", transactionID, "attempt", attempt+1, "provider_status", res.ProviderStatus)
	}
}

func (p *Poller) acquire(ctx context.Context, transactionID string) error {
	p.mu.Lock()
	if _, ok := p.active[transactionID]; ok {
		p.mu.Unlock()
		return pkgerrors.ErrPollInProgress
	}
	p.active[transactionID] = struct{}{}
	p.mu.Unlock()

	if p.locks == nil {
		return nil
	}
	ok, err := p.locks.SetNX(ctx, redis.PollLockKey(transactionID), 1, p.cfg.Budget+time.Minute)
	if err != nil {
		// Local set still dedups within this instance.
		slog.Warn("poll lock unavailable, using local dedup only", "transaction_id", transactionID, "error", err)
		return nil
	}
	if !ok {
		p.mu.Lock()
		delete(p.active, transactionID)
		p.mu.Unlock()
		return pkgerrors.ErrPollInProgress
	}
	return nil
}

func (p *Poller) release(ctx context.Context, transactionID string) {
	if p.locks != nil {
		if err := p.locks.Del(context.WithoutCancel(ctx), redis.PollLockKey(transactionID)); err != nil {
			slog.Warn("failed to release poll lock", "transaction_id", transactionID, "error", err)
		}
	}
	p.mu.Lock()
	delete(p.active, transactionID)
	p.mu.Unlock()
}
