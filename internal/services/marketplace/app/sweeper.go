package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/session"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

const (
	// DefaultSweepInterval is how often expiry and completion run.
	DefaultSweepInterval = 10 * time.Minute
	// DefaultSwapPendingTTL is how long a swap request may stay pending.
	DefaultSwapPendingTTL = 14 * 24 * time.Hour
)

type sweepStore interface {
	ExpirePendingSwaps(ctx context.Context, createdBefore time.Time, at time.Time) (int64, error)
	CompleteEndedSessions(ctx context.Context, endedBefore time.Time, at time.Time) (int64, error)
}

// SweepResult counts the rows one sweep changed.
type SweepResult struct {
	ExpiredSwaps      int64
	CompletedSessions int64
}

// Sweeper expires stale swap requests and completes finished sessions.
type Sweeper struct {
	store      sweepStore
	interval   time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

// NewSweeper builds a sweeper. Non-positive durations take the defaults.
func NewSweeper(store sweepStore, interval time.Duration, pendingTTL time.Duration, now func() time.Time) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if pendingTTL <= 0 {
		pendingTTL = DefaultSwapPendingTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: store, interval: interval, pendingTTL: pendingTTL, now: now}
}

// Run sweeps once immediately and then on every tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	if s == nil || s.store == nil {
		return errors.New("sweeper store is required")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("sweeper: sweep failed err=%v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce runs both sweeps at the current time.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	now := s.now().UTC()
	var result SweepResult
	expired, err := s.store.ExpirePendingSwaps(ctx, swap.ExpiryCutoff(now, s.pendingTTL), now)
	if err != nil {
		return result, err
	}
	result.ExpiredSwaps = expired
	completed, err := s.store.CompleteEndedSessions(ctx, session.CompletionCutoff(now), now)
	if err != nil {
		return result, err
	}
	result.CompletedSessions = completed
	if expired > 0 || completed > 0 {
		log.Printf("sweeper: expired_swaps=%d completed_sessions=%d", expired, completed)
	}
	return result, nil
}
