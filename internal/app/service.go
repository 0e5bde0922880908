// Package app owns the application lifecycle: it builds the key set,
// drives the minute-aligned polling loop and fans ticks out to the
// reconciliation engine with per-key failure isolation.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"aisignalbot/internal/clock"
	"aisignalbot/internal/domain"
	"aisignalbot/internal/engine"
	"aisignalbot/internal/ports"
)

// Config holds the collaborators of the polling service.
type Config struct {
	Engine   *engine.Engine
	Schedule *clock.Schedule
	Clock    clock.Clock
	Logger   ports.Logger

	// Keys are the (table, timeframe, instrument) tuples reconciled each
	// time their timeframe comes due.
	Keys []domain.Key
	// TickTimeout bounds one key's reconciliation step.
	TickTimeout time.Duration
}

// ticker is the slice of the engine the loop drives; narrowed to an
// interface so the fan-out can be exercised in tests.
type ticker interface {
	Tick(ctx context.Context, key domain.Key) error
}

// Service runs the polling loop until its context is canceled.
type Service struct {
	engine      ticker
	schedule    *clock.Schedule
	clk         clock.Clock
	logger      ports.Logger
	keys        []domain.Key
	tickTimeout time.Duration
}

// New creates the polling service and validates its dependencies.
func New(cfg Config) (*Service, error) {
	if cfg.Engine == nil || cfg.Schedule == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for polling service")
	}
	if len(cfg.Keys) == 0 {
		return nil, fmt.Errorf("at least one reconciliation key is required")
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	tickTimeout := cfg.TickTimeout
	if tickTimeout <= 0 {
		tickTimeout = 3 * time.Minute
	}
	return &Service{
		engine:      cfg.Engine,
		schedule:    cfg.Schedule,
		clk:         clk,
		logger:      cfg.Logger,
		keys:        cfg.Keys,
		tickTimeout: tickTimeout,
	}, nil
}

// BuildKeys expands the configured tables, timeframes and instruments into
// the full key set, one independent state machine per combination.
func BuildKeys(tables, timeframes, instruments []string) []domain.Key {
	keys := make([]domain.Key, 0, len(tables)*len(timeframes)*len(instruments))
	for _, table := range tables {
		for _, tf := range timeframes {
			for _, coin := range instruments {
				keys = append(keys, domain.Key{Table: table, Timeframe: tf, Instrument: coin})
			}
		}
	}
	return keys
}

// Run starts the polling loop. It returns when the context is canceled or
// a shutdown signal arrives; in-flight ticks complete naturally.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info(ctx, "Starting polling service", map[string]interface{}{"keys": len(s.keys)})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		now := s.clk.Now()
		wake := s.schedule.NextWake(now)
		timer := time.NewTimer(wake.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info(ctx, "Polling service stopped")
			return nil
		case <-timer.C:
		}

		s.runDueTicks(ctx, wake)
	}
}

// runDueTicks launches one task per due key and joins them all. A failed
// or panicking key never aborts its siblings.
func (s *Service) runDueTicks(ctx context.Context, now time.Time) {
	due := make([]domain.Key, 0, len(s.keys))
	for _, key := range s.keys {
		if s.schedule.Due(now, key.Timeframe) {
			due = append(due, key)
		}
	}
	if len(due) == 0 {
		return
	}
	s.logger.Debug(ctx, "Running due ticks", map[string]interface{}{"count": len(due), "at": now.Format(time.RFC3339)})

	var wg sync.WaitGroup
	for _, key := range due {
		wg.Add(1)
		go func(k domain.Key) {
			defer wg.Done()
			s.runTick(ctx, k)
		}(key)
	}
	wg.Wait()
}

func (s *Service) runTick(ctx context.Context, key domain.Key) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, fmt.Errorf("panic: %v", r), "Tick panicked", map[string]interface{}{"key": key.String()})
		}
	}()

	tickCtx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	if err := s.engine.Tick(tickCtx, key); err != nil {
		s.logger.Error(ctx, err, "Tick failed", map[string]interface{}{"key": key.String()})
	}
}
