// Package engine implements the position-lifecycle and signal-reconciliation
// state machine: one tick per (table, timeframe, instrument) key decides
// whether a new signal may be opened or an open position must be closed.
package engine

import (
	"context"
	"errors"
	"fmt"

	"aisignalbot/internal/domain"
	"aisignalbot/internal/pnl"
	"aisignalbot/internal/ports"
	"aisignalbot/internal/signal"
)

// Config holds the collaborators and settings of the reconciliation engine.
type Config struct {
	Store    ports.PositionStore
	Oracle   ports.Oracle
	Bars     ports.BarSource
	Charts   ports.ChartExcerpter
	Notifier ports.Notifier
	Logger   ports.Logger

	// Question is the natural-language question appended to every prompt.
	Question string
	// PromptTimeframes are the chart timeframes excerpted into each prompt,
	// giving the oracle wider context than the tick's own timeframe.
	PromptTimeframes []string
}

// Engine reconciles one key per Tick call. All access to a key's position
// row is serialized by the caller: a key's tick runs to completion before
// the next scheduled tick for that key begins.
type Engine struct {
	store    ports.PositionStore
	oracle   ports.Oracle
	bars     ports.BarSource
	charts   ports.ChartExcerpter
	notifier ports.Notifier
	logger   ports.Logger

	question         string
	promptTimeframes []string
}

// New creates a reconciliation engine and validates its dependencies.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Oracle == nil || cfg.Bars == nil ||
		cfg.Charts == nil || cfg.Notifier == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for reconciliation engine")
	}
	if cfg.Question == "" {
		return nil, fmt.Errorf("oracle question must not be empty")
	}
	return &Engine{
		store:            cfg.Store,
		oracle:           cfg.Oracle,
		bars:             cfg.Bars,
		charts:           cfg.Charts,
		notifier:         cfg.Notifier,
		logger:           cfg.Logger,
		question:         cfg.Question,
		promptTimeframes: cfg.PromptTimeframes,
	}, nil
}

// Tick runs one reconciliation step for the key. Failures are returned to
// the caller, which contains them at the per-key boundary; no failure here
// may abort processing of sibling keys.
func (e *Engine) Tick(ctx context.Context, key domain.Key) error {
	open, err := e.store.FindOpen(ctx, key.Table, key.Timeframe, key.Instrument)
	if err != nil {
		return fmt.Errorf("open position lookup for %s: %w", key, err)
	}
	if open == nil {
		return e.requestSignal(ctx, key)
	}
	return e.checkThresholds(ctx, key, open)
}

// requestSignal handles the NoPosition state: ask the oracle, parse the
// reply and open a position when it carries a usable signal.
func (e *Engine) requestSignal(ctx context.Context, key domain.Key) error {
	prompt, err := e.buildPrompt(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrDataUnavailable) {
			e.logger.Info(ctx, "Chart data unavailable, skipping tick", map[string]interface{}{"key": key.String()})
			return nil
		}
		return fmt.Errorf("building prompt for %s: %w", key, err)
	}

	reply, err := e.oracle.Ask(ctx, prompt)
	if err != nil {
		return fmt.Errorf("oracle call for %s: %w", key, err)
	}

	wrapped := signal.ExtractWrapped(reply)
	if wrapped == "" {
		e.logger.Info(ctx, "Oracle reply has no wrapped fragments, no signal", map[string]interface{}{"key": key.String()})
		return nil
	}

	proposal := signal.Parse(wrapped)
	if !proposal.Actionable() {
		e.logger.Info(ctx, "Oracle reply has no actionable signal", map[string]interface{}{"key": key.String()})
		return nil
	}

	record := signal.BuildRecord(proposal, key.Timeframe, key.Instrument)
	if err := e.store.Insert(ctx, key.Table, record); err != nil {
		return fmt.Errorf("persisting new position for %s: %w", key, err)
	}
	e.logger.Info(ctx, "Opened new position", map[string]interface{}{
		"key":    key.String(),
		"signal": string(record.Signal),
		"open":   record.Open,
		"SL":     record.StopLoss,
		"TP":     record.TakeProfit,
	})

	// Persisted state is the source of truth; delivery is best-effort.
	msg := signal.NewSignalMessage(record, key, proposal.Rationale)
	if err := e.notifier.Send(ctx, msg); err != nil {
		e.logger.Warn(ctx, "Failed to deliver new-signal notification", map[string]interface{}{"key": key.String(), "error": err.Error()})
	}
	return nil
}

// buildPrompt collects chart excerpts for the configured prompt timeframes.
// Files that cannot be read are skipped; only when no excerpt at all is
// available does the prompt count as unavailable.
func (e *Engine) buildPrompt(ctx context.Context, key domain.Key) (string, error) {
	timeframes := e.promptTimeframes
	if len(timeframes) == 0 {
		timeframes = []string{key.Timeframe}
	}

	excerpts := make([]signal.Excerpt, 0, len(timeframes))
	for _, tf := range timeframes {
		body, err := e.charts.Excerpt(ctx, key.Instrument, tf)
		if err != nil {
			if errors.Is(err, ports.ErrDataUnavailable) {
				e.logger.Warn(ctx, "Chart excerpt unavailable, skipping file", map[string]interface{}{"instrument": key.Instrument, "timeframe": tf})
				continue
			}
			return "", err
		}
		excerpts = append(excerpts, signal.Excerpt{Timeframe: tf, Body: body})
	}
	if len(excerpts) == 0 {
		return "", ports.ErrDataUnavailable
	}

	question := fmt.Sprintf("%s Таймфрейм: %s. Стратегия: %s.", e.question, key.Timeframe, key.Table)
	return signal.BuildPrompt(excerpts, question), nil
}

// checkThresholds handles the PositionOpen state: evaluate the latest bar's
// extremes against stop-loss and take-profit.
//
// Both thresholds are checked independently against the same bar because
// only period-boundary extremes are available. A bar spanning both levels
// closes both in the same tick and double-accounts PnL; that is the
// observed accounting, preserved on purpose.
func (e *Engine) checkThresholds(ctx context.Context, key domain.Key, open *domain.OpenPosition) error {
	bar, err := e.bars.LatestExtremes(ctx, key.Instrument, key.Timeframe)
	if err != nil {
		if errors.Is(err, ports.ErrDataUnavailable) {
			// Never close on missing data: leave the position untouched.
			e.logger.Info(ctx, "Price data unavailable, skipping tick", map[string]interface{}{"key": key.String()})
			return nil
		}
		return fmt.Errorf("reading price extremes for %s: %w", key, err)
	}

	dir, ok := domain.NormalizeDirection(string(open.Signal))
	if !ok {
		return fmt.Errorf("stored position for %s has unrecognized signal %q", key, open.Signal)
	}

	var tpFired, slFired bool
	switch dir {
	case domain.Short:
		tpFired = open.TakeProfit > bar.Low
		slFired = open.StopLoss < bar.High
	case domain.Long:
		tpFired = open.TakeProfit < bar.High
		slFired = open.StopLoss > bar.Low
	}

	var errs []error
	if tpFired {
		if err := e.closeLeg(ctx, key, open, dir, domain.CloseReasonTakeProfit); err != nil {
			errs = append(errs, err)
		}
	}
	if slFired {
		if err := e.closeLeg(ctx, key, open, dir, domain.CloseReasonStopLoss); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// closeLeg closes the open row for one fired threshold: compute the signed
// realized return, persist the close, then notify.
func (e *Engine) closeLeg(ctx context.Context, key domain.Key, open *domain.OpenPosition, dir domain.Direction, reason domain.CloseReason) error {
	var realized float64
	var err error
	switch reason {
	case domain.CloseReasonTakeProfit:
		realized, err = pnl.ForTakeProfit(open.Open, open.TakeProfit)
	case domain.CloseReasonStopLoss:
		realized, err = pnl.ForStopLoss(open.Open, open.StopLoss)
	}
	if err != nil {
		// Degenerate computation: abandon the close and leave the position
		// open for the next tick to retry.
		e.logger.Error(ctx, err, "PnL computation failed, position left open", map[string]interface{}{"key": key.String(), "reason": string(reason)})
		return fmt.Errorf("pnl for %s close of %s: %w", reason, key, err)
	}

	affected, err := e.store.CloseAndAccumulate(ctx, key.Table, key.Timeframe, key.Instrument, realized)
	if err != nil {
		return fmt.Errorf("closing position for %s: %w", key, err)
	}
	e.logger.Info(ctx, "Position closed", map[string]interface{}{
		"key":          key.String(),
		"reason":       string(reason),
		"pnl":          realized,
		"rowsAffected": affected,
	})

	cumulative, err := e.store.CumulativePnL(ctx, key.Table, key.Timeframe)
	if err != nil {
		e.logger.Warn(ctx, "Cumulative PnL query failed, reporting close without total", map[string]interface{}{"key": key.String(), "error": err.Error()})
		cumulative = 0
	}

	msg := signal.CloseMessage(key, dir, reason, realized, cumulative)
	if err := e.notifier.Send(ctx, msg); err != nil {
		e.logger.Warn(ctx, "Failed to deliver close notification", map[string]interface{}{"key": key.String(), "error": err.Error()})
	}
	return nil
}
