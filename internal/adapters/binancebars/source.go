// Package binancebars serves price extremes and chart excerpts from the
// Binance futures kline API, as an alternative to chart-export CSV files.
package binancebars

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2/futures"

	"aisignalbot/internal/domain"
	"aisignalbot/internal/ports"
)

// intervals maps the bot's timeframe names to Binance kline intervals.
var intervals = map[string]string{
	"M15": "15m",
	"H1":  "1h",
	"H4":  "4h",
	"D1":  "1d",
}

const defaultSymbolSuffix = "USDT"

// Source implements ports.BarSource and ports.ChartExcerpter using the
// go-binance futures client. Only public endpoints are used, so API keys
// are optional.
type Source struct {
	client       *futures.Client
	logger       ports.Logger
	symbolSuffix string
	tail         int
}

// Config holds configuration specific to the Binance source.
type Config struct {
	APIKey    string
	SecretKey string
	// SymbolSuffix is appended to instrument names that are not already
	// full symbols (BTC -> BTCUSDT). Defaults to USDT.
	SymbolSuffix string
	// Tail is how many trailing klines an excerpt carries.
	Tail   int
	Logger ports.Logger
}

// New creates a Binance-backed source.
func New(cfg Config) (*Source, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance source")
	}
	suffix := cfg.SymbolSuffix
	if suffix == "" {
		suffix = defaultSymbolSuffix
	}
	tail := cfg.Tail
	if tail <= 0 {
		tail = 100
	}
	return &Source{
		client:       futures.NewClient(cfg.APIKey, cfg.SecretKey),
		logger:       cfg.Logger,
		symbolSuffix: suffix,
		tail:         tail,
	}, nil
}

func (s *Source) symbol(instrument string) string {
	if strings.HasSuffix(instrument, s.symbolSuffix) {
		return instrument
	}
	return instrument + s.symbolSuffix
}

func (s *Source) interval(timeframe string) (string, error) {
	iv, ok := intervals[timeframe]
	if !ok {
		return "", fmt.Errorf("no Binance interval for timeframe %q: %w", timeframe, ports.ErrDataUnavailable)
	}
	return iv, nil
}

func (s *Source) fetch(ctx context.Context, instrument, timeframe string, limit int) ([]*futures.Kline, error) {
	iv, err := s.interval(timeframe)
	if err != nil {
		return nil, err
	}
	klines, err := s.client.NewKlinesService().
		Symbol(s.symbol(instrument)).
		Interval(iv).
		Limit(limit).
		Do(ctx)
	if err != nil {
		// The engine treats any fetch failure as a skipped tick, never as
		// grounds to close a position.
		return nil, fmt.Errorf("fetching klines for %s %s: %v: %w", instrument, timeframe, err, ports.ErrDataUnavailable)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("no klines for %s %s: %w", instrument, timeframe, ports.ErrDataUnavailable)
	}
	return klines, nil
}

// LatestExtremes returns the high/low of the latest completed bar. The most
// recent kline is still forming, so the one before it is used when
// available.
func (s *Source) LatestExtremes(ctx context.Context, instrument, timeframe string) (*domain.Bar, error) {
	klines, err := s.fetch(ctx, instrument, timeframe, 2)
	if err != nil {
		return nil, err
	}
	k := klines[0]
	if len(klines) > 1 {
		k = klines[len(klines)-2]
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("kline high %q for %s %s: %w", k.High, instrument, timeframe, ports.ErrDataUnavailable)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("kline low %q for %s %s: %w", k.Low, instrument, timeframe, ports.ErrDataUnavailable)
	}
	return &domain.Bar{High: high, Low: low}, nil
}

// Excerpt renders recent klines as a delimiter-wrapped pseudo-CSV in the
// same shape the chart-export files have, so prompts look identical
// whichever source is configured.
func (s *Source) Excerpt(ctx context.Context, instrument, timeframe string) (string, error) {
	klines, err := s.fetch(ctx, instrument, timeframe, s.tail)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("{time,open,high,low,close,volume}")
	for _, k := range klines {
		sb.WriteString(fmt.Sprintf("\n{%d,%s,%s,%s,%s,%s}",
			k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume))
	}
	return sb.String(), nil
}
