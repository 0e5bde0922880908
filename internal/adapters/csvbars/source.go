// Package csvbars reads price extremes and chart excerpts from CSV files
// exported by the charting site, one file per (instrument, timeframe).
package csvbars

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"aisignalbot/internal/domain"
	"aisignalbot/internal/ports"
)

const defaultTail = 300

// Source implements ports.BarSource and ports.ChartExcerpter over a
// directory of chart exports.
type Source struct {
	dir    string
	tail   int
	logger ports.Logger
}

// Config holds configuration for the CSV source.
type Config struct {
	// Dir is the directory holding the exported chart files.
	Dir string
	// Tail is how many trailing data lines an excerpt carries.
	Tail   int
	Logger ports.Logger
}

// New creates a CSV-backed source.
func New(cfg Config) (*Source, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for CSV source")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("chart directory is required for CSV source")
	}
	tail := cfg.Tail
	if tail <= 0 {
		tail = defaultTail
	}
	return &Source{dir: cfg.Dir, tail: tail, logger: cfg.Logger}, nil
}

// fileName maps a key to its export file. Multi-instrument setups prefix
// the file with the coin name; the bare timeframe name is the fallback the
// chart exporter produces for a single tracked instrument.
func (s *Source) filePath(instrument, timeframe string) string {
	prefixed := filepath.Join(s.dir, instrument+"_"+timeframe+".csv")
	if _, err := os.Stat(prefixed); err == nil {
		return prefixed
	}
	return filepath.Join(s.dir, timeframe+".csv")
}

// LatestExtremes reads only the header (to locate the high/low columns) and
// the last data row of the file. Missing file, empty content or missing
// required columns all report ErrDataUnavailable.
func (s *Source) LatestExtremes(ctx context.Context, instrument, timeframe string) (*domain.Bar, error) {
	path := s.filePath(instrument, timeframe)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, ports.ErrDataUnavailable)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, ports.ErrDataUnavailable)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s has no data rows: %w", path, ports.ErrDataUnavailable)
	}

	highIdx, lowIdx := -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "high":
			highIdx = i
		case "low":
			lowIdx = i
		}
	}
	if highIdx < 0 || lowIdx < 0 {
		return nil, fmt.Errorf("%s lacks high/low columns: %w", path, ports.ErrDataUnavailable)
	}

	last := records[len(records)-1]
	if len(last) <= highIdx || len(last) <= lowIdx {
		return nil, fmt.Errorf("%s last row is short: %w", path, ports.ErrDataUnavailable)
	}

	high, err := strconv.ParseFloat(strings.TrimSpace(last[highIdx]), 64)
	if err != nil {
		return nil, fmt.Errorf("%s high value %q: %w", path, last[highIdx], ports.ErrDataUnavailable)
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(last[lowIdx]), 64)
	if err != nil {
		return nil, fmt.Errorf("%s low value %q: %w", path, last[lowIdx], ports.ErrDataUnavailable)
	}

	return &domain.Bar{High: high, Low: low}, nil
}

// Excerpt renders the header line plus the trailing data lines, each
// wrapped in a delimiter pair, ready for prompt embedding.
func (s *Source) Excerpt(ctx context.Context, instrument, timeframe string) (string, error) {
	path := s.filePath(instrument, timeframe)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, ports.ErrDataUnavailable)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, ports.ErrDataUnavailable)
	}
	if len(lines) < 2 {
		return "", fmt.Errorf("%s has no data rows: %w", path, ports.ErrDataUnavailable)
	}

	header, data := lines[0], lines[1:]
	if len(data) > s.tail {
		data = data[len(data)-s.tail:]
	}

	var sb strings.Builder
	sb.WriteString("{" + header + "}")
	for _, line := range data {
		sb.WriteString("\n{" + line + "}")
	}
	return sb.String(), nil
}
