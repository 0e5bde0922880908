package csvbars

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisignalbot/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newSource(t *testing.T, dir string, tail int) *Source {
	t.Helper()
	s, err := New(Config{Dir: dir, Tail: tail, Logger: &mockLogger{}})
	require.NoError(t, err)
	return s
}

const sampleCSV = "time,open,high,low,close\n" +
	"2025-03-10T12:00:00Z,100,105,99,104\n" +
	"2025-03-10T12:15:00Z,104,106,94,95\n"

func TestLatestExtremes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "M15.csv", sampleCSV)
	s := newSource(t, dir, 0)

	bar, err := s.LatestExtremes(context.Background(), "BTC", "M15")
	require.NoError(t, err)
	assert.Equal(t, 106.0, bar.High)
	assert.Equal(t, 94.0, bar.Low)
}

func TestLatestExtremes_InstrumentPrefixedFilePreferred(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "M15.csv", sampleCSV)
	writeFile(t, dir, "ETH_M15.csv", "time,high,low\n1,2000,1900\n")
	s := newSource(t, dir, 0)

	bar, err := s.LatestExtremes(context.Background(), "ETH", "M15")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, bar.High)
	assert.Equal(t, 1900.0, bar.Low)
}

func TestLatestExtremes_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		content string // empty string means no file at all
		skip    bool
	}{
		{name: "missing file", skip: true},
		{name: "empty file", content: ""},
		{name: "header only", content: "time,open,high,low,close\n"},
		{name: "missing high column", content: "time,open,low,close\n1,2,3,4\n"},
		{name: "missing low column", content: "time,open,high,close\n1,2,3,4\n"},
		{name: "unparsable extremes", content: "time,high,low\n1,abc,def\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if !tt.skip {
				writeFile(t, dir, "M15.csv", tt.content)
			}
			s := newSource(t, dir, 0)

			_, err := s.LatestExtremes(context.Background(), "BTC", "M15")
			assert.ErrorIs(t, err, ports.ErrDataUnavailable)
		})
	}
}

func TestExcerpt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "H1.csv", sampleCSV)
	s := newSource(t, dir, 0)

	got, err := s.Excerpt(context.Background(), "BTC", "H1")
	require.NoError(t, err)
	assert.Equal(t, "{time,open,high,low,close}\n"+
		"{2025-03-10T12:00:00Z,100,105,99,104}\n"+
		"{2025-03-10T12:15:00Z,104,106,94,95}", got)
}

func TestExcerpt_TailLimit(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	sb.WriteString("time,high,low\n")
	for i := 0; i < 10; i++ {
		sb.WriteString("x,1,2\n")
	}
	writeFile(t, dir, "M15.csv", sb.String())
	s := newSource(t, dir, 3)

	got, err := s.Excerpt(context.Background(), "BTC", "M15")
	require.NoError(t, err)
	// Header plus the last 3 data lines, each wrapped.
	assert.Equal(t, 4, strings.Count(got, "{"))
	assert.True(t, strings.HasPrefix(got, "{time,high,low}"))
}

func TestExcerpt_Unavailable(t *testing.T) {
	s := newSource(t, t.TempDir(), 0)

	_, err := s.Excerpt(context.Background(), "BTC", "M15")
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}
