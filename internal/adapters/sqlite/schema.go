package sqlite

import (
	"fmt"
	"strings"

	"aisignalbot/internal/ports"
)

// The schema registry is closed and statically declared: every table and
// column identifier that ever reaches SQL text must resolve here first.
// Caller-supplied strings are never interpolated into queries directly.

type column struct {
	name    string
	sqlType string
}

type tableSchema struct {
	columns []column
}

// positionColumns is the shared layout of every per-strategy position
// table. The pnl column is intentionally absent: it is added lazily by the
// first close on a table (see ensurePnLColumn).
var positionColumns = []column{
	{"timeframe", "TEXT"},
	{"coin_name", "TEXT"},
	{"signal", "TEXT"},
	{"open", "REAL"},
	{"SL", "REAL"},
	{"TP", "REAL"},
	{"status", "INTEGER"},
}

// registry maps each strategy table (a risk-reward variant) to its schema.
var registry = map[string]tableSchema{
	"RR3": {columns: positionColumns},
	"RR5": {columns: positionColumns},
}

// pnlColumn is the lazily migrated realized-return column.
const pnlColumn = "pnl"

func (s tableSchema) hasColumn(name string) bool {
	for _, c := range s.columns {
		if c.name == name {
			return true
		}
	}
	return false
}

func (s tableSchema) createStatement(table string) string {
	defs := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		defs = append(defs, c.name+" "+c.sqlType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", table, strings.Join(defs, ", "))
}

// lookupTable resolves a table name against the registry.
func lookupTable(table string) (tableSchema, error) {
	s, ok := registry[table]
	if !ok {
		return tableSchema{}, fmt.Errorf("table %q: %w", table, ports.ErrUnknownTable)
	}
	return s, nil
}

// TableNames lists the registered strategy tables, for config validation.
func TableNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether a strategy table is declared in the registry.
func IsRegistered(table string) bool {
	_, ok := registry[table]
	return ok
}
