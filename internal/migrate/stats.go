// ABOUTME: Per-step migration statistics: rows read and written per table
// ABOUTME: Logged once a step commits so operators can check nothing was dropped

package migrate

import (
	"log/slog"
	"sort"
	"time"
)

// Stats tracks migration progress for one step
type Stats struct {
	From     int
	To       int
	Read     map[string]int
	Written  map[string]int
	Duration time.Duration
}

func newStats(from, to int) *Stats {
	return &Stats{
		From:    from,
		To:      to,
		Read:    make(map[string]int),
		Written: make(map[string]int),
	}
}

func (s *Stats) read(table string, n int)    { s.Read[table] += n }
func (s *Stats) written(table string, n int) { s.Written[table] += n }

// Tables returns every table touched by the step, sorted.
func (s *Stats) Tables() []string {
	seen := make(map[string]struct{})
	for t := range s.Read {
		seen[t] = struct{}{}
	}
	for t := range s.Written {
		seen[t] = struct{}{}
	}
	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

func (s *Stats) log(logger *slog.Logger, name string) {
	logger.Info("applied migration",
		"from", s.From,
		"to", s.To,
		"step", name,
		"duration", s.Duration,
	)
	for _, t := range s.Tables() {
		logger.Info("migrated table", "table", t, "read", s.Read[t], "written", s.Written[t])
	}
}
