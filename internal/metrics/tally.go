package metrics

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Tally counts outcomes of a single run so they can be summarised in one
// log line once the run is over.
type Tally struct {
	counts map[string]int
	mu     sync.Mutex
}

func NewTally() *Tally {
	return &Tally{
		counts: make(map[string]int),
	}
}

func (t *Tally) Count(outcome string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[outcome]++
}

// Counts returns a copy of the current counts.
func (t *Tally) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.counts))
	for outcome, count := range t.counts {
		out[outcome] = count
	}
	return out
}

func (t *Tally) Log(logger *zap.Logger, msg string, fields ...zap.Field) {
	counts := t.Counts()
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fields = append(fields, zap.Int(outcome, counts[outcome]))
	}
	logger.Info(msg, fields...)
}
