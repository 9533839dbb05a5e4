package cryptii

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is how the pipe used the result of a brick operation.
type Outcome string

const (
	// OutcomeCommitted means the translation result was handed to its
	// result bucket (which may have found it equal to its content).
	OutcomeCommitted Outcome = "committed"
	// OutcomeDiscarded means the brick left the pipe while running.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeReversed means the selection moved across the brick while it
	// was running; the opposite direction was triggered instead.
	OutcomeReversed Outcome = "reversed"
	OutcomeFailed   Outcome = "failed"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeViewed   Outcome = "viewed"
)

// RunRecord describes one completed brick operation.
type RunRecord struct {
	Seq       uint64
	BrickID   uuid.UUID
	BrickName string
	Kind      OperationKind
	IsEncode  bool
	Started   time.Time
	Duration  time.Duration
	Outcome   Outcome
	// Retriggered is set when the source or settings changed while the
	// operation ran and it was started again.
	Retriggered bool
	Err         error
}

// RunLog is a bounded record of brick operations; the oldest records are
// evicted first.
type RunLog struct {
	mu      sync.RWMutex
	records []RunRecord
	limit   int
	seq     uint64
}

func newRunLog(limit int) *RunLog {
	return &RunLog{limit: limit}
}

func (l *RunLog) add(rec RunRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit <= 0 {
		return
	}
	l.seq++
	rec.Seq = l.seq
	l.records = append(l.records, rec)
	if len(l.records) > l.limit {
		l.evictOldest()
	}
}

func (l *RunLog) evictOldest() {
	n := len(l.records) - l.limit
	copy(l.records, l.records[n:])
	l.records = l.records[:l.limit]
}

// Records returns the retained records, oldest first.
func (l *RunLog) Records() []RunRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]RunRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Filter returns the retained records matching predicate, oldest first.
func (l *RunLog) Filter(predicate func(RunRecord) bool) []RunRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []RunRecord
	for _, rec := range l.records {
		if predicate(rec) {
			result = append(result, rec)
		}
	}
	return result
}

// ForBrick returns the retained records of one brick.
func (l *RunLog) ForBrick(id uuid.UUID) []RunRecord {
	return l.Filter(func(rec RunRecord) bool {
		return rec.BrickID == id
	})
}

// Len returns the number of retained records.
func (l *RunLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
