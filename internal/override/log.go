package override

import (
	"sync"
	"time"

	"github.com/bookwright/steward/internal/governance"
)

// Log is the in-memory append-only override trail, keyed by proposal ID.
// Records are copied on the way out; the trail itself is never mutated.
type Log struct {
	mu      sync.RWMutex
	records map[string][]Record
	sink    Sink
	now     func() time.Time
}

// Sink receives accepted records for durable storage. Persistence failures
// are reported to the caller but do not roll back the in-memory append.
type Sink interface {
	AppendOverride(Record) error
}

// NewLog creates an empty trail. sink may be nil for memory-only operation.
func NewLog(sink Sink) *Log {
	return &Log{
		records: make(map[string][]Record),
		sink:    sink,
		now:     time.Now,
	}
}

// Submit validates the request against the decision, appends the accepted
// record, and returns it. Rejections leave the trail untouched.
func (l *Log) Submit(req Request, decision governance.Decision) (Record, error) {
	if err := Validate(req, decision); err != nil {
		return Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := NewRecord(req, decision, l.now())
	if err != nil {
		return Record{}, err
	}
	l.records[rec.ProposalID] = append(l.records[rec.ProposalID], rec)

	if l.sink != nil {
		if err := l.sink.AppendOverride(rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// ForProposal returns the audit trail for one proposal in append order.
func (l *Log) ForProposal(proposalID string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trail := l.records[proposalID]
	out := make([]Record, len(trail))
	copy(out, trail)
	return out
}

// Len reports the total number of accepted overrides.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, trail := range l.records {
		n += len(trail)
	}
	return n
}
