package domain

// Ledger is the bounded FIFO of processed identifiers for one event type.
type Ledger struct {
	Capacity int      `json:"-"`
	Entries  []string `json:"processed_caps"`
}

// NewLedger returns an empty ledger with the given capacity.
func NewLedger(capacity int) Ledger {
	return Ledger{Capacity: capacity, Entries: []string{}}
}

// Contains reports whether id was already recorded. Lookups do not reorder entries.
func (l Ledger) Contains(id string) bool {
	for _, e := range l.Entries {
		if e == id {
			return true
		}
	}
	return false
}

// Record returns a new ledger with id appended, evicting the oldest entries beyond capacity.
func (l Ledger) Record(id string) Ledger {
	entries := make([]string, 0, len(l.Entries)+1)
	entries = append(entries, l.Entries...)
	entries = append(entries, id)
	if l.Capacity > 0 && len(entries) > l.Capacity {
		entries = entries[len(entries)-l.Capacity:]
	}
	return Ledger{Capacity: l.Capacity, Entries: entries}
}

// RecordAll appends ids in order, skipping any id the ledger already holds so repeats
// within one cycle take a single slot.
func (l Ledger) RecordAll(ids []string) Ledger {
	out := l
	for _, id := range ids {
		if out.Contains(id) {
			continue
		}
		out = out.Record(id)
	}
	return out
}
