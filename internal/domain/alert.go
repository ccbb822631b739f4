package domain

import "time"

// EventType names a supported alert family.
type EventType string

const (
	EventThunderstorm EventType = "thunderstorm"
	EventUnsupported  EventType = "unsupported"
)

// Observation is one alert file picked up by the watcher, parsed but not yet classified.
type Observation struct {
	Path       string
	EventType  EventType
	Document   *Document
	ObservedAt time.Time
}

// Batch is the set of observations released by one debounce window, in arrival order.
type Batch []Observation

// Paths lists the source files of the batch.
func (b Batch) Paths() []string {
	paths := make([]string, len(b))
	for i, obs := range b {
		paths[i] = obs.Path
	}
	return paths
}

// CapRecord is a classified alert ready for dedup and rendering.
type CapRecord struct {
	Identifier string
	EventType  EventType
	TestMode   bool
	Onset      time.Time
	Expires    time.Time
	Counties   []string
	Townships  []string
	SourcePath string
}

// Partition is the formal or test subset of one batch.
type Partition struct {
	Test    bool
	Records []CapRecord
}

// Identifiers returns the record identifiers in order.
func (p Partition) Identifiers() []string {
	ids := make([]string, len(p.Records))
	for i, rec := range p.Records {
		ids[i] = rec.Identifier
	}
	return ids
}

// Paths returns the source files of the partition.
func (p Partition) Paths() []string {
	paths := make([]string, len(p.Records))
	for i, rec := range p.Records {
		paths[i] = rec.SourcePath
	}
	return paths
}

// Last returns the most recently observed record.
func (p Partition) Last() CapRecord {
	return p.Records[len(p.Records)-1]
}

// ArtifactPair holds the rendered counties summary and townships list.
type ArtifactPair struct {
	Counties  string
	Townships string
}

// Outcome is a single reportable result of a pipeline step.
type Outcome struct {
	EventType   EventType
	Message     string
	Identifiers []string
	Rename      []string
	Succeeded   bool
	RenameAs    string
	SendEmail   bool
	At          time.Time
}
