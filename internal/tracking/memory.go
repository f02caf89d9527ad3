package tracking

import (
	"context"
	"sync"
)

// Memory keeps records in memory, in arrival order.
type Memory struct {
	sink
	mu      sync.Mutex
	records []Record
}

// NewMemory creates an empty in-memory tracker.
func NewMemory() *Memory {
	m := &Memory{}
	m.sink = sink{emit: m.add}
	return m
}

func (m *Memory) add(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// Records returns a copy of every record of the given kind. An empty kind
// returns all records.
func (m *Memory) Records(kind Kind) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Params returns the tracked parameters keyed by name.
func (m *Memory) Params() map[string]any {
	out := make(map[string]any)
	for _, r := range m.Records(KindParam) {
		out[r.Key] = r.Value
	}
	return out
}

// Artifacts returns the tracked artifact locations keyed by name.
func (m *Memory) Artifacts() map[string]string {
	out := make(map[string]string)
	for _, r := range m.Records(KindArtifact) {
		out[r.Key], _ = r.Value.(string)
	}
	return out
}
