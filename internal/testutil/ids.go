package testutil

import "sync"

// FixedRunIDGenerator generates the same run id every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedRunIDGenerator produces byte-identical
// journals.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a new fixed run id generator.
//
// The id is typically set in the scenario YAML:
//
//	run_id: "test-run-1"
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

// CountingReader is a deterministic entropy source.
//
// Each Read fills the buffer with a single byte value that increases by one
// per call, so successive UUID draws differ and are reproducible.
type CountingReader struct {
	mu   sync.Mutex
	next byte
}

// NewCountingReader creates a reader whose first fill byte is start.
func NewCountingReader(start byte) *CountingReader {
	return &CountingReader{next: start}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range p {
		p[i] = r.next
	}
	r.next++
	return len(p), nil
}

// RepeatReader returns the same bytes on every Read. It is used to force
// UUID collisions.
type RepeatReader struct {
	B byte
}

// Read implements io.Reader.
func (r RepeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.B
	}
	return len(p), nil
}
