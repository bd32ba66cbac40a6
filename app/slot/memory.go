package slot

import (
	"context"
	"sync"
)

// Memory keeps values in process memory. It outlives the stores built on it,
// which makes it handy for simulating a reload.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
	writes int
	err    error
}

// NewMemory creates an empty in-memory slot.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrEmpty
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key, or returns the error set with FailWith.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.values[key] = append([]byte(nil), value...)
	m.writes++
	return nil
}

// Close is a no-op.
func (m *Memory) Close(context.Context) error { return nil }

// Writes reports how many successful Set calls have been made.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// FailWith makes subsequent Set calls return err. A nil err clears it.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
