package store

import (
	"sync"

	"github.com/i474232898/weather-bridge/internal/weather"
)

// MemoryBuffer is a concurrency-safe, arrival-ordered buffer of readings.
// Every operation holds the mutex for its whole duration, so a Drain sees a
// consistent snapshot and a concurrent Append lands either in that snapshot
// or in the buffer afterwards, never in both.
type MemoryBuffer struct {
	mu       sync.Mutex
	readings []weather.Reading
}

// NewMemoryBuffer creates an empty buffer.
func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{}
}

// Append adds r to the tail.
func (b *MemoryBuffer) Append(r weather.Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.readings = append(b.readings, r)
}

// Latest returns the most recent reading without removing it.
func (b *MemoryBuffer) Latest() (weather.Reading, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.readings) == 0 {
		return weather.Reading{}, false
	}
	return b.readings[len(b.readings)-1], true
}

// Drain returns everything buffered and leaves the buffer empty.
func (b *MemoryBuffer) Drain() []weather.Reading {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.readings
	b.readings = nil
	return out
}

// Len returns the number of buffered readings.
func (b *MemoryBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.readings)
}

var _ weather.Buffer = (*MemoryBuffer)(nil)
