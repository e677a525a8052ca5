package weather

import (
	"context"
	"time"
)

// Buffer holds readings between ingest and the scheduled tasks.
type Buffer interface {
	Append(r Reading)
	Latest() (Reading, bool)
	Drain() []Reading
	Len() int
}

// Publisher pushes a payload to the message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
}

// Sink persists a batch of drained readings for the given day.
type Sink interface {
	Write(day time.Time, readings []Reading) (FlushResult, error)
}
