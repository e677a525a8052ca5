package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/weather-bridge/internal/metrics"
)

// ServiceConfig holds the non-collaborator settings of a Service.
type ServiceConfig struct {
	// StateTopic receives the latest reading on every publish.
	StateTopic string

	// Location is used for reading timestamps and the daily file name.
	Location *time.Location

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service connects the reading buffer to the bus and to storage.
type Service struct {
	buffer  Buffer
	bus     Publisher
	sink    Sink
	metrics *metrics.Metrics
	log     *slog.Logger

	stateTopic string
	loc        *time.Location
	now        func() time.Time
}

// NewService creates a new Service.
func NewService(buffer Buffer, bus Publisher, sink Sink, m *metrics.Metrics, log *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		buffer:     buffer,
		bus:        bus,
		sink:       sink,
		metrics:    m,
		log:        log.With("component", "weather"),
		stateTopic: cfg.StateTopic,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
}

// Ingest turns raw query parameters into a Reading and buffers it.
// It never blocks on the bus or on disk.
func (s *Service) Ingest(params []Field) Reading {
	r := ReadingFromQuery(params, s.now().In(s.loc))
	s.buffer.Append(r)

	s.metrics.ReadingsIngested.Inc()
	s.metrics.BufferLength.Set(float64(s.buffer.Len()))
	return r
}

// Buffered returns the number of readings waiting for the next flush.
func (s *Service) Buffered() int {
	return s.buffer.Len()
}

// PublishLatest sends the newest buffered reading to the state topic as a
// retained message. An empty buffer is not an error.
func (s *Service) PublishLatest(ctx context.Context) error {
	r, ok := s.buffer.Latest()
	if !ok {
		s.log.Debug("nothing buffered; skipping publish")
		return nil
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	if err := s.bus.Publish(ctx, s.stateTopic, payload, true); err != nil {
		s.metrics.PublishFailures.WithLabelValues(metrics.KindState).Inc()
		return fmt.Errorf("publish latest reading to %s: %w", s.stateTopic, err)
	}

	s.metrics.Published.WithLabelValues(metrics.KindState).Inc()
	s.log.Info("published latest reading", "topic", s.stateTopic, "timestamp", r.Stamp(), "fields", r.Len())
	return nil
}

// Flush drains the buffer and appends everything to today's file.
// The buffer is emptied before writing, so readings of a failed write are lost.
func (s *Service) Flush() error {
	readings := s.buffer.Drain()
	s.metrics.BufferLength.Set(float64(s.buffer.Len()))
	if len(readings) == 0 {
		s.log.Debug("nothing buffered; skipping flush")
		return nil
	}

	day := s.now().In(s.loc)
	res, err := s.sink.Write(day, readings)
	if err != nil {
		s.metrics.FlushFailures.Inc()
		s.metrics.ReadingsLost.Add(float64(len(readings)))
		return fmt.Errorf("flush %d readings: %w", len(readings), err)
	}

	if len(res.ExtraFields) > 0 {
		s.metrics.ExtraFields.Add(float64(len(res.ExtraFields)))
		s.log.Warn("fields without a column in the daily header kept as key=value cells",
			"path", res.Path, "fields", res.ExtraFields)
	}

	s.metrics.FlushedRows.Add(float64(res.Rows))
	s.log.Info("flushed readings", "path", res.Path, "rows", res.Rows, "header", res.HeaderWritten)
	return nil
}
