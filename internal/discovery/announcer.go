package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/i474232898/weather-bridge/internal/metrics"
)

// Publisher pushes a payload to the message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
}

// Options controls topic and id layout.
type Options struct {
	// Prefix is the Home Assistant discovery prefix, usually "homeassistant".
	Prefix string
	// DeviceID prefixes unique ids and topics, e.g. "bresser".
	DeviceID string
	// StateTopic is where the readings are published.
	StateTopic string
}

// Device is the device block of a discovery record.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
}

// Record is the config payload Home Assistant expects for an MQTT sensor.
type Record struct {
	Name              string `json:"name"`
	StateTopic        string `json:"state_topic"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
	ValueTemplate     string `json:"value_template"`
	UniqueID          string `json:"unique_id"`
	Device            Device `json:"device"`
}

// Announcer publishes one retained config record per sensor.
type Announcer struct {
	bus     Publisher
	catalog Catalog
	opts    Options
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(bus Publisher, catalog Catalog, opts Options, m *metrics.Metrics, log *slog.Logger) *Announcer {
	return &Announcer{
		bus:     bus,
		catalog: catalog,
		opts:    opts,
		metrics: m,
		log:     log.With("component", "discovery"),
	}
}

// Topic returns the config topic of s.
func (a *Announcer) Topic(s Descriptor) string {
	return fmt.Sprintf("%s/sensor/%s_%s/config", a.opts.Prefix, a.opts.DeviceID, s.Key)
}

// Record builds the config record of s.
func (a *Announcer) Record(s Descriptor) Record {
	return Record{
		Name:              "PWS " + s.Name,
		StateTopic:        a.opts.StateTopic,
		UnitOfMeasurement: s.Unit,
		ValueTemplate:     "{{ " + s.Template + " }}",
		UniqueID:          a.opts.DeviceID + "_" + s.Key,
		Device: Device{
			Identifiers:  []string{a.opts.DeviceID + "_station"},
			Manufacturer: a.catalog.Device.Manufacturer,
			Model:        a.catalog.Device.Model,
			Name:         a.catalog.Device.Name,
		},
	}
}

// Announce publishes every sensor. A failed sensor does not stop the others;
// all failures are returned joined.
func (a *Announcer) Announce(ctx context.Context) error {
	var errs []error
	for _, s := range a.catalog.Sensors {
		topic := a.Topic(s)
		payload, err := json.Marshal(a.Record(s))
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", s.Key, err))
			continue
		}

		if err := a.bus.Publish(ctx, topic, payload, true); err != nil {
			a.metrics.PublishFailures.WithLabelValues(metrics.KindDiscovery).Inc()
			a.log.Warn("discovery publish failed", "sensor", s.Key, "topic", topic, "error", err)
			errs = append(errs, fmt.Errorf("announce %s: %w", s.Key, err))
			continue
		}

		a.metrics.Published.WithLabelValues(metrics.KindDiscovery).Inc()
		a.log.Info("published discovery config", "sensor", "PWS "+s.Name, "topic", topic)
	}
	return errors.Join(errs...)
}
