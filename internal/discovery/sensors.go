// Package discovery announces the station's sensors to Home Assistant via
// MQTT discovery so dashboard entities are created automatically.
package discovery

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed sensors.yaml
var sensorsYAML []byte

// Descriptor describes one sensor entity.
type Descriptor struct {
	Name     string `yaml:"name"`
	Key      string `yaml:"key"`
	Unit     string `yaml:"unit"`
	Template string `yaml:"template"`
}

// DeviceInfo is the static part of the device block shared by all sensors.
type DeviceInfo struct {
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	Name         string `yaml:"name"`
}

// Catalog is the parsed descriptor table.
type Catalog struct {
	Device  DeviceInfo   `yaml:"device"`
	Sensors []Descriptor `yaml:"sensors"`
}

var loadCatalog = sync.OnceValues(func() (Catalog, error) {
	return parseCatalog(sensorsYAML)
})

// Load returns the embedded catalog. It is parsed once per process.
func Load() (Catalog, error) {
	return loadCatalog()
}

func parseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse sensor catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.Key == "" || s.Name == "" {
			return Catalog{}, fmt.Errorf("sensor %d: name and key are required", i)
		}
		if _, dup := seen[s.Key]; dup {
			return Catalog{}, fmt.Errorf("sensor %q declared twice", s.Key)
		}
		seen[s.Key] = struct{}{}
	}
	return c, nil
}
