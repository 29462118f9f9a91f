package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture serves all three forecast feeds from a static file. It backs the
// one-shot CLI runs and tests; production deployments replace it with live
// feeds behind the same interfaces.
type Fixture struct {
	PricePoints []PricePoint  `json:"prices" yaml:"prices"`
	SolarPoints []EnergyPoint `json:"solar" yaml:"solar"`
	LoadPoints  []EnergyPoint `json:"load" yaml:"load"`
}

// LoadFixture reads a fixture from a JSON or YAML file, selected by
// extension.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported fixture format %q", ext)
	}
	return &f, nil
}

func (f *Fixture) Prices(_ context.Context, from, to time.Time) ([]PricePoint, error) {
	var out []PricePoint
	for _, p := range f.PricePoints {
		if !p.Timestamp.Before(from) && p.Timestamp.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fixture) Solar(_ context.Context, from, to time.Time) ([]EnergyPoint, error) {
	return clipEnergy(f.SolarPoints, from, to), nil
}

func (f *Fixture) Load(_ context.Context, from, to time.Time) ([]EnergyPoint, error) {
	return clipEnergy(f.LoadPoints, from, to), nil
}

func clipEnergy(pts []EnergyPoint, from, to time.Time) []EnergyPoint {
	var out []EnergyPoint
	for _, p := range pts {
		if !p.Timestamp.Before(from) && p.Timestamp.Before(to) {
			out = append(out, p)
		}
	}
	return out
}
