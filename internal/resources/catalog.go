// Package resources estimates the inputs and costs of growing a crop and
// provides a planting calendar per crop.
package resources

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khulafarming/yieldcast/internal/common"
)

//go:embed crops.yaml
var defaultCatalog []byte

// Input is a per-hectare requirement.
type Input struct {
	Unit        string  `yaml:"unit"`
	Amount      float64 `yaml:"amount"`
	CostPerUnit float64 `yaml:"cost_per_unit"`
}

// Requirements lists everything a crop needs per hectare.
type Requirements struct {
	Fertilizer map[string]Input `yaml:"fertilizer"`
	Seeds      Input            `yaml:"seeds"`
	Water      Input            `yaml:"water"`
	Labor      Input            `yaml:"labor"`
}

// CalendarEntry describes when and where a crop is grown.
type CalendarEntry struct {
	PlantingSeason string   `yaml:"planting_season" json:"planting_season"`
	HarvestSeason  string   `yaml:"harvest_season" json:"harvest_season"`
	OptimalTemp    string   `yaml:"optimal_temp" json:"optimal_temp"`
	RainfallNeeds  string   `yaml:"rainfall_needs" json:"rainfall_needs"`
	Regions        []string `yaml:"regions" json:"regions"`
	GrowingDays    int      `yaml:"growing_days" json:"growing_days"`
}

type crop struct {
	Requirements *Requirements `yaml:"requirements"`
	Calendar     CalendarEntry `yaml:"calendar"`
}

// Catalog holds the crop tables. It is read-only after loading.
type Catalog struct {
	crops map[string]crop
}

// DefaultCatalog parses the embedded crop tables.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog parses crop tables in the embedded YAML layout.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Crops map[string]crop `yaml:"crops"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse crop catalog: %w", err)
	}
	if len(doc.Crops) == 0 {
		return nil, fmt.Errorf("crop catalog is empty: %w", common.ErrInvalidConfig)
	}

	c := &Catalog{crops: make(map[string]crop, len(doc.Crops))}
	for name, cr := range doc.Crops {
		if r := cr.Requirements; r != nil {
			for _, n := range nutrients {
				if _, ok := r.Fertilizer[n]; !ok {
					return nil, fmt.Errorf("crop %s is missing %s requirement: %w", name, n, common.ErrInvalidConfig)
				}
			}
		}
		c.crops[strings.ToLower(name)] = cr
	}
	return c, nil
}

// Crops lists every crop with a calendar entry, sorted.
func (c *Catalog) Crops() []string {
	names := make([]string, 0, len(c.crops))
	for name := range c.crops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calendar returns the planting calendar for a crop.
func (c *Catalog) Calendar(name string) (CalendarEntry, error) {
	cr, ok := c.crops[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return CalendarEntry{}, fmt.Errorf("%w: %q", common.ErrUnknownCrop, name)
	}
	return cr.Calendar, nil
}

// Requirements returns the per-hectare requirements for a crop. Crops that
// only have a calendar entry report ErrUnknownCrop.
func (c *Catalog) Requirements(name string) (Requirements, error) {
	cr, ok := c.crops[strings.ToLower(strings.TrimSpace(name))]
	if !ok || cr.Requirements == nil {
		return Requirements{}, fmt.Errorf("%w: no resource data for %q", common.ErrUnknownCrop, name)
	}
	return *cr.Requirements, nil
}
