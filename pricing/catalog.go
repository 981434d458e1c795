package pricing

import (
	_ "embed"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

//go:embed stations.yaml
var stationsYAML []byte

// Station is a railway station that can be a shipment endpoint.
type Station struct {
	Code       string  `yaml:"code"`
	Name       string  `yaml:"name"`
	Region     string  `yaml:"region"`
	CostFactor float64 `yaml:"cost_factor"`
}

// Catalog indexes stations by code.
type Catalog struct {
	stations []Station
	byCode   map[string]Station
}

// DefaultCatalog returns the embedded station table.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(stationsYAML)
	if err != nil {
		// the embedded table is part of the binary
		panic(err)
	}
	return c
}

// LoadCatalog reads a station table in the same YAML shape as the embedded one.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read station catalog")
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Stations []Station `yaml:"stations"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode station catalog")
	}

	c := &Catalog{byCode: make(map[string]Station, len(doc.Stations))}
	for _, s := range doc.Stations {
		s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
		if s.Code == "" {
			return nil, errors.NewValidationError("code", "station code must not be empty", s.Name)
		}
		if s.CostFactor <= 0 {
			return nil, errors.NewValidationError("cost_factor", "must be positive", s.CostFactor)
		}
		if _, dup := c.byCode[s.Code]; dup {
			return nil, errors.NewValidationError("code", "duplicate station code", s.Code)
		}
		c.byCode[s.Code] = s
		c.stations = append(c.stations, s)
	}
	return c, nil
}

// Lookup returns the station with the given code, case-insensitively.
func (c *Catalog) Lookup(code string) (Station, bool) {
	s, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return s, ok
}

// Factor returns the station's cost factor, or fallback for an unknown code.
func (c *Catalog) Factor(code string, fallback float64) float64 {
	if s, ok := c.Lookup(code); ok {
		return s.CostFactor
	}
	return fallback
}

// Stations returns the stations in catalog order.
func (c *Catalog) Stations() []Station {
	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Codes returns all station codes sorted alphabetically.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.byCode))
	for code := range c.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ValidPair reports whether a shipment between the two codes makes sense.
// Any two distinct stations can be connected.
func ValidPair(source, destination string) bool {
	return !strings.EqualFold(strings.TrimSpace(source), strings.TrimSpace(destination))
}
