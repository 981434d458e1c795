// Package features builds the fixed-width input vectors fed to the freight
// models and persists the sparse layout a search settles on.
package features

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

const (
	// DenseWidth is the input width of the distance/weight/demand model.
	DenseWidth = 3

	// AmountWidth is the input width of the amount model.
	AmountWidth = 772

	// ProbeDistance and ProbeWeight are the values used when scoring candidate
	// layouts; they come from a real booking.
	ProbeDistance = 21412.0
	ProbeWeight   = 4124.0

	// DefaultDemand is the demand value used by the comparison cases.
	DefaultDemand = 13.0
)

// TestCase is one shipment used to exercise a model.
type TestCase struct {
	Source      string
	Destination string
	Distance    float64
	Weight      float64
	Demand      float64
}

func (tc TestCase) String() string {
	return fmt.Sprintf("%s->%s %.0f km %.0f t", tc.Source, tc.Destination, tc.Distance, tc.Weight)
}

// DefaultTestCases returns the shipments the comparison runs by default.
func DefaultTestCases() []TestCase {
	return []TestCase{
		{Source: "KYN", Destination: "DHI", Distance: 1000, Weight: 100, Demand: DefaultDemand},
		{Source: "KYN", Destination: "DHI", Distance: 5000, Weight: 500, Demand: DefaultDemand},
		{Source: "KYN", Destination: "DHI", Distance: 10000, Weight: 1000, Demand: DefaultDemand},
		{Source: "KYN", Destination: "DHI", Distance: ProbeDistance, Weight: ProbeWeight, Demand: DefaultDemand},
	}
}

// Layout turns a test case into a model input vector.
type Layout interface {
	Width() int
	Vector(tc TestCase) []float64
}

// DenseLayout is [distance, weight, demand].
type DenseLayout struct{}

// Width returns 3.
func (DenseLayout) Width() int { return DenseWidth }

// Vector returns a fresh [distance, weight, demand] slice.
func (DenseLayout) Vector(tc TestCase) []float64 {
	return []float64{tc.Distance, tc.Weight, tc.Demand}
}

func (DenseLayout) String() string { return "dense" }

// SparseLayout places a one-hot source and destination plus the raw distance
// and weight at fixed offsets of an otherwise zero vector.
type SparseLayout struct {
	Source      int `yaml:"source_position"`
	Destination int `yaml:"destination_position"`
	Distance    int `yaml:"distance_position"`
	Weight      int `yaml:"weight_position"`
	Size        int `yaml:"num_features"`
}

// NewSparseLayout returns a layout of AmountWidth with the given offsets.
func NewSparseLayout(src, dst, dist, weight int) SparseLayout {
	return SparseLayout{Size: AmountWidth, Source: src, Destination: dst, Distance: dist, Weight: weight}
}

// Width returns the vector length.
func (l SparseLayout) Width() int { return l.Size }

// Validate rejects offsets outside the vector, a source equal to the
// destination, and a distance offset equal to the weight offset. Any other
// overlap is allowed; Vector resolves it by write order.
func (l SparseLayout) Validate() error {
	if l.Size <= 0 {
		return errors.NewValidationError("num_features", "must be positive", l.Size)
	}
	positions := []struct {
		name string
		pos  int
	}{
		{"source_position", l.Source},
		{"destination_position", l.Destination},
		{"distance_position", l.Distance},
		{"weight_position", l.Weight},
	}
	for _, p := range positions {
		if p.pos < 0 || p.pos >= l.Size {
			return errors.NewValidationError(p.name, fmt.Sprintf("must be in [0, %d)", l.Size), p.pos)
		}
	}
	if l.Destination == l.Source {
		return errors.NewValidationError("destination_position", "equals source_position", l.Destination)
	}
	if l.Weight == l.Distance {
		return errors.NewValidationError("weight_position", "equals distance_position", l.Weight)
	}
	return nil
}

// Vector returns a fresh vector for tc. The layout must be valid. Fields are
// written source, destination, distance, weight; on a shared offset the later
// one wins.
func (l SparseLayout) Vector(tc TestCase) []float64 {
	v := make([]float64, l.Size)
	v[l.Source] = 1
	v[l.Destination] = 1
	v[l.Distance] = tc.Distance
	v[l.Weight] = tc.Weight
	return v
}

func (l SparseLayout) String() string {
	return fmt.Sprintf("sparse(src=%d,dst=%d,dist=%d,weight=%d)", l.Source, l.Destination, l.Distance, l.Weight)
}

// Format is a named layout tried against a model.
type Format struct {
	Name   string
	Layout Layout
}

// AmountFormats returns the layouts the comparison tries on the amount model,
// in order.
func AmountFormats() []Format {
	return []Format{
		{Name: "dense", Layout: DenseLayout{}},
		{Name: "sparse-leading", Layout: NewSparseLayout(0, 1, 2, 3)},
		{Name: "sparse-important", Layout: NewSparseLayout(0, 1, 96, 191)},
	}
}

// Matrix stacks one vector per case into a row matrix.
func Matrix(layout Layout, cases []TestCase) (*mat.Dense, error) {
	if len(cases) == 0 {
		return nil, errors.ErrEmptyData
	}
	if sl, ok := layout.(SparseLayout); ok {
		if err := sl.Validate(); err != nil {
			return nil, err
		}
	}
	X := mat.NewDense(len(cases), layout.Width(), nil)
	for i, tc := range cases {
		X.SetRow(i, layout.Vector(tc))
	}
	return X, nil
}
