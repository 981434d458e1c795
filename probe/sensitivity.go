package probe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/freightml/core/model"
	"github.com/YuminosukeSato/freightml/features"
	"github.com/YuminosukeSato/freightml/pkg/errors"
)

// Sweep values for the sensitivity check.
var (
	SweepDistances = []float64{500, 1000, 5000, 10000, 20000, 30000}
	SweepWeights   = []float64{100, 500, 1000, 2000, 5000}
)

// Summary describes the spread of a sweep.
type Summary struct {
	Min      float64
	Max      float64
	Mean     float64
	StdDev   float64
	Constant bool // every prediction was identical
}

// SensitivityResult holds predictions for every (weight, distance) pair.
// Values has one row per weight and one column per distance.
type SensitivityResult struct {
	Layout    features.SparseLayout
	Distances []float64
	Weights   []float64
	Values    *mat.Dense
	Summary   Summary
}

// Sensitivity predicts the sweep grid through layout. A model that ignores
// distance and weight under a layout shows up as a constant sweep.
func Sensitivity(ctx context.Context, m model.Regressor, layout features.SparseLayout) (*SensitivityResult, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	cases := make([]features.TestCase, 0, len(SweepDistances)*len(SweepWeights))
	for _, w := range SweepWeights {
		for _, d := range SweepDistances {
			cases = append(cases, features.TestCase{Distance: d, Weight: w})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	X, err := features.Matrix(layout, cases)
	if err != nil {
		return nil, err
	}
	var pred mat.Matrix
	err = errors.SafeExecute("sensitivity", func() error {
		var perr error
		pred, perr = m.Predict(X)
		return perr
	})
	if err != nil {
		return nil, err
	}

	values := mat.NewDense(len(SweepWeights), len(SweepDistances), nil)
	flat := make([]float64, 0, len(cases))
	for i := range cases {
		v := pred.At(i, 0)
		values.Set(i/len(SweepDistances), i%len(SweepDistances), v)
		flat = append(flat, v)
	}
	if err := errors.CheckNumericalStability("sensitivity", flat, 0); err != nil {
		return nil, err
	}

	return &SensitivityResult{
		Layout:    layout,
		Distances: SweepDistances,
		Weights:   SweepWeights,
		Values:    values,
		Summary:   summarize(flat),
	}, nil
}

func summarize(v []float64) Summary {
	mean, std := stat.MeanStdDev(v, nil)
	lo, hi := floats.Min(v), floats.Max(v)
	return Summary{
		Min:      lo,
		Max:      hi,
		Mean:     mean,
		StdDev:   std,
		Constant: lo == hi,
	}
}

// Plot renders one line per weight against distance. The format follows the
// file extension (.png, .svg, .pdf).
func (r *SensitivityResult) Plot(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".svg", ".pdf", ".jpg", ".jpeg":
	default:
		return errors.NewValidationError("plot", "unsupported image format", ext)
	}

	p := plot.New()
	p.Title.Text = "Prediction sensitivity " + r.Layout.String()
	p.X.Label.Text = "distance (km)"
	p.Y.Label.Text = "prediction"
	p.Legend.Top = true

	lines := make([]interface{}, 0, 2*len(r.Weights))
	for i, w := range r.Weights {
		pts := make(plotter.XYs, len(r.Distances))
		for j, d := range r.Distances {
			pts[j].X = d
			pts[j].Y = r.Values.At(i, j)
		}
		lines = append(lines, fmt.Sprintf("%.0f t", w), pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.Wrap(err, "build sensitivity plot")
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
