// Package probe exercises the pre-trained freight models to find out which
// input layout they expect: side-by-side comparison, a brute-force layout
// search, a sensitivity sweep and a structural inspection.
package probe

import (
	"context"
	"time"

	"github.com/YuminosukeSato/freightml/core/model"
	"github.com/YuminosukeSato/freightml/features"
	"github.com/YuminosukeSato/freightml/gbdt"
	"github.com/YuminosukeSato/freightml/metrics"
	"github.com/YuminosukeSato/freightml/pkg/errors"
	"github.com/YuminosukeSato/freightml/pkg/log"
	"github.com/YuminosukeSato/freightml/pricing"
)

// RawPerCrore converts a raw distance-model output to crores.
const RawPerCrore = 1e7

// Loader opens a model artifact. gbdt.LoadFromFile is the default.
type Loader func(path string) (*gbdt.Model, error)

// ModelKind tells Compare which layouts to try on an artifact.
type ModelKind int

const (
	// DistanceModel takes [distance, weight, demand] and predicts a raw amount.
	DistanceModel ModelKind = iota
	// AmountModel takes a wide sparse vector of unknown layout.
	AmountModel
)

func (k ModelKind) String() string {
	if k == AmountModel {
		return "amount"
	}
	return "distance"
}

// Artifact names a model file for Compare.
type Artifact struct {
	Name string
	Path string
	Kind ModelKind
}

// CompareOptions configures Compare. Zero values select the defaults.
type CompareOptions struct {
	Artifacts []Artifact
	Cases     []features.TestCase // defaults to features.DefaultTestCases
	Formats   []features.Format   // amount model layouts, defaults to features.AmountFormats
	Loader    Loader
}

// Row is one prediction in a comparison.
type Row struct {
	Format     string
	Case       features.TestCase
	Prediction float64
	Crores     float64 // set for the distance model only
	Heuristic  float64 // pricing estimate for the same shipment, in crores
	Err        error
}

// ModelResult holds the outcome for one artifact. LoadErr is set when the
// artifact could not be opened, in which case Rows is empty. Agreement is set
// for the distance model when at least one case predicted.
type ModelResult struct {
	Artifact    Artifact
	LoadErr     error
	Objective   string
	NumFeatures int
	NumTrees    int
	Rows        []Row
	Agreement   *metrics.Agreement
}

// CompareReport is the result of Compare.
type CompareReport struct {
	Models []ModelResult
}

// Compare loads every artifact and runs the test cases through it. Load and
// prediction failures are recorded on the result and do not stop the run; only
// context cancellation does.
func Compare(ctx context.Context, opts CompareOptions) (*CompareReport, error) {
	if opts.Loader == nil {
		opts.Loader = gbdt.LoadFromFile
	}
	if opts.Cases == nil {
		opts.Cases = features.DefaultTestCases()
	}
	if opts.Formats == nil {
		opts.Formats = features.AmountFormats()
	}

	logger := log.GetLogger().With(log.OperationKey, log.OperationCompare)
	start := time.Now()
	report := &CompareReport{}

	for _, art := range opts.Artifacts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := ModelResult{Artifact: art}
		m, err := opts.Loader(art.Path)
		if err != nil {
			logger.Warn("model load failed", log.ModelNameKey, art.Name, log.ModelPathKey, art.Path, "error", err)
			res.LoadErr = err
			report.Models = append(report.Models, res)
			continue
		}
		res.Objective = string(m.Objective())
		res.NumFeatures = m.NumFeatures()
		res.NumTrees = m.NumTrees()

		switch art.Kind {
		case DistanceModel:
			rows, err := predictCases(ctx, m, "dense", features.DenseLayout{}, opts.Cases)
			if err != nil {
				return report, err
			}
			for i := range rows {
				if rows[i].Err == nil {
					rows[i].Crores = rows[i].Prediction / RawPerCrore
				}
			}
			res.Rows = rows
			res.Agreement = agreement(rows)
			if res.Agreement != nil {
				logger.Debug("distance model against heuristic",
					log.ModelNameKey, art.Name,
					"mae", res.Agreement.MAE,
					"mape", res.Agreement.MAPE,
				)
			}
		case AmountModel:
			for _, f := range opts.Formats {
				rows, err := predictCases(ctx, m, f.Name, f.Layout, opts.Cases)
				if err != nil {
					return report, err
				}
				res.Rows = append(res.Rows, rows...)
			}
		}
		report.Models = append(report.Models, res)
	}

	logger.Info("comparison finished",
		"models", len(report.Models),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return report, nil
}

func predictCases(ctx context.Context, m model.Regressor, name string, layout features.Layout, cases []features.TestCase) ([]Row, error) {
	rows := make([]Row, 0, len(cases))
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		row := Row{Format: name, Case: tc, Heuristic: heuristic(tc)}
		row.Prediction, row.Err = predictOne(m, layout, tc)
		rows = append(rows, row)
	}
	return rows, nil
}

// predictOne scores a single case, turning a panic into an error.
func predictOne(m model.Regressor, layout features.Layout, tc features.TestCase) (float64, error) {
	var out float64
	err := errors.SafeExecute("predict", func() error {
		if layout.Width() != m.NumFeatures() {
			return errors.NewDimensionError("predict", m.NumFeatures(), layout.Width(), 1)
		}
		X, err := features.Matrix(layout, []features.TestCase{tc})
		if err != nil {
			return err
		}
		pred, err := m.Predict(X)
		if err != nil {
			return err
		}
		out = pred.At(0, 0)
		return nil
	})
	return out, err
}

// heuristic prices a case with the default location factors.
func heuristic(tc features.TestCase) float64 {
	return pricing.EstimatePrice(tc.Source, tc.Destination, tc.Distance, tc.Weight,
		pricing.DefaultFactor, pricing.DefaultFactor)
}

// agreement measures the rows that predicted against their heuristic prices.
func agreement(rows []Row) *metrics.Agreement {
	var want, got []float64
	for _, r := range rows {
		if r.Err != nil {
			continue
		}
		want = append(want, r.Heuristic)
		got = append(got, r.Crores)
	}
	if len(want) == 0 {
		return nil
	}
	a, err := metrics.Agree(want, got)
	if err != nil {
		return nil
	}
	return &a
}
