package probe

import (
	"context"
	"sort"
	"time"

	"github.com/YuminosukeSato/freightml/core/model"
	"github.com/YuminosukeSato/freightml/core/parallel"
	"github.com/YuminosukeSato/freightml/features"
	"github.com/YuminosukeSato/freightml/pkg/errors"
	"github.com/YuminosukeSato/freightml/pkg/log"
)

// Search defaults.
const (
	DefaultThreshold = 0.1
	DefaultTop       = 10

	// grids up to this size are scored on the calling goroutine
	sequentialBelow = 32
)

// SearchModel is what Search needs from a model.
type SearchModel interface {
	model.Regressor
	model.ImportanceScorer
}

// SearchOptions configures Search. A zero Top, Distance or Weight selects the
// default; Threshold is used as given.
type SearchOptions struct {
	Threshold float64 // keep predictions strictly above this
	Top       int     // number of candidates reported
	Distance  float64 // probe distance, defaults to features.ProbeDistance
	Weight    float64 // probe weight, defaults to features.ProbeWeight
}

// DefaultSearchOptions returns the threshold, top count and probe values the
// search normally runs with.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Threshold: DefaultThreshold,
		Top:       DefaultTop,
		Distance:  features.ProbeDistance,
		Weight:    features.ProbeWeight,
	}
}

func (o *SearchOptions) setDefaults() {
	if o.Top <= 0 {
		o.Top = DefaultTop
	}
	if o.Distance == 0 {
		o.Distance = features.ProbeDistance
	}
	if o.Weight == 0 {
		o.Weight = features.ProbeWeight
	}
}

// Candidate is a layout and the prediction it produced for the probe values.
type Candidate struct {
	Layout     features.SparseLayout
	Prediction float64
}

// Grid is the set of offsets Search enumerates.
type Grid struct {
	Sources      []int
	Destinations []int
	Distances    []int
	Weights      []int
}

// Size is the number of combinations before filtering.
func (g Grid) Size() int {
	return len(g.Sources) * len(g.Destinations) * len(g.Distances) * len(g.Weights)
}

// SearchResult is the outcome of Search.
type SearchResult struct {
	Grid      Grid
	Important []int       // features ranked by split count
	Evaluated int         // layouts actually scored
	Failed    int         // layouts whose prediction returned an error
	Kept      int         // layouts above the threshold
	Top       []Candidate // best first, at most Top entries
}

// Best returns the highest scoring candidate.
func (r *SearchResult) Best() (Candidate, bool) {
	if len(r.Top) == 0 {
		return Candidate{}, false
	}
	return r.Top[0], true
}

// BuildGrid derives the search grid from the features a model splits on,
// taken in ascending index order: the distance slot tries offsets 2 and 3
// plus the first three, the weight slot tries 2 and 3 plus the next three.
// The returned ranking by split count is only used for reporting.
func BuildGrid(m model.ImportanceScorer) (Grid, []int, error) {
	ranked, err := m.RankedImportance(model.ImportanceWeight)
	if err != nil {
		return Grid{}, nil, err
	}
	important := make([]int, len(ranked))
	for i, s := range ranked {
		important[i] = s.Index
	}

	used := m.UsedFeatures()
	grid := Grid{
		Sources:      []int{0, 1},
		Destinations: []int{0, 1, 50, 51},
		Distances:    appendUnique([]int{2, 3}, window(used, 0, 3)...),
		Weights:      appendUnique([]int{2, 3}, window(used, 3, 6)...),
	}
	return grid, important, nil
}

// Search scores every layout in the grid with the probe values and keeps the
// ones above the threshold, best first. Layouts where source equals
// destination or distance equals weight are skipped, as are offsets outside
// the model's input. Other overlaps are scored with the later field winning.
// Scoring is spread across CPU cores, so the model must be safe for
// concurrent Predict calls. ErrNoCandidates is returned with the result when
// nothing passes.
func Search(ctx context.Context, m SearchModel, opts SearchOptions) (*SearchResult, error) {
	opts.setDefaults()
	logger := log.GetLogger().With(log.OperationKey, log.OperationSearch)
	start := time.Now()

	grid, important, err := BuildGrid(m)
	if err != nil {
		return nil, err
	}
	res := &SearchResult{Grid: grid, Important: important}
	probe := features.TestCase{Distance: opts.Distance, Weight: opts.Weight}

	var layouts []features.SparseLayout
	for _, src := range grid.Sources {
		for _, dst := range grid.Destinations {
			if src == dst {
				continue
			}
			for _, dist := range grid.Distances {
				for _, w := range grid.Weights {
					if dist == w {
						continue
					}
					layout := features.SparseLayout{
						Source: src, Destination: dst, Distance: dist, Weight: w,
						Size: m.NumFeatures(),
					}
					if layout.Validate() != nil {
						continue
					}
					layouts = append(layouts, layout)
				}
			}
		}
	}

	preds := make([]float64, len(layouts))
	errs := make([]error, len(layouts))
	err = parallel.ForEach(ctx, len(layouts), sequentialBelow, func(i int) {
		preds[i], errs[i] = predictOne(m, layouts[i], probe)
	})
	if err != nil {
		return res, err
	}

	// read back in enumeration order; ties keep it after the stable sort
	res.Evaluated = len(layouts)
	var kept []Candidate
	for i, layout := range layouts {
		if errs[i] != nil {
			res.Failed++
			logger.Debug("candidate failed", log.LayoutKey, layout.String(), "error", errs[i])
			continue
		}
		if preds[i] > opts.Threshold {
			kept = append(kept, Candidate{Layout: layout, Prediction: preds[i]})
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Prediction > kept[j].Prediction
	})
	res.Kept = len(kept)
	if len(kept) > opts.Top {
		kept = kept[:opts.Top]
	}
	res.Top = kept

	logger.Info("search finished",
		log.CandidatesKey, res.Evaluated,
		log.ThresholdKey, opts.Threshold,
		"kept", res.Kept,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	if len(kept) == 0 {
		return res, errors.ErrNoCandidates
	}
	return res, nil
}

func window(s []int, from, to int) []int {
	if from >= len(s) {
		return nil
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

func appendUnique(base []int, extra ...int) []int {
	seen := make(map[int]bool, len(base)+len(extra))
	out := make([]int, 0, len(base)+len(extra))
	for _, v := range append(base, extra...) {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
