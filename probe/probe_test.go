package probe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/freightml/features"
	"github.com/YuminosukeSato/freightml/gbdt"
	"github.com/YuminosukeSato/freightml/pkg/errors"
	"github.com/YuminosukeSato/freightml/pkg/log"
	"github.com/YuminosukeSato/freightml/pricing"
)

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	distPath := writeModel(t, dir, "xgboost_model.json", stumpModelJSON(t, 3, 0, distanceStumps()))
	amountPath := writeModel(t, dir, "xgboost_amount_model.json", stumpModelJSON(t, 772, 0, amountStumps()))

	report, err := Compare(context.Background(), CompareOptions{
		Artifacts: []Artifact{
			{Name: "distance", Path: distPath, Kind: DistanceModel},
			{Name: "amount", Path: amountPath, Kind: AmountModel},
			{Name: "missing", Path: filepath.Join(dir, "nope.json"), Kind: AmountModel},
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Models, 3)

	dist := report.Models[0]
	require.NoError(t, dist.LoadErr)
	assert.Equal(t, 3, dist.NumFeatures)
	assert.Equal(t, 2, dist.NumTrees)
	require.Len(t, dist.Rows, 4)
	wantCrores := []float64{2, 2, 2.5, 2.5}
	for i, row := range dist.Rows {
		require.NoError(t, row.Err)
		assert.Equal(t, "dense", row.Format)
		assert.InDelta(t, wantCrores[i]*RawPerCrore, row.Prediction, 1e-6)
		assert.InDelta(t, wantCrores[i], row.Crores, 1e-9)
		tc := row.Case
		assert.Equal(t, pricing.EstimatePrice(tc.Source, tc.Destination, tc.Distance, tc.Weight, 1.2, 1.2), row.Heuristic)
	}
	require.NotNil(t, dist.Agreement)
	assert.Equal(t, 4, dist.Agreement.N)
	assert.Greater(t, dist.Agreement.MAE, 0.0)

	amount := report.Models[1]
	require.NoError(t, amount.LoadErr)
	assert.Nil(t, amount.Agreement)
	require.Len(t, amount.Rows, 12)
	for _, row := range amount.Rows[:4] {
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(row.Err, &dimErr), "dense layout must not fit 772 features")
	}
	for _, row := range amount.Rows[4:8] {
		require.NoError(t, row.Err)
		assert.Equal(t, "sparse-leading", row.Format)
		assert.Zero(t, row.Prediction)
	}
	important := amount.Rows[8:]
	assert.InDelta(t, 0.0, important[0].Prediction, 1e-9)
	assert.InDelta(t, 0.0, important[1].Prediction, 1e-9)
	assert.InDelta(t, 0.45, important[2].Prediction, 1e-9)
	assert.InDelta(t, 0.45, important[3].Prediction, 1e-9)
	assert.Zero(t, important[3].Crores)

	missing := report.Models[2]
	assert.Error(t, missing.LoadErr)
	assert.Empty(t, missing.Rows)

	var buf bytes.Buffer
	require.NoError(t, WriteCompare(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "== distance model")
	assert.Contains(t, out, "2.5000")
	assert.Contains(t, out, "load failed")
	assert.Contains(t, out, "dimension mismatch")
	assert.Contains(t, out, "against heuristic over 4 cases")
}

func TestCompareStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loads := 0
	_, err := Compare(ctx, CompareOptions{
		Artifacts: []Artifact{{Name: "a", Path: "a.json"}},
		Loader: func(string) (*gbdt.Model, error) {
			loads++
			return nil, errors.New("unreachable")
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, loads)
}

func TestBuildGrid(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())

	grid, important, err := BuildGrid(m)
	require.NoError(t, err)
	assert.Equal(t, []int{96, 191, 5, 770, 600, 771}, important)
	assert.Equal(t, []int{0, 1}, grid.Sources)
	assert.Equal(t, []int{0, 1, 50, 51}, grid.Destinations)
	assert.Equal(t, []int{2, 3, 5, 96, 191}, grid.Distances)
	assert.Equal(t, []int{2, 3, 600, 770, 771}, grid.Weights)
	assert.Equal(t, 200, grid.Size())
}

func TestBuildGridUsesIndexOrder(t *testing.T) {
	var stumps []stump
	for feature, count := range map[int]int{3: 1, 5: 1, 96: 1, 191: 2, 700: 4, 701: 3} {
		for i := 0; i < count; i++ {
			stumps = append(stumps, stump{feature: feature, threshold: 1, right: 0.1, gain: 1})
		}
	}
	m := stumpModel(t, 772, 0, stumps)

	grid, important, err := BuildGrid(m)
	require.NoError(t, err)
	assert.Equal(t, []int{700, 701, 191, 3, 5, 96}, important)
	assert.Equal(t, []int{2, 3, 5, 96}, grid.Distances)
	assert.Equal(t, []int{2, 3, 191, 700, 701}, grid.Weights)
}

func TestBuildGridDeduplicates(t *testing.T) {
	m := stumpModel(t, 772, 0, []stump{
		{feature: 3, threshold: 1, right: 0.1, gain: 1},
		{feature: 3, threshold: 1, right: 0.1, gain: 1},
		{feature: 2, threshold: 1, right: 0.1, gain: 1},
	})
	grid, important, err := BuildGrid(m)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, important)
	assert.Equal(t, []int{2, 3}, grid.Distances)
	assert.Equal(t, []int{2, 3}, grid.Weights)
}

func TestSearch(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())
	tl, _ := log.NewTestLogger(log.LevelDebug)
	prev := log.GetLogger()
	log.SetLogger(tl)
	defer log.SetLogger(prev)

	res, err := Search(context.Background(), m, DefaultSearchOptions())
	require.NoError(t, err)

	assert.Equal(t, 138, res.Evaluated)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 60, res.Kept)
	require.Len(t, res.Top, DefaultTop)

	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, features.NewSparseLayout(0, 1, 96, 770), best.Layout)
	assert.InDelta(t, 0.34, best.Prediction, 1e-9)

	wantPairs := [][2]int{{0, 1}, {0, 50}, {0, 51}, {1, 0}, {1, 50}, {1, 51}}
	for i, pair := range wantPairs {
		c := res.Top[i]
		assert.Equal(t, pair[0], c.Layout.Source)
		assert.Equal(t, pair[1], c.Layout.Destination)
		assert.Equal(t, 96, c.Layout.Distance)
		assert.Equal(t, 770, c.Layout.Weight)
	}
	for i, w := range []int{2, 3, 600, 771} {
		c := res.Top[6+i]
		assert.Equal(t, features.NewSparseLayout(0, 1, 96, w), c.Layout)
		assert.InDelta(t, 0.3, c.Prediction, 1e-9)
	}
	for i := 1; i < len(res.Top); i++ {
		assert.GreaterOrEqual(t, res.Top[i-1].Prediction, res.Top[i].Prediction)
	}

	assert.True(t, tl.ContainsMessage("search finished"))

	var buf bytes.Buffer
	require.NoError(t, WriteSearch(&buf, res))
	assert.Contains(t, buf.String(), "important features: 96, 191, 5, 770, 600, 771")
	assert.Contains(t, buf.String(), "200 combinations, 138 evaluated, 0 failed, 60 above threshold")
}

func TestSearchThresholdAndTop(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())

	res, err := Search(context.Background(), m, SearchOptions{Threshold: 0.2, Top: 3})
	require.NoError(t, err)
	assert.Equal(t, 6+24, res.Kept)
	assert.Len(t, res.Top, 3)
}

func TestSearchNoCandidates(t *testing.T) {
	m := stumpModel(t, 772, 0, []stump{{feature: 400, threshold: 1, left: 0, right: 0.05, gain: 1}})

	res, err := Search(context.Background(), m, DefaultSearchOptions())
	assert.True(t, errors.Is(err, errors.ErrNoCandidates))
	require.NotNil(t, res)
	assert.Empty(t, res.Top)
	_, ok := res.Best()
	assert.False(t, ok)

	_, err = PersistBest(filepath.Join(t.TempDir(), "model_config.yaml"), res)
	assert.True(t, errors.Is(err, errors.ErrNoCandidates))
}

func TestSearchSkipsInvalidLayouts(t *testing.T) {
	// a 3-wide model cannot take any sparse layout
	m := stumpModel(t, 3, 0, distanceStumps())

	res, err := Search(context.Background(), m, DefaultSearchOptions())
	assert.True(t, errors.Is(err, errors.ErrNoCandidates))
	assert.Zero(t, res.Evaluated)
}

func TestSearchScoresOverlappingLayouts(t *testing.T) {
	// feature 1 is both a destination and the only distance candidate
	m := stumpModel(t, 772, 0, []stump{{feature: 1, threshold: 10000, right: 0.5, gain: 1}})

	res, err := Search(context.Background(), m, DefaultSearchOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1}, res.Grid.Distances)
	assert.Equal(t, 6*4, res.Evaluated)
	assert.Equal(t, 6*2, res.Kept)

	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, features.NewSparseLayout(0, 1, 1, 2), best.Layout)
	assert.InDelta(t, 0.5, best.Prediction, 1e-9)
}

func TestSearchCancelled(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, m, DefaultSearchOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPersistBest(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())
	res, err := Search(context.Background(), m, DefaultSearchOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model_config.yaml")
	saved, err := PersistBest(path, res)
	require.NoError(t, err)

	loaded, err := features.LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.Equal(t, 96, loaded.Distance)
}

func TestSensitivity(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())

	res, err := Sensitivity(context.Background(), m, features.NewSparseLayout(0, 1, 96, 770))
	require.NoError(t, err)

	rows, cols := res.Values.Dims()
	assert.Equal(t, len(SweepWeights), rows)
	assert.Equal(t, len(SweepDistances), cols)

	// weight 100, distance 500 and 30000
	assert.InDelta(t, 0.0, res.Values.At(0, 0), 1e-9)
	assert.InDelta(t, 0.3, res.Values.At(0, 5), 1e-9)
	// weight 5000, distance 500 and 30000
	assert.InDelta(t, 0.04, res.Values.At(4, 0), 1e-9)
	assert.InDelta(t, 0.34, res.Values.At(4, 5), 1e-9)

	assert.InDelta(t, 0.0, res.Summary.Min, 1e-9)
	assert.InDelta(t, 0.34, res.Summary.Max, 1e-9)
	assert.False(t, res.Summary.Constant)
	assert.Greater(t, res.Summary.StdDev, 0.0)

	var buf bytes.Buffer
	require.NoError(t, WriteSensitivity(&buf, res))
	assert.Contains(t, buf.String(), "30000")
	assert.NotContains(t, buf.String(), "do not change")
}

func TestSensitivityConstant(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())

	res, err := Sensitivity(context.Background(), m, features.NewSparseLayout(0, 1, 2, 3))
	require.NoError(t, err)
	assert.True(t, res.Summary.Constant)
	assert.Zero(t, res.Summary.StdDev)

	var buf bytes.Buffer
	require.NoError(t, WriteSensitivity(&buf, res))
	assert.Contains(t, buf.String(), "do not change")
}

func TestSensitivityRejects(t *testing.T) {
	m := stumpModel(t, 3, 0, distanceStumps())

	_, err := Sensitivity(context.Background(), m, features.NewSparseLayout(0, 0, 2, 3))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	_, err = Sensitivity(context.Background(), m, features.NewSparseLayout(0, 1, 2, 3))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestSensitivityPlot(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())
	res, err := Sensitivity(context.Background(), m, features.NewSparseLayout(0, 1, 96, 770))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"sweep.png", "sweep.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, res.Plot(path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	err = res.Plot(filepath.Join(dir, "sweep.txt"))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestInspect(t *testing.T) {
	m := stumpModel(t, 772, 0, amountStumps())

	ins, err := Inspect(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, "reg:squarederror", ins.Objective)
	assert.Equal(t, "gbtree", ins.Booster)
	assert.Equal(t, 12, ins.NumTrees)
	assert.Equal(t, 772, ins.NumFeatures)
	require.Len(t, ins.Importance, 6)
	assert.Equal(t, "f96", ins.Importance[0].Name)
	assert.Equal(t, 3.0, ins.Importance[0].Score)
	assert.Equal(t, []int{96}, ins.FirstTreeFeatures)
	assert.Contains(t, ins.FirstTreeDump, "[f96<10000]")

	require.Len(t, ins.Trials, 2)
	assert.Equal(t, "sparse-tail", ins.Trials[0].Name)
	require.NoError(t, ins.Trials[0].Err)
	assert.InDelta(t, 0.04, ins.Trials[0].Prediction, 1e-9)
	require.NoError(t, ins.Trials[1].Err)
	assert.Zero(t, ins.Trials[1].Prediction)

	var buf bytes.Buffer
	require.NoError(t, WriteInspection(&buf, ins))
	out := buf.String()
	assert.Contains(t, out, "trees:")
	assert.Contains(t, out, "features used in the first tree: 96")
	assert.Contains(t, out, "first tree:\n0:[f96<10000]")
}

func TestInspectNarrowModel(t *testing.T) {
	m := stumpModel(t, 3, 0, distanceStumps())

	ins, err := Inspect(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, ins.Trials, 2)
	for _, tr := range ins.Trials {
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(tr.Err, &dimErr))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteInspection(&buf, ins))
	assert.Contains(t, buf.String(), "error:")
}
