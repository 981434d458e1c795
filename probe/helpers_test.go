package probe

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/freightml/gbdt"
)

// stump is a single-split tree: feature < threshold ? left : right.
type stump struct {
	feature   int
	threshold float64
	left      float64
	right     float64
	gain      float64
}

// stumpModelJSON renders a squared-error XGBoost JSON model made of stumps.
func stumpModelJSON(t *testing.T, numFeature int, base float64, stumps []stump) []byte {
	t.Helper()

	trees := make([]map[string]interface{}, 0, len(stumps))
	for i, s := range stumps {
		trees = append(trees, map[string]interface{}{
			"id":               i,
			"left_children":    []int{1, -1, -1},
			"right_children":   []int{2, -1, -1},
			"split_indices":    []int{s.feature, 0, 0},
			"split_conditions": []float64{s.threshold, s.left, s.right},
			"default_left":     []int{0, 0, 0},
			"loss_changes":     []float64{s.gain, 0, 0},
			"sum_hessian":      []float64{10, 5, 5},
		})
	}
	doc := map[string]interface{}{
		"learner": map[string]interface{}{
			"gradient_booster": map[string]interface{}{
				"name":  "gbtree",
				"model": map[string]interface{}{"trees": trees},
			},
			"learner_model_param": map[string]interface{}{
				"base_score":  formatBase(base),
				"num_feature": formatInt(numFeature),
				"num_class":   "0",
			},
			"objective": map[string]interface{}{"name": "reg:squarederror"},
		},
		"version": []int{2, 0, 3},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func stumpModel(t *testing.T, numFeature int, base float64, stumps []stump) *gbdt.Model {
	t.Helper()
	m, err := gbdt.LoadFromReader(bytes.NewReader(stumpModelJSON(t, numFeature, base, stumps)))
	require.NoError(t, err)
	return m
}

func writeModel(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func formatBase(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func formatInt(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// amountStumps builds a 772-wide model whose split counts rank features
// 96, 191, 5, 770, 600, 771. Only distance at 96 or 191 lifts a prediction
// above 0.1; weight at 770 adds a little more.
func amountStumps() []stump {
	return []stump{
		{feature: 96, threshold: 10000, left: 0, right: 0.1, gain: 5},
		{feature: 96, threshold: 10000, left: 0, right: 0.1, gain: 5},
		{feature: 96, threshold: 10000, left: 0, right: 0.1, gain: 5},
		{feature: 191, threshold: 1000, left: 0, right: 0.05, gain: 4},
		{feature: 191, threshold: 1000, left: 0, right: 0.05, gain: 4},
		{feature: 191, threshold: 1000, left: 0, right: 0.05, gain: 4},
		{feature: 5, threshold: 0.5, left: 0, right: 0.01, gain: 1},
		{feature: 5, threshold: 0.5, left: 0, right: 0.01, gain: 1},
		{feature: 770, threshold: 1000, left: 0, right: 0.02, gain: 2},
		{feature: 770, threshold: 1000, left: 0, right: 0.02, gain: 2},
		{feature: 600, threshold: 0.5, left: 0, right: 0, gain: 0.5},
		{feature: 771, threshold: 0.5, left: 0, right: 0, gain: 0.5},
	}
}

// distanceStumps builds a 3-wide model that steps up at 1000 km and 1000 t.
func distanceStumps() []stump {
	return []stump{
		{feature: 0, threshold: 1000, left: 1e6, right: 2e7, gain: 9},
		{feature: 1, threshold: 1000, left: 0, right: 5e6, gain: 3},
	}
}
