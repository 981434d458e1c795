package gbdt

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/freightml/core/model"
	"github.com/YuminosukeSato/freightml/pkg/errors"
)

// featureStats accumulates split counts and gains per feature index.
func (m *Model) featureStats() (counts []int, gains []float64) {
	counts = make([]int, m.numFeature)
	gains = make([]float64, m.numFeature)
	for t := range m.trees {
		for _, node := range m.trees[t].Nodes {
			if node.IsLeaf() {
				continue
			}
			counts[node.Feature]++
			gains[node.Feature] += node.Gain
		}
	}
	return counts, gains
}

// FeatureName returns the stored name of feature idx, or the f<idx> form
// XGBoost uses when the artifact carries no names.
func (m *Model) FeatureName(idx int) string {
	if idx >= 0 && idx < len(m.featureNames) && m.featureNames[idx] != "" {
		return m.featureNames[idx]
	}
	return fmt.Sprintf("f%d", idx)
}

// RankedImportance scores every feature used by at least one split, highest
// first. Ties keep ascending feature order.
//
//   - weight:     number of splits on the feature
//   - gain:       average loss reduction of those splits
//   - total_gain: summed loss reduction
func (m *Model) RankedImportance(kind model.ImportanceType) ([]model.FeatureScore, error) {
	counts, gains := m.featureStats()

	scores := make([]model.FeatureScore, 0)
	for idx, c := range counts {
		if c == 0 {
			continue
		}
		var score float64
		switch kind {
		case model.ImportanceWeight:
			score = float64(c)
		case model.ImportanceGain:
			score = gains[idx] / float64(c)
		case model.ImportanceTotalGain:
			score = gains[idx]
		default:
			return nil, errors.NewValidationError("importance_type",
				"must be one of weight, gain, total_gain", string(kind))
		}
		scores = append(scores, model.FeatureScore{Index: idx, Name: m.FeatureName(idx), Score: score})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

// Importance returns the same scores as RankedImportance keyed by feature name,
// the shape Booster.get_score returns.
func (m *Model) Importance(kind model.ImportanceType) (map[string]float64, error) {
	ranked, err := m.RankedImportance(kind)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(ranked))
	for _, s := range ranked {
		out[s.Name] = s.Score
	}
	return out, nil
}

// TreeFeatures lists the distinct split features of tree i in preorder of
// first use.
func (m *Model) TreeFeatures(i int) ([]int, error) {
	tree, err := m.Tree(i)
	if err != nil {
		return nil, err
	}
	var out []int
	seen := make(map[int]bool)
	var walk func(id int)
	walk = func(id int) {
		node := &tree.Nodes[id]
		if node.IsLeaf() {
			return
		}
		if !seen[node.Feature] {
			seen[node.Feature] = true
			out = append(out, node.Feature)
		}
		walk(node.Left)
		walk(node.Right)
	}
	walk(0)
	return out, nil
}

// UsedFeatures returns the sorted set of feature indices any tree splits on.
func (m *Model) UsedFeatures() []int {
	counts, _ := m.featureStats()
	var out []int
	for idx, c := range counts {
		if c > 0 {
			out = append(out, idx)
		}
	}
	return out
}
