package gbdt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/freightml/core/model"
	"github.com/YuminosukeSato/freightml/pkg/errors"
)

// ObjectiveType is the XGBoost objective name stored in the artifact.
type ObjectiveType string

const (
	RegSquaredError     ObjectiveType = "reg:squarederror"
	RegSquaredLogError  ObjectiveType = "reg:squaredlogerror"
	RegAbsoluteError    ObjectiveType = "reg:absoluteerror"
	RegPseudoHuberError ObjectiveType = "reg:pseudohubererror"
	RegLogistic         ObjectiveType = "reg:logistic"
	BinaryLogistic      ObjectiveType = "binary:logistic"
	CountPoisson        ObjectiveType = "count:poisson"
	RegGamma            ObjectiveType = "reg:gamma"
	RegTweedie          ObjectiveType = "reg:tweedie"
)

// link describes how the raw margin maps to a prediction.
type link int

const (
	linkIdentity link = iota
	linkLogistic
	linkLog
)

func (o ObjectiveType) link() (link, bool) {
	switch o {
	case RegSquaredError, RegSquaredLogError, RegAbsoluteError, RegPseudoHuberError:
		return linkIdentity, true
	case RegLogistic, BinaryLogistic:
		return linkLogistic, true
	case CountPoisson, RegGamma, RegTweedie:
		return linkLog, true
	default:
		return linkIdentity, false
	}
}

// Node is one entry of a tree's flat node arrays.
type Node struct {
	Left        int     // -1 for a leaf
	Right       int     // -1 for a leaf
	Feature     int     // split feature index
	Condition   float64 // split threshold, or the leaf value for a leaf
	DefaultLeft bool    // direction taken by a missing value
	Gain        float64 // loss reduction of the split
	Cover       float64 // sum of hessian under the node
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == -1
}

// Tree is a single regression tree in XGBoost's flat array layout.
type Tree struct {
	ID    int
	Nodes []Node
}

// Predict returns the leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.Condition
		}

		fval := features[node.Feature]
		switch {
		case math.IsNaN(fval):
			if node.DefaultLeft {
				nodeID = node.Left
			} else {
				nodeID = node.Right
			}
		// thresholds are float32 in XGBoost, so compare at that precision
		case float32(fval) < float32(node.Condition):
			nodeID = node.Left
		default:
			nodeID = node.Right
		}
	}
	// validated trees are acyclic, so this is unreachable
	return 0
}

// Model is a gradient-boosted tree ensemble loaded from an XGBoost JSON artifact.
type Model struct {
	Version      string
	Booster      string // "gbtree" or "dart"
	objective    ObjectiveType
	baseScore    float64
	numFeature   int
	featureNames []string
	featureTypes []string
	trees        []Tree
	treeWeights  []float64 // nil unless the booster is dart
}

var _ model.Regressor = (*Model)(nil)
var _ model.ImportanceScorer = (*Model)(nil)

// NumFeatures returns the input width the model was trained on.
func (m *Model) NumFeatures() int {
	return m.numFeature
}

// NumTrees returns the number of trees in the ensemble.
func (m *Model) NumTrees() int {
	return len(m.trees)
}

// Objective returns the objective recorded in the artifact.
func (m *Model) Objective() ObjectiveType {
	return m.objective
}

// BaseScore returns the global bias in prediction space.
func (m *Model) BaseScore() float64 {
	return m.baseScore
}

// FeatureNames returns the feature names stored in the artifact, if any.
func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

// Tree returns the i-th tree.
func (m *Model) Tree(i int) (*Tree, error) {
	if i < 0 || i >= len(m.trees) {
		return nil, errors.NewValueError("Tree", "tree index out of range")
	}
	return &m.trees[i], nil
}

// Predict makes predictions for a batch of samples, one output column.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.numFeature {
		return nil, errors.NewDimensionError("Predict", m.numFeature, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		predictions.Set(i, 0, m.transform(m.margin(features)))
	}
	return predictions, nil
}

// PredictSingle scores one feature vector.
func (m *Model) PredictSingle(features []float64) (float64, error) {
	if len(features) != m.numFeature {
		return 0, errors.NewDimensionError("PredictSingle", m.numFeature, len(features), 1)
	}
	return m.transform(m.margin(features)), nil
}

// PredictMargin returns the untransformed sum of the base margin and all leaves.
func (m *Model) PredictMargin(features []float64) (float64, error) {
	if len(features) != m.numFeature {
		return 0, errors.NewDimensionError("PredictMargin", m.numFeature, len(features), 1)
	}
	return m.margin(features), nil
}

func (m *Model) margin(features []float64) float64 {
	sum := m.baseMargin()
	for i := range m.trees {
		leaf := m.trees[i].Predict(features)
		if m.treeWeights != nil {
			leaf *= m.treeWeights[i]
		}
		sum += leaf
	}
	return sum
}

func (m *Model) baseMargin() float64 {
	l, _ := m.objective.link()
	switch l {
	case linkLogistic:
		return math.Log(m.baseScore / (1 - m.baseScore))
	case linkLog:
		return math.Log(m.baseScore)
	default:
		return m.baseScore
	}
}

func (m *Model) transform(margin float64) float64 {
	l, _ := m.objective.link()
	switch l {
	case linkLogistic:
		return 1 / (1 + math.Exp(-margin))
	case linkLog:
		return math.Exp(margin)
	default:
		return margin
	}
}
