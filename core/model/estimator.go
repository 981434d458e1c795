package model

import "gonum.org/v1/gonum/mat"

// Predictor is a model that can score a batch of feature rows.
type Predictor interface {
	// Predict returns one row of output per input row.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// FeatureCounter reports the input width a model was trained on.
type FeatureCounter interface {
	NumFeatures() int
}

// Regressor is a loaded model that the probing tools can drive.
type Regressor interface {
	Predictor
	FeatureCounter
}

// ImportanceScorer ranks the input features of a tree ensemble.
type ImportanceScorer interface {
	// RankedImportance returns features ordered by descending score; ties
	// keep ascending feature index. Features never used get no entry.
	RankedImportance(kind ImportanceType) ([]FeatureScore, error)
	// UsedFeatures returns every feature some split uses, ascending.
	UsedFeatures() []int
}

// ImportanceType selects how a feature's importance is measured.
type ImportanceType string

const (
	// ImportanceWeight counts how many splits use the feature.
	ImportanceWeight ImportanceType = "weight"
	// ImportanceGain is the average loss reduction of the feature's splits.
	ImportanceGain ImportanceType = "gain"
	// ImportanceTotalGain is the summed loss reduction of the feature's splits.
	ImportanceTotalGain ImportanceType = "total_gain"
)

// FeatureScore is one entry of an importance ranking.
type FeatureScore struct {
	Index int
	Name  string // "f<index>" unless the model carries feature names
	Score float64
}
