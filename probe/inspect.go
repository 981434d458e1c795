package probe

import (
	"context"

	"github.com/YuminosukeSato/freightml/core/model"
	"github.com/YuminosukeSato/freightml/features"
	"github.com/YuminosukeSato/freightml/gbdt"
	"github.com/YuminosukeSato/freightml/pkg/log"
)

// Trial is one prediction made during inspection.
type Trial struct {
	Name       string
	Layout     features.SparseLayout
	Prediction float64
	Err        error
}

// Inspection summarizes a model's structure.
type Inspection struct {
	Objective         string
	Booster           string
	Version           string
	BaseScore         float64
	NumTrees          int
	NumFeatures       int
	FeatureNames      []string
	Importance        []model.FeatureScore // top entries by split count
	FirstTreeFeatures []int
	FirstTreeDump     string
	Trials            []Trial
}

// InspectTop is the number of importance entries reported.
const InspectTop = 10

// NamedLayout is a sparse layout with a display name.
type NamedLayout struct {
	Name   string
	Layout features.SparseLayout
}

// InspectTrials are the sparse layouts tried with the probe values.
var InspectTrials = []NamedLayout{
	{Name: "sparse-tail", Layout: features.NewSparseLayout(0, 50, 770, 771)},
	{Name: "sparse-leading", Layout: features.NewSparseLayout(0, 1, 2, 3)},
}

// Inspect reports the model's metadata, top features, the structure of its
// first tree and two trial predictions. Trial failures are recorded, not
// returned.
func Inspect(ctx context.Context, m *gbdt.Model) (*Inspection, error) {
	ins := &Inspection{
		Objective:    string(m.Objective()),
		Booster:      m.Booster,
		Version:      m.Version,
		BaseScore:    m.BaseScore(),
		NumTrees:     m.NumTrees(),
		NumFeatures:  m.NumFeatures(),
		FeatureNames: m.FeatureNames(),
	}

	ranked, err := m.RankedImportance(model.ImportanceWeight)
	if err != nil {
		return nil, err
	}
	if len(ranked) > InspectTop {
		ranked = ranked[:InspectTop]
	}
	ins.Importance = ranked

	if m.NumTrees() > 0 {
		if ins.FirstTreeFeatures, err = m.TreeFeatures(0); err != nil {
			return nil, err
		}
		if ins.FirstTreeDump, err = m.Dump(0, true); err != nil {
			return nil, err
		}
	}

	probe := features.TestCase{Distance: features.ProbeDistance, Weight: features.ProbeWeight}
	for _, tr := range InspectTrials {
		if err := ctx.Err(); err != nil {
			return ins, err
		}
		trial := Trial{Name: tr.Name, Layout: tr.Layout}
		trial.Prediction, trial.Err = predictOne(m, tr.Layout, probe)
		ins.Trials = append(ins.Trials, trial)
	}

	log.GetLogger().Debug("model inspected",
		log.OperationKey, log.OperationInspect,
		log.TreesKey, ins.NumTrees,
		log.FeaturesKey, ins.NumFeatures,
	)
	return ins, nil
}
