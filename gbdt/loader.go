package gbdt

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/freightml/pkg/errors"
	"github.com/YuminosukeSato/freightml/pkg/log"
)

// jsonModel mirrors the document written by Booster.save_model("*.json").
type jsonModel struct {
	Learner jsonLearner `json:"learner"`
	Version []int       `json:"version"`
}

type jsonLearner struct {
	FeatureNames      []string          `json:"feature_names"`
	FeatureTypes      []string          `json:"feature_types"`
	GradientBooster   jsonBooster       `json:"gradient_booster"`
	LearnerModelParam jsonLearnerParam  `json:"learner_model_param"`
	Objective         jsonObjective     `json:"objective"`
	Attributes        map[string]string `json:"attributes"`
}

type jsonLearnerParam struct {
	BaseScore  string `json:"base_score"`
	NumClass   string `json:"num_class"`
	NumFeature string `json:"num_feature"`
	NumTarget  string `json:"num_target"`
}

type jsonObjective struct {
	Name string `json:"name"`
}

// jsonBooster covers both layouts: gbtree keeps the trees under "model",
// dart nests a gbtree under "gbtree" and adds per-tree weights.
type jsonBooster struct {
	Name       string         `json:"name"`
	Model      *jsonTreeModel `json:"model"`
	GBTree     *jsonBooster   `json:"gbtree"`
	WeightDrop []float64      `json:"weight_drop"`
}

type jsonTreeModel struct {
	Trees    []jsonTree `json:"trees"`
	TreeInfo []int      `json:"tree_info"`
}

type jsonTree struct {
	ID              int       `json:"id"`
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     flexBools `json:"default_left"`
	LossChanges     []float64 `json:"loss_changes"`
	SumHessian      []float64 `json:"sum_hessian"`
	SplitType       []int     `json:"split_type"`
}

// flexBools accepts default_left written as booleans (1.x) or as 0/1 (2.x).
type flexBools []bool

func (f *flexBools) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		s := strings.TrimSpace(string(r))
		switch s {
		case "true", "1":
			out[i] = true
		case "false", "0":
			out[i] = false
		default:
			return errors.Newf("default_left[%d]: unexpected value %s", i, s)
		}
	}
	*f = out
	return nil
}

// LoadFromFile reads an XGBoost JSON model from path.
func LoadFromFile(path string) (*Model, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, errors.NewModelError("LoadFromFile", "open", err)
	}
	defer f.Close()

	m, err := LoadFromReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", cleanPath)
	}

	log.GetLogger().Debug("model loaded",
		log.OperationKey, log.OperationLoad,
		log.ModelPathKey, cleanPath,
		log.ObjectiveKey, string(m.objective),
		log.TreesKey, len(m.trees),
		log.FeaturesKey, m.numFeature,
	)
	return m, nil
}

// LoadFromReader parses an XGBoost JSON model.
func LoadFromReader(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)
	if err := sniffJSON(br); err != nil {
		return nil, err
	}

	var doc jsonModel
	dec := json.NewDecoder(br)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.NewModelError("LoadFromReader", "decode json", err)
	}
	return convert(&doc)
}

// sniffJSON rejects pickled or UBJSON artifacts with a hint instead of a
// confusing decoder error.
func sniffJSON(br *bufio.Reader) error {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return errors.NewModelError("LoadFromReader", "empty model artifact", err)
		}
		if b[0] == ' ' || b[0] == '\n' || b[0] == '\r' || b[0] == '\t' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] != '{' {
			return errors.NewModelError("LoadFromReader", "unsupported format",
				errors.New("artifact is not JSON; export it with Booster.save_model(\"model.json\")"))
		}
		return nil
	}
}

func convert(doc *jsonModel) (*Model, error) {
	lp := doc.Learner.LearnerModelParam

	numClass, err := parseIntParam("num_class", lp.NumClass, 0)
	if err != nil {
		return nil, err
	}
	if numClass > 1 {
		return nil, errors.NewModelError("convert", "unsupported model",
			errors.Newf("multiclass models are not supported (num_class=%d)", numClass))
	}
	numTarget, err := parseIntParam("num_target", lp.NumTarget, 1)
	if err != nil {
		return nil, err
	}
	if numTarget > 1 {
		return nil, errors.NewModelError("convert", "unsupported model",
			errors.Newf("multi-target models are not supported (num_target=%d)", numTarget))
	}
	numFeature, err := parseIntParam("num_feature", lp.NumFeature, -1)
	if err != nil {
		return nil, err
	}
	if numFeature <= 0 {
		return nil, errors.NewModelError("convert", "invalid model",
			errors.Newf("num_feature must be positive, got %q", lp.NumFeature))
	}
	baseScore, err := parseBaseScore(lp.BaseScore)
	if err != nil {
		return nil, err
	}

	objective := ObjectiveType(doc.Learner.Objective.Name)
	if _, ok := objective.link(); !ok {
		return nil, errors.NewModelError("convert", "unsupported objective",
			errors.Newf("objective %q", objective))
	}
	if err := checkBaseScore(objective, baseScore); err != nil {
		return nil, err
	}

	booster := doc.Learner.GradientBooster
	treeModel := booster.Model
	var weights []float64
	switch booster.Name {
	case "gbtree", "":
	case "dart":
		if booster.GBTree != nil {
			treeModel = booster.GBTree.Model
		}
		weights = booster.WeightDrop
	default:
		return nil, errors.NewModelError("convert", "unsupported booster",
			errors.Newf("booster %q", booster.Name))
	}
	if treeModel == nil {
		return nil, errors.NewModelError("convert", "invalid model", errors.New("missing tree model"))
	}
	if weights != nil && len(weights) != len(treeModel.Trees) {
		return nil, errors.NewModelError("convert", "invalid model",
			errors.Newf("weight_drop has %d entries for %d trees", len(weights), len(treeModel.Trees)))
	}

	names := doc.Learner.FeatureNames
	if len(names) > 0 && len(names) != numFeature {
		return nil, errors.NewModelError("convert", "invalid model",
			errors.Newf("%d feature names for %d features", len(names), numFeature))
	}

	m := &Model{
		Version:      formatVersion(doc.Version),
		Booster:      booster.Name,
		objective:    objective,
		baseScore:    baseScore,
		numFeature:   numFeature,
		featureNames: names,
		featureTypes: doc.Learner.FeatureTypes,
		trees:        make([]Tree, 0, len(treeModel.Trees)),
		treeWeights:  weights,
	}
	if m.Booster == "" {
		m.Booster = "gbtree"
	}

	for i := range treeModel.Trees {
		tree, err := convertTree(&treeModel.Trees[i], numFeature)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		m.trees = append(m.trees, tree)
	}
	return m, nil
}

func convertTree(jt *jsonTree, numFeature int) (Tree, error) {
	n := len(jt.LeftChildren)
	if n == 0 {
		return Tree{}, errors.NewModelError("convertTree", "invalid tree", errors.New("tree has no nodes"))
	}
	if len(jt.RightChildren) != n || len(jt.SplitIndices) != n ||
		len(jt.SplitConditions) != n || len(jt.DefaultLeft) != n {
		return Tree{}, errors.NewModelError("convertTree", "invalid tree",
			errors.Newf("node arrays disagree in length (left_children=%d)", n))
	}

	nodes := make([]Node, n)
	for i := 0; i < n; i++ {
		if i < len(jt.SplitType) && jt.SplitType[i] != 0 {
			return Tree{}, errors.NewModelError("convertTree", "unsupported model",
				errors.New("categorical splits are not supported"))
		}

		left, right := jt.LeftChildren[i], jt.RightChildren[i]
		if (left == -1) != (right == -1) {
			return Tree{}, errors.NewModelError("convertTree", "invalid tree",
				errors.Newf("node %d has exactly one child", i))
		}
		if left != -1 {
			// children always follow their parent, which also rules out cycles
			if left <= i || left >= n || right <= i || right >= n {
				return Tree{}, errors.NewModelError("convertTree", "invalid tree",
					errors.Newf("node %d has out-of-order children %d/%d", i, left, right))
			}
			if jt.SplitIndices[i] < 0 || jt.SplitIndices[i] >= numFeature {
				return Tree{}, errors.NewModelError("convertTree", "invalid tree",
					errors.Newf("node %d splits on feature %d of %d", i, jt.SplitIndices[i], numFeature))
			}
		}

		nodes[i] = Node{
			Left:        left,
			Right:       right,
			Feature:     jt.SplitIndices[i],
			Condition:   jt.SplitConditions[i],
			DefaultLeft: jt.DefaultLeft[i],
		}
		if i < len(jt.LossChanges) {
			nodes[i].Gain = jt.LossChanges[i]
		}
		if i < len(jt.SumHessian) {
			nodes[i].Cover = jt.SumHessian[i]
		}
	}
	return Tree{ID: jt.ID, Nodes: nodes}, nil
}

// parseBaseScore accepts "5E-1" and the bracketed "[5E-1]" written by 2.x.
func parseBaseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return 0.5, nil
	}
	if strings.Contains(s, ",") {
		return 0, errors.NewModelError("parseBaseScore", "unsupported model",
			errors.Newf("vector base_score %q", s))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewModelError("parseBaseScore", "invalid base_score", err)
	}
	return v, nil
}

func checkBaseScore(obj ObjectiveType, base float64) error {
	l, _ := obj.link()
	switch {
	case l == linkLogistic && (base <= 0 || base >= 1):
		return errors.NewModelError("convert", "invalid base_score",
			errors.Newf("%g is outside (0, 1) for %s", base, obj))
	case l == linkLog && base <= 0:
		return errors.NewModelError("convert", "invalid base_score",
			errors.Newf("%g must be positive for %s", base, obj))
	}
	return nil
}

func parseIntParam(name, s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewModelError("convert", "invalid "+name, err)
	}
	return v, nil
}

func formatVersion(v []int) string {
	var buf bytes.Buffer
	for i, p := range v {
		if i > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(strconv.Itoa(p))
	}
	return buf.String()
}
