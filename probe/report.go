package probe

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/freightml/features"
	"github.com/YuminosukeSato/freightml/pkg/errors"
	"github.com/YuminosukeSato/freightml/pkg/log"
)

// PersistBest writes the best candidate of res to path as the constants file.
func PersistBest(path string, res *SearchResult) (features.SparseLayout, error) {
	best, ok := res.Best()
	if !ok {
		return features.SparseLayout{}, errors.ErrNoCandidates
	}
	if err := features.SaveLayout(path, best.Layout); err != nil {
		return features.SparseLayout{}, err
	}
	log.GetLogger().Info("layout saved",
		log.OperationKey, log.OperationPersist,
		log.OutputPathKey, path,
		log.LayoutKey, best.Layout.String(),
		log.PredictionKey, best.Prediction,
	)
	return best.Layout, nil
}

// WriteCompare prints a comparison report as aligned text.
func WriteCompare(w io.Writer, r *CompareReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, res := range r.Models {
		fmt.Fprintf(tw, "== %s model (%s)\n", res.Artifact.Name, res.Artifact.Path)
		if res.LoadErr != nil {
			fmt.Fprintf(tw, "load failed: %v\n\n", res.LoadErr)
			continue
		}
		fmt.Fprintf(tw, "objective %s, %d trees, %d features\n", res.Objective, res.NumTrees, res.NumFeatures)
		fmt.Fprintln(tw, "format\tcase\tprediction\tcrores\theuristic")
		for _, row := range res.Rows {
			if row.Err != nil {
				fmt.Fprintf(tw, "%s\t%s\terror: %v\t\t%.4f\n", row.Format, row.Case, row.Err, row.Heuristic)
				continue
			}
			crores := "-"
			if res.Artifact.Kind == DistanceModel {
				crores = fmt.Sprintf("%.4f", row.Crores)
			}
			fmt.Fprintf(tw, "%s\t%s\t%.6f\t%s\t%.4f\n", row.Format, row.Case, row.Prediction, crores, row.Heuristic)
		}
		if a := res.Agreement; a != nil {
			fmt.Fprintf(tw, "against heuristic over %d cases: MAE %.4f, RMSE %.4f, MAPE %.1f%%\n", a.N, a.MAE, a.RMSE, a.MAPE)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// WriteSearch prints the search summary and the ranked candidates.
func WriteSearch(w io.Writer, r *SearchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "important features: %s\n", joinInts(window(r.Important, 0, 6)))
	fmt.Fprintf(tw, "grid: %d combinations, %d evaluated, %d failed, %d above threshold\n",
		r.Grid.Size(), r.Evaluated, r.Failed, r.Kept)
	if len(r.Top) == 0 {
		fmt.Fprintln(tw, "no configuration produced a prediction above the threshold")
		return tw.Flush()
	}
	fmt.Fprintln(tw, "rank\tsource\tdestination\tdistance\tweight\tprediction")
	for i, c := range r.Top {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%.6f\n",
			i+1, c.Layout.Source, c.Layout.Destination, c.Layout.Distance, c.Layout.Weight, c.Prediction)
	}
	return tw.Flush()
}

// WriteSensitivity prints the sweep as a weight by distance table.
func WriteSensitivity(w io.Writer, r *SensitivityResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "sensitivity for %s\n", r.Layout)
	header := []string{"weight \\ distance"}
	for _, d := range r.Distances {
		header = append(header, fmt.Sprintf("%.0f", d))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, wt := range r.Weights {
		cells := []string{fmt.Sprintf("%.0f", wt)}
		for j := range r.Distances {
			cells = append(cells, fmt.Sprintf("%.6f", r.Values.At(i, j)))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	s := r.Summary
	fmt.Fprintf(tw, "min %.6f  max %.6f  mean %.6f  stddev %.6f\n", s.Min, s.Max, s.Mean, s.StdDev)
	if s.Constant {
		fmt.Fprintln(tw, "predictions do not change with distance or weight")
	}
	return tw.Flush()
}

// WriteInspection prints an Inspection.
func WriteInspection(w io.Writer, ins *Inspection) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "objective:\t%s\n", ins.Objective)
	fmt.Fprintf(tw, "booster:\t%s\n", ins.Booster)
	if ins.Version != "" {
		fmt.Fprintf(tw, "xgboost version:\t%s\n", ins.Version)
	}
	fmt.Fprintf(tw, "base score:\t%g\n", ins.BaseScore)
	fmt.Fprintf(tw, "trees:\t%d\n", ins.NumTrees)
	fmt.Fprintf(tw, "features:\t%d\n", ins.NumFeatures)
	if len(ins.FeatureNames) > 0 {
		fmt.Fprintf(tw, "feature names:\t%s\n", strings.Join(ins.FeatureNames, ", "))
	}

	fmt.Fprintln(tw, "\ntop features by split count:")
	for _, s := range ins.Importance {
		fmt.Fprintf(tw, "  %s\t%g\n", s.Name, s.Score)
	}

	fmt.Fprintf(tw, "\nfeatures used in the first tree: %s\n", joinInts(ins.FirstTreeFeatures))

	fmt.Fprintln(tw, "\ntrial predictions:")
	for _, tr := range ins.Trials {
		if tr.Err != nil {
			fmt.Fprintf(tw, "  %s\t%s\terror: %v\n", tr.Name, tr.Layout, tr.Err)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t%.6f\n", tr.Name, tr.Layout, tr.Prediction)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if ins.FirstTreeDump != "" {
		// the dump indents with tabs, so it bypasses the tabwriter
		if _, err := fmt.Fprintf(w, "\nfirst tree:\n%s", ins.FirstTreeDump); err != nil {
			return err
		}
	}
	return nil
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return "none"
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
