// Command freightprobe inspects the pre-trained freight models.
//
//	freightprobe compare              run the default shipments through both models
//	freightprobe search [--plot f]    brute-force the amount model's sparse layout
//	freightprobe inspect [--distance] print a model's structure and trial predictions
//	freightprobe stations             list the station catalog
//	freightprobe version              print the build version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/freightml/gbdt"
	"github.com/YuminosukeSato/freightml/pkg/config"
	"github.com/YuminosukeSato/freightml/pkg/errors"
	"github.com/YuminosukeSato/freightml/pkg/log"
	"github.com/YuminosukeSato/freightml/pricing"
	"github.com/YuminosukeSato/freightml/probe"
)

var version = "dev"

const usage = "usage: freightprobe <compare|search|inspect|stations|version> [flags]"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "compare":
		err = runCompare(ctx, args[1:], stdout, stderr)
	case "search":
		err = runSearch(ctx, args[1:], stdout, stderr)
	case "inspect":
		err = runInspect(ctx, args[1:], stdout, stderr)
	case "stations":
		err = runStations(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "freightprobe %s\n", version)
		return 0
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "freightprobe: unknown command %q\n%s\n", args[0], usage)
		return 2
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "freightprobe: %v\n", err)
		return 1
	}
	return 0
}

// common holds the flags every model subcommand accepts.
type common struct {
	configDir string
	logLevel  string
	logFormat string
}

func newFlagSet(name string, stderr io.Writer, c *common) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.configDir, "config", "", "directory holding freightml.yaml and .env")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error, disabled")
	fs.StringVar(&c.logFormat, "log-format", "", "log format: console or json")
	return fs
}

// setup loads the configuration and installs the logger.
func setup(c common, component string, stderr io.Writer) (*config.Config, log.Logger, error) {
	cfg, err := config.Load(c.configDir)
	if err != nil {
		return nil, nil, err
	}
	level, format := cfg.LogLevel, cfg.LogFormat
	if c.logLevel != "" {
		level = c.logLevel
	}
	if c.logFormat != "" {
		format = c.logFormat
	}
	logger, err := log.Setup(log.Options{Level: level, Format: format, Out: stderr, Component: component})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runCompare(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c common
	fs := newFlagSet("compare", stderr, &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := setup(c, "freightprobe.compare", stderr)
	if err != nil {
		return err
	}

	report, err := probe.Compare(ctx, probe.CompareOptions{
		Artifacts: []probe.Artifact{
			{Name: "distance", Path: cfg.DistanceModelPath(), Kind: probe.DistanceModel},
			{Name: "amount", Path: cfg.AmountModelPath(), Kind: probe.AmountModel},
		},
	})
	if report != nil {
		if werr := probe.WriteCompare(stdout, report); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func runSearch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c common
	fs := newFlagSet("search", stderr, &c)
	plotPath := fs.String("plot", "", "write the sensitivity chart to this .png or .svg file")
	out := fs.String("out", "", "constants file to write (default: layout_file in the model directory)")
	noSave := fs.Bool("no-save", false, "do not write the constants file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := setup(c, "freightprobe.search", stderr)
	if err != nil {
		return err
	}

	m, err := gbdt.LoadFromFile(cfg.AmountModelPath())
	if err != nil {
		return err
	}

	opts := probe.DefaultSearchOptions()
	opts.Threshold = cfg.SearchThreshold
	opts.Top = cfg.SearchTop
	res, err := probe.Search(ctx, m, opts)
	if res != nil {
		if werr := probe.WriteSearch(stdout, res); werr != nil {
			return werr
		}
	}
	if errors.Is(err, errors.ErrNoCandidates) {
		logger.Warn("no layout found", log.ThresholdKey, opts.Threshold)
		return nil
	}
	if err != nil {
		return err
	}

	best, _ := res.Best()
	sens, err := probe.Sensitivity(ctx, m, best.Layout)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	if err := probe.WriteSensitivity(stdout, sens); err != nil {
		return err
	}
	if *plotPath != "" {
		if err := sens.Plot(*plotPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "chart: %s\n", *plotPath)
	}

	if *noSave {
		return nil
	}
	path := *out
	if path == "" {
		path = cfg.LayoutPath()
	}
	if _, err := probe.PersistBest(path, res); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "layout: %s\n", path)
	return nil
}

func runInspect(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c common
	fs := newFlagSet("inspect", stderr, &c)
	distance := fs.Bool("distance", false, "inspect the distance model instead of the amount model")
	modelPath := fs.String("model", "", "inspect this artifact instead of a configured one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := setup(c, "freightprobe.inspect", stderr)
	if err != nil {
		return err
	}

	path := cfg.AmountModelPath()
	switch {
	case *modelPath != "":
		path = *modelPath
	case *distance:
		path = cfg.DistanceModelPath()
	}
	m, err := gbdt.LoadFromFile(path)
	if err != nil {
		return err
	}

	ins, err := probe.Inspect(ctx, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "model: %s\n", path)
	return probe.WriteInspection(stdout, ins)
}

func runStations(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("stations", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "code\tname\tregion\tcost factor")
	for _, s := range pricing.DefaultCatalog().Stations() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", s.Code, s.Name, s.Region, s.CostFactor)
	}
	return tw.Flush()
}
