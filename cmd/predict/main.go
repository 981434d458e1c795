// Command predict prints the heuristic freight price, in crores, for one
// shipment:
//
//	predict [flags] <source> <destination> <distance> <weight> [source_factor] [dest_factor]
//
// The price goes to stdout. Any problem with the input is reported on stderr
// with exit status 1 and nothing on stdout.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/freightml/pkg/config"
	"github.com/YuminosukeSato/freightml/pkg/errors"
	"github.com/YuminosukeSato/freightml/pkg/log"
	"github.com/YuminosukeSato/freightml/pricing"
)

const usage = "Usage: predict <source> <destination> <distance> <weight> [source_factor] [dest_factor]"

// Error lines printed for rejected input.
const (
	errInvalidInput    = "Error: Invalid input format"
	errNonPositiveSize = "Error: Distance and weight must be positive numbers"
	errNonPositiveLoc  = "Error: Location factors must be positive numbers"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configDir      string
	catalogFactors bool
	logLevel       string
	format         string
	inr            bool
}

type result struct {
	Source       string  `json:"source"`
	Destination  string  `json:"destination"`
	DistanceKM   float64 `json:"distance_km"`
	WeightTonnes float64 `json:"weight_tonnes"`
	SourceFactor float64 `json:"source_factor"`
	DestFactor   float64 `json:"dest_factor"`
	Crores       float64 `json:"crores"`
	INR          int64   `json:"inr"`
	Method       string  `json:"method"`
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("predict", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	// negative numbers after the first positional are values, not flags
	fs.SetInterspersed(false)
	fs.StringVar(&opts.configDir, "config", "", "directory holding freightml.yaml and .env")
	fs.BoolVar(&opts.catalogFactors, "catalog-factors", false, "take omitted location factors from the station catalog")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, disabled")
	fs.StringVar(&opts.format, "format", "plain", "output format: plain or json")
	fs.BoolVar(&opts.inr, "inr", false, "also print the price in rupees")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 1
	}

	pos := fs.Args()
	if len(pos) < 4 {
		fmt.Fprintln(stderr, usage)
		return 1
	}
	if opts.format != "plain" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return 1
	}

	cfg, err := config.Load(opts.configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := log.Setup(log.Options{Level: level, Format: cfg.LogFormat, Out: stderr, Component: "predict"})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	req, code := parseRequest(pos, cfg, opts.catalogFactors, stderr)
	if code != 0 {
		return code
	}

	quote := pricing.Estimate(req)
	if quote.Cause != nil {
		errors.Warn(errors.NewFallbackWarning("pricing.Estimate",
			string(pricing.MethodLogBlend), string(pricing.MethodLinearFallback), quote.Cause.Error()))
	}
	logger.Debug("price estimated",
		log.OperationKey, log.OperationEstimate,
		log.SourceKey, quote.Source,
		log.DestinationKey, quote.Destination,
		log.DistanceKey, quote.DistanceKM,
		log.WeightKey, quote.WeightTonnes,
		log.PriceKey, quote.Crores,
		log.MethodKey, string(quote.Method),
	)

	if opts.format == "json" {
		enc := json.NewEncoder(stdout)
		if err := enc.Encode(result{
			Source:       quote.Source,
			Destination:  quote.Destination,
			DistanceKM:   quote.DistanceKM,
			WeightTonnes: quote.WeightTonnes,
			SourceFactor: quote.SourceFactor,
			DestFactor:   quote.DestFactor,
			Crores:       quote.Crores,
			INR:          quote.INR(),
			Method:       string(quote.Method),
		}); err != nil {
			return 1
		}
		return 0
	}

	fmt.Fprintln(stdout, strconv.FormatFloat(quote.Crores, 'f', -1, 64))
	if opts.inr {
		fmt.Fprintln(stdout, pricing.FormatINR(quote.INR()))
	}
	return 0
}

// parseRequest turns the positional arguments into a request. A non-zero
// code means an error line was already written.
func parseRequest(pos []string, cfg *config.Config, catalogFactors bool, stderr io.Writer) (pricing.Request, int) {
	numbers := make([]float64, 0, 4)
	for _, s := range pos[2:] {
		if len(numbers) == 4 {
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			fmt.Fprintln(stderr, errInvalidInput)
			return pricing.Request{}, 1
		}
		numbers = append(numbers, v)
	}

	req := pricing.Request{
		Source:       pos[0],
		Destination:  pos[1],
		DistanceKM:   numbers[0],
		WeightTonnes: numbers[1],
		SourceFactor: cfg.DefaultSrcFactor,
		DestFactor:   cfg.DefaultDstFactor,
	}
	if catalogFactors {
		catalog := pricing.DefaultCatalog()
		req.SourceFactor = catalog.Factor(req.Source, req.SourceFactor)
		req.DestFactor = catalog.Factor(req.Destination, req.DestFactor)
	}
	if len(numbers) > 2 {
		req.SourceFactor = numbers[2]
	}
	if len(numbers) > 3 {
		req.DestFactor = numbers[3]
	}

	if !(req.DistanceKM > 0) || !(req.WeightTonnes > 0) {
		fmt.Fprintln(stderr, errNonPositiveSize)
		return pricing.Request{}, 1
	}
	if !(req.SourceFactor > 0) || !(req.DestFactor > 0) {
		fmt.Fprintln(stderr, errNonPositiveLoc)
		return pricing.Request{}, 1
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintln(stderr, errInvalidInput)
		return pricing.Request{}, 1
	}
	return req, 0
}
