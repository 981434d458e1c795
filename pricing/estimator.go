// Package pricing implements the heuristic freight price estimate used when
// the gradient-boosted models cannot be trusted.
//
// Prices are expressed in crores (1 crore = 10,000,000 INR). The estimator is
// pure: it performs no I/O, keeps no state and never logs.
package pricing

import (
	"math"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

// Calibration constants taken from the one shipment with a known price.
const (
	KnownSource      = "KYN"
	KnownDestination = "NGSM"
	KnownDistance    = 382.0
	KnownWeight      = 1374.0
	KnownPrice       = 0.0853

	// KnownTolerance is how close distance and weight must be to count as the known sample.
	KnownTolerance = 1.0

	DistanceImpact = 0.6
	WeightImpact   = 0.4

	// FloorPrice is the minimum quote in crores.
	FloorPrice = 0.05

	// DefaultFactor is used for a location whose cost factor is not supplied.
	DefaultFactor = 1.2

	RatePerKM      = 50.0 // INR
	RatePerTonneKM = 10.0 // INR
	INRPerCrore    = 10_000_000.0
)

// Method names the path that produced a Quote.
type Method string

const (
	MethodKnownSample    Method = "known-sample"
	MethodLogBlend       Method = "log-blend"
	MethodLinearFallback Method = "linear-fallback"
)

// Request is one shipment to price.
type Request struct {
	Source       string
	Destination  string
	DistanceKM   float64
	WeightTonnes float64
	SourceFactor float64 // zero means DefaultFactor
	DestFactor   float64 // zero means DefaultFactor
}

// Quote is the outcome of Estimate.
type Quote struct {
	Request
	Crores float64
	Method Method
	// Cause is set when the logarithmic blend failed and the linear formula was used.
	Cause error
}

// INR returns the quote rounded to whole rupees.
func (q Quote) INR() int64 {
	return CroresToINR(q.Crores)
}

// Validate checks the request the same way the predict command does.
func (r Request) Validate() error {
	if !(r.DistanceKM > 0) || math.IsInf(r.DistanceKM, 1) {
		return errors.NewValidationError("distance", "must be a positive finite number", r.DistanceKM)
	}
	if !(r.WeightTonnes > 0) || math.IsInf(r.WeightTonnes, 1) {
		return errors.NewValidationError("weight", "must be a positive finite number", r.WeightTonnes)
	}
	// a zero factor selects DefaultFactor
	if !(r.SourceFactor >= 0) || math.IsInf(r.SourceFactor, 1) {
		return errors.NewValidationError("source_factor", "must be a non-negative finite number", r.SourceFactor)
	}
	if !(r.DestFactor >= 0) || math.IsInf(r.DestFactor, 1) {
		return errors.NewValidationError("dest_factor", "must be a non-negative finite number", r.DestFactor)
	}
	return nil
}

func (r Request) withDefaults() Request {
	if r.SourceFactor == 0 {
		r.SourceFactor = DefaultFactor
	}
	if r.DestFactor == 0 {
		r.DestFactor = DefaultFactor
	}
	return r
}

// EstimatePrice returns the price in crores for one shipment. It is the
// function form of Estimate for callers that only need the number.
func EstimatePrice(source, destination string, distance, weight, sourceFactor, destFactor float64) float64 {
	return Estimate(Request{
		Source:       source,
		Destination:  destination,
		DistanceKM:   distance,
		WeightTonnes: weight,
		SourceFactor: sourceFactor,
		DestFactor:   destFactor,
	}).Crores
}

// Estimate prices a shipment.
//
// The known KYN→NGSM sample returns its recorded price. Everything else is
// scaled from that sample with a base-2 logarithmic blend of the distance and
// weight ratios, multiplied by the mean location factor and a deterministic
// per-route variation, and floored at FloorPrice. If the blend produces a
// non-finite value or panics, the linear per-km formula is used instead,
// under the same floor.
// Estimate does not validate its input; see Request.Validate.
func Estimate(req Request) Quote {
	req = req.withDefaults()

	if isKnownSample(req) {
		return Quote{Request: req, Crores: KnownPrice, Method: MethodKnownSample}
	}

	var price float64
	err := errors.SafeExecute("pricing.logBlend", func() error {
		var err error
		price, err = logBlend(req)
		return err
	})
	if err != nil {
		linear := LinearFallback(req.DistanceKM, req.WeightTonnes, req.SourceFactor, req.DestFactor)
		return Quote{
			Request: req,
			Crores:  math.Max(FloorPrice, linear),
			Method:  MethodLinearFallback,
			Cause:   err,
		}
	}
	return Quote{Request: req, Crores: price, Method: MethodLogBlend}
}

func isKnownSample(req Request) bool {
	return req.Source == KnownSource &&
		req.Destination == KnownDestination &&
		math.Abs(req.DistanceKM-KnownDistance) < KnownTolerance &&
		math.Abs(req.WeightTonnes-KnownWeight) < KnownTolerance
}

func logBlend(req Request) (float64, error) {
	distanceFactor := req.DistanceKM / KnownDistance
	weightFactor := req.WeightTonnes / KnownWeight

	blend := DistanceImpact*math.Log2(1+distanceFactor) + WeightImpact*math.Log2(1+weightFactor)
	price := KnownPrice * blend * meanFactor(req.SourceFactor, req.DestFactor)
	if err := errors.CheckScalar("pricing.logBlend", price, 0); err != nil {
		return 0, err
	}

	price *= RouteVariation(req.Source, req.Destination)
	return math.Max(FloorPrice, price), nil
}

// LinearFallback is the per-km price formula, converted to crores with a
// deterministic variation between 0.95 and 1.04. It is finite and
// non-negative for any non-negative distance and weight, including zero.
func LinearFallback(distance, weight, sourceFactor, destFactor float64) float64 {
	baseCost := distance * RatePerKM
	weightCost := distance * weight * RatePerTonneKM
	totalINR := (baseCost + weightCost) * meanFactor(sourceFactor, destFactor)

	crores := INRToCrores(totalINR) * ShipmentVariation(distance, weight)
	if math.IsNaN(crores) || math.IsInf(crores, 0) || crores < 0 {
		return 0
	}
	return crores
}

func meanFactor(a, b float64) float64 {
	return (a + b) / 2
}
