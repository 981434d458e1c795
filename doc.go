// Package freightml estimates railway freight prices and probes the
// gradient-boosted models that were trained to predict them.
//
// The repository is organised as a set of small packages plus two commands.
//
// # Pricing
//
// Package pricing holds the heuristic estimator. It is calibrated on one
// shipment with a known price (Kalyan to Nagpur, 382 km, 1374 t, 0.0853
// crores) and scales every other shipment from it with a logarithmic blend of
// distance and weight:
//
//	price := pricing.EstimatePrice("KYN", "DHI", 1400, 500, 1.3, 1.1)
//	fmt.Println(pricing.FormatINR(pricing.CroresToINR(price)))
//
// The predict command wraps it:
//
//	predict KYN NGSM 382 1374
//	0.0853
//
// # Models
//
// Package gbdt loads XGBoost models saved with save_model in JSON form and
// evaluates them without any native dependency. Package features builds the
// input vectors: the dense [distance, weight, demand] form of the distance
// model and the 772-wide sparse form of the amount model, whose positions are
// not recorded anywhere and must be recovered.
//
// # Probing
//
// Package probe and the freightprobe command compare both models on a fixed
// set of shipments, brute-force the sparse layout of the amount model, sweep
// its sensitivity to distance and weight, and dump its structure:
//
//	freightprobe compare
//	freightprobe search --plot sweep.png
//	freightprobe inspect
//
// A successful search writes the winning positions to model_config.yaml in
// the model directory.
//
// # Configuration
//
// Both commands read freightml.yaml and .env from the directory given with
// --config, then FREIGHTML_* environment variables. See package config.
//
// # Error Handling
//
// Errors are built with package errors, a thin layer over
// github.com/cockroachdb/errors with typed DimensionError, ValidationError and
// ModelError values. Panics inside model evaluation are turned into errors
// with SafeExecute.
//
// # Logging
//
// Structured logs go through package log, backed by zerolog:
//
//	log.GetLogger().Info("search finished", log.CandidatesKey, n)
package freightml
