// Package log defines standard attribute keys for pricing and model probing.
//
// Keys follow a dotted naming convention (e.g. "model.path", "quote.method")
// so records from the predict and probe commands can be filtered uniformly.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the model artifact by its short name.
	// Examples: "xgboost_model", "xgboost_amount_model"
	ModelNameKey = "model.name"

	// ModelPathKey is the file the artifact was loaded from.
	ModelPathKey = "model.path"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which command or package emitted the record.
	ComponentKey = "ml.component"

	// ObjectiveKey records the model's objective, e.g. "reg:squarederror".
	ObjectiveKey = "model.objective"

	// TreesKey records the number of trees in an ensemble.
	TreesKey = "model.trees"
)

// Data shape.
const (
	// SamplesKey indicates the number of rows in a prediction batch.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the feature vector width.
	FeaturesKey = "data.features"

	// LayoutKey names the feature layout used to build the vectors.
	LayoutKey = "data.layout"
)

// Pricing context.
const (
	SourceKey      = "quote.source"
	DestinationKey = "quote.destination"
	DistanceKey    = "quote.distance_km"
	WeightKey      = "quote.weight_tonnes"
	PriceKey       = "quote.crores"

	// MethodKey records which pricing path produced a quote.
	MethodKey = "quote.method"
)

// Search context.
const (
	CandidatesKey = "search.candidates"
	ThresholdKey  = "search.threshold"
	PredictionKey = "search.prediction"
	OutputPathKey = "search.output"
)

// Performance and errors.
const (
	DurationMsKey = "perf.duration_ms"
	WarningKey    = "warning"
	ErrorCodeKey  = "error.code"
)

// Standard attribute values.
const (
	OperationLoad     = "load"
	OperationPredict  = "predict"
	OperationEstimate = "estimate"
	OperationSearch   = "search"
	OperationCompare  = "compare"
	OperationInspect  = "inspect"
	OperationPersist  = "persist"

	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorModelLoad         = "MODEL_LOAD"
	ErrorPanic             = "PANIC"
)
