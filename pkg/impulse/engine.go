package impulse

// Engine is the low-level inference backend behind a Handle. The cgo-backed
// implementation in pkg/ffi forwards every call to the compiled Edge
// Impulse library; SimEngine provides a deterministic in-process
// implementation for tests and development without a model tree.
//
// Engines report native failures through Status values and never through
// plain errors, so SDK codes pass through the binding unchanged.
type Engine interface {
	// Init performs the process-wide classifier initialization
	// (run_classifier_init). Must be called exactly once before any
	// other method.
	Init() error

	// Deinit tears the classifier down (run_classifier_deinit). No call
	// is valid afterwards.
	Deinit() error

	// Blocks returns the postprocessing block table of the loaded
	// impulse, with configurations tagged by block type. Called once
	// during handle initialization.
	Blocks() ([]Block, error)

	// RunClassifier runs one full inference over the signal and fills
	// the result in place.
	RunClassifier(sig *Signal, res *Result, debug bool) Status

	// RunClassifierContinuous runs one slice of continuous inference.
	RunClassifierContinuous(sig *Signal, res *Result, debug bool) Status

	// RunInference runs inference on a pre-processed feature matrix.
	RunInference(features [][]float32, res *Result, debug bool) Status

	// ApplyThreshold applies a threshold configuration to the block with
	// the given id. The caller has already verified that the block
	// exists and that cfg matches its declared type.
	ApplyThreshold(blockID uint32, cfg BlockConfig) Status
}
