package impulse

import "fmt"

// State is the lifecycle state of a Handle.
type State int

// Lifecycle states. Deinitialized is terminal.
const (
	StateUninitialized State = iota
	StateInitialized
	StateDeinitialized
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateInitialized:   "initialized",
	StateDeinitialized: "deinitialized",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown state (%d)", int(s))
}

// Handle represents the loaded impulse: the currently compiled-in model and
// its postprocessing block table. The underlying SDK keeps a process-wide
// singleton without internal synchronization, and this layer inherits that
// contract as-is: a Handle is NOT safe for concurrent use. Callers that
// invoke inference from more than one goroutine must serialize externally.
type Handle struct {
	engine Engine
	state  State
	blocks []Block
}

// NewHandle creates a handle over the given engine. The handle is
// unusable until Init succeeds.
func NewHandle(engine Engine) (*Handle, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	return &Handle{engine: engine}, nil
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return h.state
}

// Init performs global classifier initialization and loads the
// postprocessing block table. It must be called exactly once; the SDK
// leaves repeated initialization undefined, so a second call fails closed.
func (h *Handle) Init() error {
	switch h.state {
	case StateInitialized:
		return ErrAlreadyInitialized
	case StateDeinitialized:
		return ErrDeinitialized
	}

	if err := h.engine.Init(); err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}

	blocks, err := h.engine.Blocks()
	if err != nil {
		h.engine.Deinit()
		return fmt.Errorf("failed to load postprocessing blocks: %w", err)
	}
	h.blocks = blocks
	h.state = StateInitialized
	return nil
}

// Deinit tears the classifier down. The handle is unusable afterwards;
// Deinit on an already-deinitialized handle is a no-op.
func (h *Handle) Deinit() error {
	if h.state != StateInitialized {
		h.state = StateDeinitialized
		return nil
	}
	h.state = StateDeinitialized
	h.blocks = nil
	return h.engine.Deinit()
}

// guard checks that runtime calls are allowed in the current state.
// The SDK exhibits undefined behavior when called before init; this layer
// fails closed instead of forwarding.
func (h *Handle) guard(context string) error {
	switch h.state {
	case StateInitialized:
		return nil
	case StateDeinitialized:
		return NewErrorWithCause(StatusNotInitialized, context, ErrDeinitialized)
	default:
		return NewError(StatusNotInitialized, context)
	}
}

// RunClassifier runs one full inference over the signal, filling res in
// place. The signal buffer is borrowed for the duration of the call only.
func (h *Handle) RunClassifier(sig *Signal, res *Result, debug bool) error {
	if err := h.guard("run classifier"); err != nil {
		return err
	}
	if res == nil {
		return NewErrorWithCause(StatusOutputTensorNull, "run classifier", ErrNilResult)
	}
	if status := h.engine.RunClassifier(sig, res, debug); status != StatusOK {
		return NewError(status, "run classifier")
	}
	return nil
}

// RunClassifierContinuous runs one slice of continuous inference.
func (h *Handle) RunClassifierContinuous(sig *Signal, res *Result, debug bool) error {
	if err := h.guard("run classifier continuous"); err != nil {
		return err
	}
	if res == nil {
		return NewErrorWithCause(StatusOutputTensorNull, "run classifier continuous", ErrNilResult)
	}
	if status := h.engine.RunClassifierContinuous(sig, res, debug); status != StatusOK {
		return NewError(status, "run classifier continuous")
	}
	return nil
}

// RunInference runs inference on a pre-processed feature matrix.
func (h *Handle) RunInference(features [][]float32, res *Result, debug bool) error {
	if err := h.guard("run inference"); err != nil {
		return err
	}
	if res == nil {
		return NewErrorWithCause(StatusOutputTensorNull, "run inference", ErrNilResult)
	}
	if status := h.engine.RunInference(features, res, debug); status != StatusOK {
		return NewError(status, "run inference")
	}
	return nil
}

// Blocks returns a copy of the postprocessing block table.
func (h *Handle) Blocks() []Block {
	return snapshot(h.blocks)
}

// Block returns the block with the given id.
func (h *Handle) Block(blockID uint32) (Block, error) {
	for _, b := range h.blocks {
		if b.ID == blockID {
			cp := b
			if b.Config != nil {
				cp.Config = b.Config.clone()
			}
			return cp, nil
		}
	}
	return Block{}, NewErrorWithCause(StatusInferenceError,
		fmt.Sprintf("block %d", blockID), ErrBlockNotFound)
}

// SetObjectDetectionThreshold updates the minimum score of the object
// detection block with the given id. The block must exist and must be an
// object detection block; on any failure nothing is mutated.
func (h *Handle) SetObjectDetectionThreshold(blockID uint32, minScore float32) error {
	return h.setThreshold(blockID, &ObjectDetectionConfig{MinScore: minScore},
		"set object detection threshold")
}

// SetAnomalyThreshold updates the minimum anomaly score of the visual
// anomaly block with the given id.
func (h *Handle) SetAnomalyThreshold(blockID uint32, minAnomalyScore float32) error {
	return h.setThreshold(blockID, &VisualAnomalyConfig{Threshold: minAnomalyScore},
		"set anomaly threshold")
}

// SetObjectTrackingThreshold updates all three parameters of the object
// tracking block with the given id. Unlike the historical C wrapper, which
// overwrites any block with a non-null config, this setter rejects blocks
// whose declared type is not object tracking.
func (h *Handle) SetObjectTrackingThreshold(blockID uint32, threshold float32, keepGrace uint32, maxObservations uint16) error {
	return h.setThreshold(blockID, &ObjectTrackingConfig{
		Threshold:       threshold,
		KeepGrace:       keepGrace,
		MaxObservations: maxObservations,
	}, "set object tracking threshold")
}

// setThreshold locates the target block, verifies its declared type
// against the requested configuration kind, and applies the update through
// the engine before committing it to the local table. Either every field
// of the target config is updated, or none is.
func (h *Handle) setThreshold(blockID uint32, cfg BlockConfig, context string) error {
	if err := h.guard(context); err != nil {
		return err
	}

	idx := -1
	for i := range h.blocks {
		if h.blocks[i].ID == blockID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NewErrorWithCause(StatusInferenceError, context, ErrBlockNotFound)
	}
	if h.blocks[idx].Type != cfg.Type() {
		return NewErrorWithCause(StatusInferenceError,
			fmt.Sprintf("%s: block %d is %s, not %s",
				context, blockID, h.blocks[idx].Type, cfg.Type()),
			ErrBlockTypeMismatch)
	}

	if status := h.engine.ApplyThreshold(blockID, cfg); status != StatusOK {
		return NewError(status, context)
	}
	h.blocks[idx].Config = cfg.clone()
	return nil
}
