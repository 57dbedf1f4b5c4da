package impulse

// SimEngine is a deterministic in-process Engine for tests and for
// developing against the binding without a compiled model. It returns
// configurable outputs and records call counts.
type SimEngine struct {
	// BlockTable is returned from Blocks. Configs are cloned so callers
	// cannot mutate engine state through the handle.
	BlockTable []Block

	// Output is copied into the result on every successful run.
	Output Result

	// InitStatus, RunStatus and ApplyStatus let tests force failures.
	InitStatus  Status
	RunStatus   Status
	ApplyStatus Status

	// Call counters.
	InitCalls   int
	DeinitCalls int
	RunCalls    int
	ApplyCalls  int

	// Applied records every threshold successfully applied, keyed by
	// block id.
	Applied map[uint32]BlockConfig

	initialized bool
}

// NewSimEngine creates a simulated engine with the given block table.
func NewSimEngine(blocks ...Block) *SimEngine {
	return &SimEngine{
		BlockTable: blocks,
		Applied:    make(map[uint32]BlockConfig),
	}
}

// Init implements Engine.
func (e *SimEngine) Init() error {
	e.InitCalls++
	if e.InitStatus != StatusOK {
		return NewError(e.InitStatus, "sim init")
	}
	e.initialized = true
	return nil
}

// Deinit implements Engine.
func (e *SimEngine) Deinit() error {
	e.DeinitCalls++
	e.initialized = false
	return nil
}

// Blocks implements Engine.
func (e *SimEngine) Blocks() ([]Block, error) {
	return snapshot(e.BlockTable), nil
}

// RunClassifier implements Engine.
func (e *SimEngine) RunClassifier(sig *Signal, res *Result, debug bool) Status {
	return e.run(sig, res)
}

// RunClassifierContinuous implements Engine.
func (e *SimEngine) RunClassifierContinuous(sig *Signal, res *Result, debug bool) Status {
	return e.run(sig, res)
}

// RunInference implements Engine.
func (e *SimEngine) RunInference(features [][]float32, res *Result, debug bool) Status {
	e.RunCalls++
	if !e.initialized {
		return StatusNotInitialized
	}
	if e.RunStatus != StatusOK {
		return e.RunStatus
	}
	e.fill(res)
	return StatusOK
}

// ApplyThreshold implements Engine.
func (e *SimEngine) ApplyThreshold(blockID uint32, cfg BlockConfig) Status {
	e.ApplyCalls++
	if e.ApplyStatus != StatusOK {
		return e.ApplyStatus
	}
	e.Applied[blockID] = cfg.clone()
	for i := range e.BlockTable {
		if e.BlockTable[i].ID == blockID {
			e.BlockTable[i].Config = cfg.clone()
		}
	}
	return StatusOK
}

func (e *SimEngine) run(sig *Signal, res *Result) Status {
	e.RunCalls++
	if !e.initialized {
		return StatusNotInitialized
	}
	if sig == nil || sig.Len() == 0 {
		return StatusInvalidSize
	}
	if e.RunStatus != StatusOK {
		return e.RunStatus
	}
	e.fill(res)
	return StatusOK
}

func (e *SimEngine) fill(res *Result) {
	res.Reset()
	res.Classifications = append(res.Classifications, e.Output.Classifications...)
	res.BoundingBoxes = append(res.BoundingBoxes, e.Output.BoundingBoxes...)
	res.VisualAnomaly = e.Output.VisualAnomaly
	res.AnomalyScore = e.Output.AnomalyScore
	res.Timing = e.Output.Timing
}

var _ Engine = (*SimEngine)(nil)
