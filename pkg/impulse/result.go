package impulse

import "fmt"

// Classification is a single label score.
type Classification struct {
	Label string
	Value float32
}

func (c Classification) String() string {
	return fmt.Sprintf("%s: %.4f", c.Label, c.Value)
}

// BoundingBox is a detected object location with its score.
type BoundingBox struct {
	Label  string
	Value  float32
	X      uint32
	Y      uint32
	Width  uint32
	Height uint32
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%s: %.4f (x=%d, y=%d, w=%d, h=%d)",
		b.Label, b.Value, b.X, b.Y, b.Width, b.Height)
}

// Timing holds per-stage inference timing.
type Timing struct {
	DSP                  int
	Classification       int
	Anomaly              int
	DSPMicros            int64
	ClassificationMicros int64
	AnomalyMicros        int64
}

func (t Timing) String() string {
	return fmt.Sprintf("Timing: dsp=%d ms, classification=%d ms, anomaly=%d ms",
		t.DSP, t.Classification, t.Anomaly)
}

// VisualAnomaly holds the output of a visual anomaly block.
type VisualAnomaly struct {
	Grid    []BoundingBox
	Max     float32
	Mean    float32
	Overall float32
}

// Result is the output structure of one inference call. The caller
// allocates it and the engine populates it in place; none of the fields
// need to be freed individually.
type Result struct {
	Classifications []Classification
	BoundingBoxes   []BoundingBox
	VisualAnomaly   *VisualAnomaly
	AnomalyScore    float32
	Timing          Timing
}

// Reset clears the result for reuse across calls.
func (r *Result) Reset() {
	r.Classifications = r.Classifications[:0]
	r.BoundingBoxes = r.BoundingBoxes[:0]
	r.VisualAnomaly = nil
	r.AnomalyScore = 0
	r.Timing = Timing{}
}
