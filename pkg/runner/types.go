// Package runner provides a high-level inference API over an initialized
// impulse handle: model parameters, single-shot and continuous inference,
// and result shaping per model kind.
package runner

import (
	"github.com/emergingrobotics/go-edgeimpulse/pkg/impulse"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
)

type runnerError string

func (e runnerError) Error() string { return string(e) }

// Errors returned by the runner layer.
const (
	ErrNoHandle    = runnerError("model requires an impulse handle")
	ErrNoMetadata  = runnerError("model requires parsed metadata")
	ErrWrongLength = runnerError("feature vector length does not match model input")
)

// AnomalyMode describes the anomaly capability of a model.
type AnomalyMode int

// Anomaly modes.
const (
	AnomalyNone AnomalyMode = iota
	AnomalyKMeans
	AnomalyGMM
	AnomalyVisualGMM
)

// ModelThreshold is one configurable threshold of a postprocessing
// block, listed in ModelParameters.
type ModelThreshold struct {
	ID    uint32
	Type  impulse.BlockType
	Value float32
}

// ModelParameters describes the compiled-in model's configuration.
type ModelParameters struct {
	AxisCount          int
	Frequency          float32
	Anomaly            AnomalyMode
	HasObjectTracking  bool
	ImageChannelCount  int
	ImageInputFrames   int
	ImageInputHeight   int
	ImageInputWidth    int
	ImageResizeMode    metadata.ResizeMode
	InferencingEngine  int
	InputFeaturesCount int
	IntervalMS         float32
	LabelCount         int
	Labels             []string
	ModelType          string
	Sensor             metadata.Sensor
	SliceSize          int
	Thresholds         []ModelThreshold
	UseContinuousMode  bool
}

// InferenceResponse is the outcome of one Infer call.
type InferenceResponse struct {
	Success bool
	Result  InferenceResult
}

// InferenceResult is one of ClassificationResult, ObjectDetectionResult
// or VisualAnomalyResult.
type InferenceResult interface {
	isInferenceResult()
}

// ClassificationResult carries per-label scores.
type ClassificationResult struct {
	Classification map[string]float32
}

func (ClassificationResult) isInferenceResult() {}

// ObjectDetectionResult carries detected boxes plus any per-label
// scores the model also produced.
type ObjectDetectionResult struct {
	BoundingBoxes  []impulse.BoundingBox
	Classification map[string]float32
}

func (ObjectDetectionResult) isInferenceResult() {}

// VisualAnomalyResult carries the anomaly grid and summary scores.
type VisualAnomalyResult struct {
	Grid    []impulse.BoundingBox
	Max     float32
	Mean    float32
	Anomaly float32
}

func (VisualAnomalyResult) isInferenceResult() {}
