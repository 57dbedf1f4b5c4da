package runner

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/impulse"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
)

// Model wraps an impulse handle together with the parsed model metadata
// and exposes a single Infer entry point that dispatches between
// single-shot and continuous inference.
type Model struct {
	handle *impulse.Handle
	meta   *metadata.Metadata
	params ModelParameters
	cont   *continuousState
	debug  bool
}

// Option configures a Model.
type Option func(*Model)

// WithLabels overrides the placeholder label names. The metadata header
// only carries the label count, so without this option labels are
// reported as label_0..label_N-1.
func WithLabels(labels []string) Option {
	return func(m *Model) {
		m.params.Labels = append([]string(nil), labels...)
	}
}

// WithDebug enables SDK debug output on every inference call.
func WithDebug(debug bool) Option {
	return func(m *Model) { m.debug = debug }
}

// WithContinuousMode forces continuous mode on or off, overriding the
// sensor-based default.
func WithContinuousMode(on bool) Option {
	return func(m *Model) { m.params.UseContinuousMode = on }
}

// NewModel builds a model over the given handle and metadata. The
// handle is initialized if it is not already.
func NewModel(handle *impulse.Handle, meta *metadata.Metadata, opts ...Option) (*Model, error) {
	if handle == nil {
		return nil, ErrNoHandle
	}
	if meta == nil {
		return nil, ErrNoMetadata
	}
	if handle.State() == impulse.StateUninitialized {
		if err := handle.Init(); err != nil {
			return nil, err
		}
	}

	m := &Model{
		handle: handle,
		meta:   meta,
		params: buildParameters(meta, handle.Blocks()),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.params.UseContinuousMode {
		m.cont = newContinuousState(m.params.SliceSize)
	}
	log.WithFields(log.Fields{
		"project":    meta.ProjectName(),
		"model_type": m.params.ModelType,
		"sensor":     m.params.Sensor.String(),
		"continuous": m.params.UseContinuousMode,
	}).Debug("Model ready")
	return m, nil
}

// buildParameters derives the runtime parameters from the metadata
// constants plus the live block table.
func buildParameters(meta *metadata.Metadata, blocks []impulse.Block) ModelParameters {
	p := ModelParameters{
		AxisCount:          meta.RawSamplesPerFrame(),
		Frequency:          meta.Frequency(),
		Anomaly:            anomalyMode(meta),
		HasObjectTracking:  meta.HasObjectTracking(),
		ImageChannelCount:  3,
		ImageInputFrames:   meta.InputFrames(),
		ImageInputHeight:   meta.InputHeight(),
		ImageInputWidth:    meta.InputWidth(),
		ImageResizeMode:    meta.ImageResizeMode(),
		InferencingEngine:  meta.InferencingEngine(),
		InputFeaturesCount: meta.InputFeaturesCount(),
		IntervalMS:         meta.IntervalMS(),
		LabelCount:         meta.LabelCount(),
		ModelType:          "classification",
		Sensor:             meta.SensorType(),
		SliceSize:          meta.SliceSize(),
	}
	if meta.HasObjectDetection() {
		p.ModelType = "object-detection"
	}
	p.UseContinuousMode = p.Sensor == metadata.SensorMicrophone &&
		meta.SlicesPerModelWindow() > 1

	p.Labels = make([]string, p.LabelCount)
	for i := range p.Labels {
		p.Labels[i] = fmt.Sprintf("label_%d", i)
	}

	for _, b := range blocks {
		t := ModelThreshold{ID: b.ID, Type: b.Type}
		switch cfg := b.Config.(type) {
		case *impulse.ObjectDetectionConfig:
			t.Value = cfg.MinScore
		case *impulse.VisualAnomalyConfig:
			t.Value = cfg.Threshold
		case *impulse.ObjectTrackingConfig:
			t.Value = cfg.Threshold
		case *impulse.AnomalyGMMConfig:
			t.Value = cfg.MinAnomalyScore
		}
		p.Thresholds = append(p.Thresholds, t)
	}
	return p
}

// anomalyMode maps the metadata anomaly constants onto AnomalyMode.
func anomalyMode(meta *metadata.Metadata) AnomalyMode {
	if meta.HasVisualAnomaly() {
		return AnomalyVisualGMM
	}
	switch mode := meta.IntOr("EI_CLASSIFIER_HAS_ANOMALY", 0); mode {
	case 1:
		return AnomalyKMeans
	case 2:
		return AnomalyGMM
	case 3:
		return AnomalyVisualGMM
	default:
		return AnomalyNone
	}
}

// Parameters returns a copy of the model parameters.
func (m *Model) Parameters() ModelParameters {
	p := m.params
	p.Labels = append([]string(nil), m.params.Labels...)
	p.Thresholds = append([]ModelThreshold(nil), m.params.Thresholds...)
	return p
}

// SensorType returns the sensor kind the model expects.
func (m *Model) SensorType() metadata.Sensor {
	return m.params.Sensor
}

// InputSize returns the expected feature count of one Infer call. In
// continuous mode that is one slice, otherwise one full window.
func (m *Model) InputSize() int {
	if m.params.UseContinuousMode {
		return m.params.SliceSize
	}
	return m.params.InputFeaturesCount
}

// Handle exposes the underlying impulse handle, for threshold updates.
func (m *Model) Handle() *impulse.Handle {
	return m.handle
}

// Reset clears the continuous-mode window and filters.
func (m *Model) Reset() {
	if m.cont != nil {
		m.cont.reset()
	}
}

// Infer runs one inference. In continuous mode features is one slice of
// samples and an empty, smoothed classification is returned until the
// window has filled once.
func (m *Model) Infer(features []float32) (*InferenceResponse, error) {
	if m.params.UseContinuousMode {
		return m.inferContinuous(features)
	}
	return m.inferSingle(features)
}

func (m *Model) inferSingle(features []float32) (*InferenceResponse, error) {
	if want := m.params.InputFeaturesCount; want > 0 && len(features) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongLength, len(features), want)
	}
	sig, err := impulse.SignalFromBuffer(features)
	if err != nil {
		return nil, err
	}
	var res impulse.Result
	if err := m.handle.RunClassifier(sig, &res, m.debug); err != nil {
		return nil, err
	}
	return &InferenceResponse{Success: true, Result: m.convert(&res, false)}, nil
}

func (m *Model) inferContinuous(features []float32) (*InferenceResponse, error) {
	if want := m.params.SliceSize; want > 0 && len(features) > want {
		return nil, fmt.Errorf("%w: got %d, slice is %d", ErrWrongLength, len(features), want)
	}
	if !m.cont.push(features) {
		// Keep the filters moving while the window fills so early real
		// scores are weighted like any other slice.
		scores := make(map[string]float32, len(m.params.Labels))
		for _, label := range m.params.Labels {
			scores[label] = m.cont.smooth(label, 0)
		}
		return &InferenceResponse{
			Success: true,
			Result:  ClassificationResult{Classification: scores},
		}, nil
	}

	sig, err := impulse.SignalFromBuffer(m.cont.features)
	if err != nil {
		return nil, err
	}
	var res impulse.Result
	if err := m.handle.RunClassifierContinuous(sig, &res, m.debug); err != nil {
		return nil, err
	}
	return &InferenceResponse{Success: true, Result: m.convert(&res, true)}, nil
}

// convert shapes the raw result into the variant matching the model
// kind: boxes win over anomaly, anomaly wins over plain classification.
func (m *Model) convert(res *impulse.Result, smoothed bool) InferenceResult {
	if len(res.BoundingBoxes) > 0 {
		return ObjectDetectionResult{
			BoundingBoxes:  append([]impulse.BoundingBox(nil), res.BoundingBoxes...),
			Classification: m.classificationMap(res, smoothed),
		}
	}
	if res.VisualAnomaly != nil {
		return NormalizeVisualAnomaly(VisualAnomalyResult{
			Grid:    append([]impulse.BoundingBox(nil), res.VisualAnomaly.Grid...),
			Max:     res.VisualAnomaly.Max,
			Mean:    res.VisualAnomaly.Mean,
			Anomaly: res.VisualAnomaly.Overall,
		})
	}
	if m.params.Anomaly != AnomalyNone {
		return NormalizeVisualAnomaly(VisualAnomalyResult{Anomaly: res.AnomalyScore})
	}
	return ClassificationResult{Classification: m.classificationMap(res, smoothed)}
}

// classificationMap flattens label scores into a map, smoothing them
// through the continuous-mode filters when requested.
func (m *Model) classificationMap(res *impulse.Result, smoothed bool) map[string]float32 {
	scores := make(map[string]float32, len(res.Classifications))
	for _, c := range res.Classifications {
		if smoothed && m.cont != nil {
			scores[c.Label] = m.cont.smooth(c.Label, c.Value)
		} else {
			scores[c.Label] = c.Value
		}
	}
	return scores
}

// NormalizeVisualAnomaly clamps every anomaly score, including the grid
// cells, into [0, 1].
func NormalizeVisualAnomaly(v VisualAnomalyResult) VisualAnomalyResult {
	v.Anomaly = clamp01(v.Anomaly)
	v.Max = clamp01(v.Max)
	v.Mean = clamp01(v.Mean)
	for i := range v.Grid {
		v.Grid[i].Value = clamp01(v.Grid[i].Value)
	}
	return v
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
