//go:build unit

package runner

import (
	"errors"
	"math"
	"testing"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/impulse"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
	"github.com/emergingrobotics/go-edgeimpulse/testutil"
)

const audioMetadataHeader = `#define EI_CLASSIFIER_PROJECT_NAME "keyword-spotter"
#define EI_CLASSIFIER_SENSOR 1
#define EI_CLASSIFIER_LABEL_COUNT 2
#define EI_CLASSIFIER_FREQUENCY 16000
#define EI_CLASSIFIER_RAW_SAMPLE_COUNT 16
#define EI_CLASSIFIER_RAW_SAMPLES_PER_FRAME 1
#define EI_CLASSIFIER_SLICES_PER_MODEL_WINDOW 4
#define EI_CLASSIFIER_HAS_ANOMALY 0
#define EI_CLASSIFIER_OBJECT_DETECTION 0
`

func parseMeta(t *testing.T, header string) *metadata.Metadata {
	t.Helper()
	meta, err := metadata.Parse([]byte(header))
	if err != nil {
		t.Fatalf("failed to parse metadata: %v", err)
	}
	return meta
}

func cameraModel(t *testing.T, engine *impulse.SimEngine, opts ...Option) *Model {
	t.Helper()
	handle, err := impulse.NewHandle(engine)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewModel(handle, parseMeta(t, testutil.DefaultMetadataHeader), opts...)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	return m
}

func TestNewModelValidation(t *testing.T) {
	meta := parseMeta(t, testutil.DefaultMetadataHeader)
	handle, _ := impulse.NewHandle(impulse.NewSimEngine())

	if _, err := NewModel(nil, meta); !errors.Is(err, ErrNoHandle) {
		t.Errorf("nil handle: got %v, want ErrNoHandle", err)
	}
	if _, err := NewModel(handle, nil); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("nil metadata: got %v, want ErrNoMetadata", err)
	}
}

func TestNewModelInitializesHandle(t *testing.T) {
	engine := impulse.NewSimEngine(impulse.Block{
		ID:     1,
		Type:   impulse.BlockObjectDetection,
		Config: &impulse.ObjectDetectionConfig{MinScore: 0.5},
	})
	m := cameraModel(t, engine)

	if got := m.Handle().State(); got != impulse.StateInitialized {
		t.Errorf("handle state = %s, want initialized", got)
	}
	if engine.InitCalls != 1 {
		t.Errorf("InitCalls = %d, want 1", engine.InitCalls)
	}

	p := m.Parameters()
	if p.ModelType != "classification" {
		t.Errorf("ModelType = %q", p.ModelType)
	}
	if p.Sensor != metadata.SensorCamera {
		t.Errorf("Sensor = %s", p.Sensor)
	}
	if p.UseContinuousMode {
		t.Error("camera model must not default to continuous mode")
	}
	if len(p.Labels) != 2 || p.Labels[0] != "label_0" || p.Labels[1] != "label_1" {
		t.Errorf("Labels = %v", p.Labels)
	}
	if len(p.Thresholds) != 1 || p.Thresholds[0].ID != 1 || p.Thresholds[0].Value != 0.5 {
		t.Errorf("Thresholds = %+v", p.Thresholds)
	}
	if p.InputFeaturesCount != 9216 {
		t.Errorf("InputFeaturesCount = %d, want 9216", p.InputFeaturesCount)
	}
}

func TestNewModelKeepsInitializedHandle(t *testing.T) {
	engine := impulse.NewSimEngine()
	handle, _ := impulse.NewHandle(engine)
	if err := handle.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewModel(handle, parseMeta(t, testutil.DefaultMetadataHeader)); err != nil {
		t.Fatalf("NewModel on initialized handle failed: %v", err)
	}
	if engine.InitCalls != 1 {
		t.Errorf("InitCalls = %d, want 1", engine.InitCalls)
	}
}

func TestInputSize(t *testing.T) {
	engine := impulse.NewSimEngine()
	if got := cameraModel(t, engine).InputSize(); got != 9216 {
		t.Errorf("single-shot InputSize = %d, want 9216", got)
	}

	handle, _ := impulse.NewHandle(impulse.NewSimEngine())
	m, err := NewModel(handle, parseMeta(t, audioMetadataHeader))
	if err != nil {
		t.Fatal(err)
	}
	if !m.Parameters().UseContinuousMode {
		t.Fatal("audio model with multiple slices should default to continuous mode")
	}
	if got := m.InputSize(); got != 4 {
		t.Errorf("continuous InputSize = %d, want slice size 4", got)
	}
}

func TestInferWrongLength(t *testing.T) {
	m := cameraModel(t, impulse.NewSimEngine())
	if _, err := m.Infer([]float32{1, 2, 3}); !errors.Is(err, ErrWrongLength) {
		t.Errorf("got %v, want ErrWrongLength", err)
	}
}

func TestInferClassification(t *testing.T) {
	engine := impulse.NewSimEngine()
	engine.Output.Classifications = []impulse.Classification{
		{Label: "cat", Value: 0.9},
		{Label: "dog", Value: 0.1},
	}
	m := cameraModel(t, engine)

	resp, err := m.Infer(testutil.MakeFeatures(9216))
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false")
	}
	cls, ok := resp.Result.(ClassificationResult)
	if !ok {
		t.Fatalf("result type = %T, want ClassificationResult", resp.Result)
	}
	if cls.Classification["cat"] != 0.9 || cls.Classification["dog"] != 0.1 {
		t.Errorf("scores = %v", cls.Classification)
	}
}

func TestInferObjectDetectionVariant(t *testing.T) {
	engine := impulse.NewSimEngine()
	engine.Output.BoundingBoxes = []impulse.BoundingBox{
		{Label: "person", Value: 0.8, X: 8, Y: 16, Width: 24, Height: 24},
	}
	engine.Output.Classifications = []impulse.Classification{{Label: "person", Value: 0.8}}
	m := cameraModel(t, engine)

	resp, err := m.Infer(testutil.MakeFeatures(9216))
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	od, ok := resp.Result.(ObjectDetectionResult)
	if !ok {
		t.Fatalf("result type = %T, want ObjectDetectionResult", resp.Result)
	}
	if len(od.BoundingBoxes) != 1 || od.BoundingBoxes[0].Label != "person" {
		t.Errorf("boxes = %v", od.BoundingBoxes)
	}
	if od.Classification["person"] != 0.8 {
		t.Errorf("classification = %v", od.Classification)
	}
}

func TestInferVisualAnomalyVariant(t *testing.T) {
	engine := impulse.NewSimEngine()
	engine.Output.VisualAnomaly = &impulse.VisualAnomaly{
		Grid: []impulse.BoundingBox{
			{Label: "anomaly", Value: 1.7, X: 0, Y: 0, Width: 8, Height: 8},
			{Label: "anomaly", Value: 0.3, X: 8, Y: 0, Width: 8, Height: 8},
		},
		Max:     1.7,
		Mean:    -0.2,
		Overall: 0.6,
	}
	m := cameraModel(t, engine)

	resp, err := m.Infer(testutil.MakeFeatures(9216))
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	va, ok := resp.Result.(VisualAnomalyResult)
	if !ok {
		t.Fatalf("result type = %T, want VisualAnomalyResult", resp.Result)
	}
	if va.Anomaly != 0.6 {
		t.Errorf("Anomaly = %v, want 0.6", va.Anomaly)
	}
	if va.Max != 1 || va.Mean != 0 {
		t.Errorf("scores not clamped: max=%v mean=%v", va.Max, va.Mean)
	}
	if va.Grid[0].Value != 1 || va.Grid[1].Value != 0.3 {
		t.Errorf("grid not clamped: %v", va.Grid)
	}
}

func TestInferGMMAnomalyVariant(t *testing.T) {
	// The first definition wins, so the anomaly mode goes in front of
	// the default header's zero.
	meta := parseMeta(t, "#define EI_CLASSIFIER_HAS_ANOMALY 2\n"+testutil.DefaultMetadataHeader)

	engine := impulse.NewSimEngine()
	engine.Output.AnomalyScore = 4.2
	handle, _ := impulse.NewHandle(engine)
	m, err := NewModel(handle, meta)
	if err != nil {
		t.Fatal(err)
	}
	if m.Parameters().Anomaly != AnomalyGMM {
		t.Errorf("Anomaly = %v, want AnomalyGMM", m.Parameters().Anomaly)
	}

	resp, err := m.Infer(testutil.MakeFeatures(9216))
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	va, ok := resp.Result.(VisualAnomalyResult)
	if !ok {
		t.Fatalf("result type = %T, want VisualAnomalyResult", resp.Result)
	}
	if va.Anomaly != 1 {
		t.Errorf("Anomaly = %v, want clamp to 1", va.Anomaly)
	}
}

func TestMovingAverageFilter(t *testing.T) {
	f := newMovingAverageFilter(4)
	inputs := []float32{1, 1, 1, 1, 0, 0, 0, 0}
	want := []float32{1, 1, 1, 1, 0.75, 0.5, 0.25, 0}
	for i, v := range inputs {
		if got := f.update(v); math.Abs(float64(got-want[i])) > 1e-6 {
			t.Errorf("update %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestContinuousWindowFill(t *testing.T) {
	engine := impulse.NewSimEngine()
	engine.Output.Classifications = []impulse.Classification{{Label: "yes", Value: 1.0}}
	handle, _ := impulse.NewHandle(engine)
	m, err := NewModel(handle, parseMeta(t, audioMetadataHeader),
		WithLabels([]string{"yes", "no"}))
	if err != nil {
		t.Fatal(err)
	}

	// Slice size is 4; push one sample per call. The first three calls
	// must not reach the engine.
	for i := 0; i < 3; i++ {
		resp, err := m.Infer([]float32{0.5})
		if err != nil {
			t.Fatalf("fill call %d failed: %v", i, err)
		}
		cls, ok := resp.Result.(ClassificationResult)
		if !ok {
			t.Fatalf("fill call %d: result type = %T", i, resp.Result)
		}
		if cls.Classification["yes"] != 0 || cls.Classification["no"] != 0 {
			t.Errorf("fill call %d: scores = %v, want zeros", i, cls.Classification)
		}
	}
	if engine.RunCalls != 0 {
		t.Fatalf("engine ran %d times during window fill", engine.RunCalls)
	}

	resp, err := m.Infer([]float32{0.5})
	if err != nil {
		t.Fatalf("full-window call failed: %v", err)
	}
	if engine.RunCalls != 1 {
		t.Fatalf("RunCalls = %d, want 1", engine.RunCalls)
	}
	cls := resp.Result.(ClassificationResult)
	// Three zeros went through the filter while the window filled, so
	// the first real score is averaged down to a quarter.
	if got := cls.Classification["yes"]; math.Abs(float64(got-0.25)) > 1e-6 {
		t.Errorf("smoothed score = %v, want 0.25", got)
	}
}

func TestContinuousSmoothingConverges(t *testing.T) {
	engine := impulse.NewSimEngine()
	engine.Output.Classifications = []impulse.Classification{{Label: "yes", Value: 1.0}}
	handle, _ := impulse.NewHandle(engine)
	m, err := NewModel(handle, parseMeta(t, audioMetadataHeader),
		WithLabels([]string{"yes", "no"}))
	if err != nil {
		t.Fatal(err)
	}

	var last float32
	for i := 0; i < 8; i++ {
		resp, err := m.Infer(testutil.MakeFeatures(4))
		if err != nil {
			t.Fatalf("Infer %d failed: %v", i, err)
		}
		last = resp.Result.(ClassificationResult).Classification["yes"]
	}
	// After a full filter window of steady scores the average matches.
	if math.Abs(float64(last-1.0)) > 1e-6 {
		t.Errorf("converged score = %v, want 1.0", last)
	}
}

func TestContinuousOversizeSlice(t *testing.T) {
	handle, _ := impulse.NewHandle(impulse.NewSimEngine())
	m, err := NewModel(handle, parseMeta(t, audioMetadataHeader))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Infer(testutil.MakeFeatures(5)); !errors.Is(err, ErrWrongLength) {
		t.Errorf("got %v, want ErrWrongLength", err)
	}
}

func TestResetClearsWindow(t *testing.T) {
	engine := impulse.NewSimEngine()
	engine.Output.Classifications = []impulse.Classification{{Label: "yes", Value: 1.0}}
	handle, _ := impulse.NewHandle(engine)
	m, err := NewModel(handle, parseMeta(t, audioMetadataHeader))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Infer(testutil.MakeFeatures(4)); err != nil {
		t.Fatal(err)
	}
	if engine.RunCalls != 1 {
		t.Fatalf("RunCalls = %d, want 1", engine.RunCalls)
	}

	m.Reset()
	if _, err := m.Infer([]float32{0.5}); err != nil {
		t.Fatal(err)
	}
	if engine.RunCalls != 1 {
		t.Errorf("engine ran on a partial window after Reset")
	}
}

func TestNormalizeVisualAnomaly(t *testing.T) {
	got := NormalizeVisualAnomaly(VisualAnomalyResult{
		Grid:    []impulse.BoundingBox{{Value: -3}, {Value: 0.5}, {Value: 12}},
		Max:     2,
		Mean:    -1,
		Anomaly: 0.4,
	})
	if got.Max != 1 || got.Mean != 0 || got.Anomaly != 0.4 {
		t.Errorf("summary scores = max %v mean %v anomaly %v", got.Max, got.Mean, got.Anomaly)
	}
	want := []float32{0, 0.5, 1}
	for i, cell := range got.Grid {
		if cell.Value != want[i] {
			t.Errorf("grid[%d] = %v, want %v", i, cell.Value, want[i])
		}
	}
}
