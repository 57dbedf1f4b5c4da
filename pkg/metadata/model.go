package metadata

// Sensor identifies the sensor kind the model was trained on.
type Sensor int

// Sensor kinds as defined by the SDK.
const (
	SensorUnknown       Sensor = -1
	SensorMicrophone    Sensor = 1
	SensorAccelerometer Sensor = 2
	SensorCamera        Sensor = 3
	SensorPositional    Sensor = 4
	SensorEnvironmental Sensor = 5
	SensorFusion        Sensor = 6
)

// String returns the sensor name.
func (s Sensor) String() string {
	switch s {
	case SensorMicrophone:
		return "microphone"
	case SensorAccelerometer:
		return "accelerometer"
	case SensorCamera:
		return "camera"
	case SensorPositional:
		return "positional"
	case SensorEnvironmental:
		return "environmental"
	case SensorFusion:
		return "fusion"
	default:
		return "unknown"
	}
}

// ResizeMode is how camera input is fitted to the model input dimensions.
type ResizeMode int

// Resize modes as defined by the SDK.
const (
	ResizeFitShortest ResizeMode = 1
	ResizeFitLongest  ResizeMode = 2
	ResizeSquash      ResizeMode = 3
)

// String returns the resize mode name.
func (r ResizeMode) String() string {
	switch r {
	case ResizeFitShortest:
		return "fit-shortest"
	case ResizeFitLongest:
		return "fit-longest"
	case ResizeSquash:
		return "squash"
	default:
		return "unknown"
	}
}

// ProjectID returns the Studio project id the model was exported from.
func (m *Metadata) ProjectID() int {
	return m.IntOr("EI_CLASSIFIER_PROJECT_ID", 0)
}

// ProjectName returns the Studio project name.
func (m *Metadata) ProjectName() string {
	s, _ := m.Str("EI_CLASSIFIER_PROJECT_NAME")
	return s
}

// ProjectOwner returns the Studio project owner.
func (m *Metadata) ProjectOwner() string {
	s, _ := m.Str("EI_CLASSIFIER_PROJECT_OWNER")
	return s
}

// DeployVersion returns the deployment version of the exported model.
func (m *Metadata) DeployVersion() int {
	return m.IntOr("EI_CLASSIFIER_PROJECT_DEPLOY_VERSION", 0)
}

// InputWidth returns the model input width in pixels.
func (m *Metadata) InputWidth() int {
	return m.IntOr("EI_CLASSIFIER_INPUT_WIDTH", 0)
}

// InputHeight returns the model input height in pixels.
func (m *Metadata) InputHeight() int {
	return m.IntOr("EI_CLASSIFIER_INPUT_HEIGHT", 0)
}

// InputFrames returns the number of input frames per inference.
func (m *Metadata) InputFrames() int {
	return m.IntOr("EI_CLASSIFIER_INPUT_FRAMES", 1)
}

// LabelCount returns the number of classification labels.
func (m *Metadata) LabelCount() int {
	return m.IntOr("EI_CLASSIFIER_LABEL_COUNT", 0)
}

// SensorType returns the sensor kind the model expects.
func (m *Metadata) SensorType() Sensor {
	return Sensor(m.IntOr("EI_CLASSIFIER_SENSOR", int(SensorUnknown)))
}

// InferencingEngine returns the numeric engine identifier compiled into
// the model.
func (m *Metadata) InferencingEngine() int {
	return m.IntOr("EI_CLASSIFIER_INFERENCING_ENGINE", 0)
}

// IntervalMS returns the sampling interval in milliseconds.
func (m *Metadata) IntervalMS() float32 {
	f, _ := m.Float("EI_CLASSIFIER_INTERVAL_MS")
	return f
}

// Frequency returns the sampling frequency in Hz.
func (m *Metadata) Frequency() float32 {
	f, _ := m.Float("EI_CLASSIFIER_FREQUENCY")
	return f
}

// RawSampleCount returns the number of raw samples in one model window.
func (m *Metadata) RawSampleCount() int {
	return m.IntOr("EI_CLASSIFIER_RAW_SAMPLE_COUNT", 0)
}

// RawSamplesPerFrame returns the number of axes per raw sample.
func (m *Metadata) RawSamplesPerFrame() int {
	return m.IntOr("EI_CLASSIFIER_RAW_SAMPLES_PER_FRAME", 1)
}

// InputFeaturesCount returns the total feature count of one inference
// window.
func (m *Metadata) InputFeaturesCount() int {
	if v, ok := m.Int("EI_CLASSIFIER_DSP_INPUT_FRAME_SIZE"); ok {
		return v
	}
	return m.RawSampleCount() * m.RawSamplesPerFrame()
}

// SlicesPerModelWindow returns the continuous-mode slice count per window.
func (m *Metadata) SlicesPerModelWindow() int {
	return m.IntOr("EI_CLASSIFIER_SLICES_PER_MODEL_WINDOW", 1)
}

// SliceSize returns the feature count of one continuous-mode slice.
func (m *Metadata) SliceSize() int {
	if v, ok := m.Int("EI_CLASSIFIER_SLICE_SIZE"); ok {
		return v
	}
	slices := m.SlicesPerModelWindow()
	if slices < 1 {
		slices = 1
	}
	return m.RawSampleCount() / slices
}

// HasAnomaly reports whether the model carries an anomaly block.
func (m *Metadata) HasAnomaly() bool {
	return m.IntOr("EI_CLASSIFIER_HAS_ANOMALY", 0) != 0
}

// HasVisualAnomaly reports whether the model carries a visual anomaly
// block.
func (m *Metadata) HasVisualAnomaly() bool {
	return m.IntOr("EI_CLASSIFIER_HAS_VISUAL_ANOMALY", 0) != 0
}

// HasObjectDetection reports whether the model is an object detection
// model.
func (m *Metadata) HasObjectDetection() bool {
	return m.IntOr("EI_CLASSIFIER_OBJECT_DETECTION", 0) != 0
}

// HasObjectTracking reports whether object tracking is enabled.
func (m *Metadata) HasObjectTracking() bool {
	return m.IntOr("EI_CLASSIFIER_OBJECT_TRACKING_ENABLED", 0) != 0
}

// ImageResizeMode returns how camera input should be fitted to the model
// input dimensions.
func (m *Metadata) ImageResizeMode() ResizeMode {
	return ResizeMode(m.IntOr("EI_CLASSIFIER_RESIZE_MODE", int(ResizeSquash)))
}
