package impulse

import "fmt"

// Status represents an Edge Impulse SDK status code (EI_IMPULSE_ERROR).
// Zero means success; every other value is an enumerated failure.
type Status int32

// Status codes matching the EI_IMPULSE_ERROR enum in the vendored SDK.
const (
	StatusOK                     Status = 0
	StatusShapesDontMatch        Status = -1
	StatusCanceled               Status = -2
	StatusTFLiteError            Status = -3
	StatusDSPError               Status = -5
	StatusTFLiteArenaAllocFailed Status = -6
	StatusAllocFailed            Status = -7
	StatusInvalidSize            Status = -8
	StatusOnlySupportedForImages Status = -9
	StatusUnsupportedEngine      Status = -10
	StatusOutOfMemory            Status = -11
	StatusInputTensorNull        Status = -13
	StatusOutputTensorNull       Status = -14
	StatusScoreTensorUnknown     Status = -15
	StatusLabelTensorUnknown     Status = -16
	StatusTensorRTInitFailed     Status = -17
	StatusDeviceInitFailed       Status = -18
	StatusInferenceError         Status = -20

	// StatusNotInitialized is added by this layer for calls made against a
	// handle that never completed Init. The SDK leaves that case undefined;
	// the binding fails closed instead of forwarding.
	StatusNotInitialized Status = -21
)

var statusMessages = map[Status]string{
	StatusOK:                     "success",
	StatusShapesDontMatch:        "input shapes don't match expected dimensions",
	StatusCanceled:               "operation was canceled",
	StatusTFLiteError:            "TensorFlow Lite error",
	StatusDSPError:               "error processing sensor data",
	StatusTFLiteArenaAllocFailed: "TensorFlow Lite arena allocation failed",
	StatusAllocFailed:            "memory allocation failed",
	StatusInvalidSize:            "invalid input size",
	StatusOnlySupportedForImages: "only image input is supported",
	StatusUnsupportedEngine:      "unsupported inferencing engine",
	StatusOutOfMemory:            "out of memory",
	StatusInputTensorNull:        "input tensor was null",
	StatusOutputTensorNull:       "output tensor was null",
	StatusScoreTensorUnknown:     "score tensor unknown",
	StatusLabelTensorUnknown:     "label tensor unknown",
	StatusTensorRTInitFailed:     "TensorRT initialization failed",
	StatusDeviceInitFailed:       "device initialization failed",
	StatusInferenceError:         "inference error",
	StatusNotInitialized:         "classifier not initialized",
}

// String returns the human-readable status message.
func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("unknown status (%d)", int32(s))
}

// Err converts the status to an error, or nil for StatusOK.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return &ImpulseError{Status: s}
}
