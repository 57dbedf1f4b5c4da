//go:build unit

package impulse

import (
	"errors"
	"strings"
	"testing"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "success"},
		{StatusShapesDontMatch, "input shapes don't match"},
		{StatusTFLiteError, "TensorFlow Lite error"},
		{StatusNotInitialized, "classifier not initialized"},
		{Status(-1000), "unknown status"},
	}
	for _, tc := range tests {
		if got := tc.status.String(); !strings.Contains(got, tc.want) {
			t.Errorf("Status(%d).String() = %q, expected to contain %q",
				tc.status, got, tc.want)
		}
	}
}

func TestStatusErr(t *testing.T) {
	if err := StatusOK.Err(); err != nil {
		t.Errorf("StatusOK.Err() = %v, expected nil", err)
	}

	err := StatusDSPError.Err()
	var impErr *ImpulseError
	if !errors.As(err, &impErr) {
		t.Fatalf("expected ImpulseError, got %T", err)
	}
	if impErr.Status != StatusDSPError {
		t.Errorf("status = %v, expected DSP error", impErr.Status)
	}
}

func TestImpulseErrorIs(t *testing.T) {
	wrapped := NewErrorWithCause(StatusInferenceError, "set threshold", ErrBlockNotFound)

	if !errors.Is(wrapped, ErrBlockNotFound) {
		t.Error("wrapped error does not match its cause")
	}
	if errors.Is(wrapped, ErrBlockTypeMismatch) {
		t.Error("wrapped error matches an unrelated sentinel")
	}

	// Status identity across separately constructed errors.
	if !errors.Is(wrapped, NewError(StatusInferenceError, "other context")) {
		t.Error("errors with the same status do not match")
	}
}

func TestImpulseErrorMessage(t *testing.T) {
	err := NewError(StatusInvalidSize, "signal from buffer")
	msg := err.Error()
	if !strings.Contains(msg, "signal from buffer") {
		t.Errorf("message %q missing context", msg)
	}
	if !strings.Contains(msg, "invalid input size") {
		t.Errorf("message %q missing status description", msg)
	}
}

func TestSignalFromBuffer(t *testing.T) {
	sig, err := SignalFromBuffer([]float32{1, 2, 3})
	if err != nil {
		t.Fatalf("SignalFromBuffer failed: %v", err)
	}
	if sig.Len() != 3 {
		t.Errorf("len = %d, expected 3", sig.Len())
	}

	if _, err := SignalFromBuffer(nil); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("expected ErrEmptySignal, got %v", err)
	}
	if _, err := SignalFromBuffer([]float32{}); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("expected ErrEmptySignal for empty slice, got %v", err)
	}
}

func TestBlockTypeString(t *testing.T) {
	tests := []struct {
		bt   BlockType
		want string
	}{
		{BlockClassification, "classification"},
		{BlockObjectDetection, "object-detection"},
		{BlockVisualAnomaly, "visual-anomaly"},
		{BlockObjectTracking, "object-tracking"},
		{BlockAnomalyGMM, "anomaly-gmm"},
	}
	for _, tc := range tests {
		if got := tc.bt.String(); got != tc.want {
			t.Errorf("BlockType(%d).String() = %q, expected %q", tc.bt, got, tc.want)
		}
	}
}

func TestBlockConfigClone(t *testing.T) {
	cfg := &ObjectTrackingConfig{Threshold: 0.4, KeepGrace: 3, MaxObservations: 12}
	cp := cfg.clone().(*ObjectTrackingConfig)
	cp.Threshold = 0.9
	if cfg.Threshold != 0.4 {
		t.Error("clone shares memory with original")
	}
}
