package impulse

// Signal is a read view over raw sample data (image pixels or audio
// samples) passed into an inference call. It does not own the underlying
// buffer; the caller must keep the buffer alive for the duration of the
// call.
type Signal struct {
	data []float32
}

// SignalFromBuffer creates a signal over the given feature buffer.
// The buffer is borrowed, not copied.
func SignalFromBuffer(data []float32) (*Signal, error) {
	if len(data) == 0 {
		return nil, NewErrorWithCause(StatusInvalidSize, "signal from buffer", ErrEmptySignal)
	}
	return &Signal{data: data}, nil
}

// Len returns the total number of samples in the signal.
func (s *Signal) Len() int {
	return len(s.data)
}

// Data returns the borrowed sample buffer.
func (s *Signal) Data() []float32 {
	return s.data
}
