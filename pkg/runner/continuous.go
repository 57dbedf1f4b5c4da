package runner

// mafWindowSize is the length of the per-label moving average used to
// smooth continuous-mode scores.
const mafWindowSize = 4

// movingAverageFilter smooths one label's score over a fixed window,
// keeping a running sum so updates are O(1).
type movingAverageFilter struct {
	window []float32
	size   int
	sum    float32
}

func newMovingAverageFilter(size int) *movingAverageFilter {
	return &movingAverageFilter{size: size}
}

// update pushes a new score and returns the current average.
func (f *movingAverageFilter) update(v float32) float32 {
	f.window = append(f.window, v)
	f.sum += v
	if len(f.window) > f.size {
		f.sum -= f.window[0]
		f.window = f.window[1:]
	}
	return f.sum / float32(len(f.window))
}

// continuousState holds the sliding feature window and the per-label
// filters used between continuous inference calls.
type continuousState struct {
	features  []float32
	sliceSize int
	full      bool
	maf       map[string]*movingAverageFilter
}

func newContinuousState(sliceSize int) *continuousState {
	return &continuousState{
		sliceSize: sliceSize,
		maf:       make(map[string]*movingAverageFilter),
	}
}

// push appends new samples and trims the window from the front so at
// most sliceSize samples remain. It reports whether the window holds a
// full slice.
func (s *continuousState) push(features []float32) bool {
	s.features = append(s.features, features...)
	if extra := len(s.features) - s.sliceSize; extra > 0 {
		s.features = s.features[extra:]
	}
	if len(s.features) >= s.sliceSize {
		s.full = true
	}
	return s.full
}

// smooth routes one label score through that label's moving average.
func (s *continuousState) smooth(label string, value float32) float32 {
	f, ok := s.maf[label]
	if !ok {
		f = newMovingAverageFilter(mafWindowSize)
		s.maf[label] = f
	}
	return f.update(value)
}

func (s *continuousState) reset() {
	s.features = s.features[:0]
	s.full = false
	s.maf = make(map[string]*movingAverageFilter)
}
