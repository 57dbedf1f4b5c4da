package features

// DownmixMono averages interleaved channel samples into one channel.
// Samples keep their raw integer scale, which is what the DSP pipeline
// expects for audio input.
func DownmixMono(data []int, channels int) []float32 {
	if channels < 1 {
		return nil
	}
	frames := len(data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		samples[i] = float32(sum) / float32(channels)
	}
	return samples
}

// Resample converts samples between rates with linear interpolation.
func Resample(in []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(in) == 0 || fromRate <= 0 || toRate <= 0 {
		return in
	}
	n := int(int64(len(in)) * int64(toRate) / int64(fromRate))
	out := make([]float32, n)
	ratio := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}
