package indicator

import "math"

// window is a fixed-size circular buffer over the most recent values.
// Sums are recomputed from the buffer in arrival order rather than kept
// as a running total, so an all-zero window always sums to exactly zero.
type window struct {
	buf   []float64
	idx   int // next write position, also the oldest value once full
	count int
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

func (w *window) push(x float64) {
	w.buf[w.idx] = x
	w.idx = (w.idx + 1) % len(w.buf)
	w.count++
}

func (w *window) full() bool { return w.count >= len(w.buf) }

func (w *window) sum() float64 {
	n := len(w.buf)
	s := 0.0
	for i := 0; i < n; i++ {
		s += w.buf[(w.idx+i)%n]
	}
	return s
}

func (w *window) mean() float64 {
	return w.sum() / float64(len(w.buf))
}

// sampleStd is the standard deviation normalized by n-1. A one-value
// window yields NaN.
func (w *window) sampleStd(mean float64) float64 {
	n := len(w.buf)
	if n < 2 {
		return math.NaN()
	}
	ss := 0.0
	for _, x := range w.buf {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
