package volatility

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindowSize is the number of observations kept for statistics.
const DefaultWindowSize = 20

// Window is a fixed-capacity FIFO of recent observations.
// It is not safe for concurrent use; the ingestor owns it.
type Window struct {
	buf  []float64
	head int // index of the oldest value
	n    int
}

// NewWindow creates a window holding at most size values.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest value once the window is full.
func (w *Window) Push(v float64) {
	if w.n < len(w.buf) {
		w.buf[(w.head+w.n)%len(w.buf)] = v
		w.n++
		return
	}
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
}

// Len returns the number of values held.
func (w *Window) Len() int { return w.n }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Values returns a copy of the window in arrival order.
func (w *Window) Values() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Last returns a copy of the most recent k values (fewer if the window is shorter).
func (w *Window) Last(k int) []float64 {
	vals := w.Values()
	if k >= len(vals) {
		return vals
	}
	if k <= 0 {
		return []float64{}
	}
	return vals[len(vals)-k:]
}

// Mean is the arithmetic mean of xs, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev is the population standard deviation of xs, 0 for fewer than two values.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.PopStdDev(xs, nil)
}

// Range is max(xs) - min(xs), 0 for an empty slice.
func Range(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Max(xs) - floats.Min(xs)
}
