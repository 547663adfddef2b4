package control

// LowPassFilter is a single-pole exponential smoother:
//
//	y[k] = y[k-1] + a*(x[k] - y[k-1]),  a = ts/(tau+ts)
//
// The first sample after construction or Reset passes straight through.
type LowPassFilter struct {
	a     float64
	last  float64
	ready bool
}

func NewLowPassFilter(cfg LowPassConfig) *LowPassFilter {
	return &LowPassFilter{a: cfg.Ts / (cfg.Tau + cfg.Ts)}
}

func (f *LowPassFilter) Filt(x float64) float64 {
	if !f.ready {
		f.last = x
		f.ready = true
		return x
	}
	f.last += f.a * (x - f.last)
	return f.last
}

// Get returns the last output, or 0 before the first sample.
func (f *LowPassFilter) Get() float64 {
	return f.last
}

func (f *LowPassFilter) Ready() bool {
	return f.ready
}

func (f *LowPassFilter) Reset() {
	f.last = 0
	f.ready = false
}
