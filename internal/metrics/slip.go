package metrics

import (
	"math"

	"github.com/san-kum/indmach/internal/dynamo"
)

type PeakSlip struct {
	name string
	peak float64
}

func NewPeakSlip() *PeakSlip {
	return &PeakSlip{name: "peak_slip"}
}

func (p *PeakSlip) Name() string { return p.name }

func (p *PeakSlip) Observe(s dynamo.Sample, dt float64) {
	p.peak = math.Max(p.peak, math.Abs(s.Slip))
}

func (p *PeakSlip) Value() float64 { return p.peak }

func (p *PeakSlip) Reset() { p.peak = 0 }

// SlipStability is the fraction of samples whose slip magnitude stayed
// within threshold.
type SlipStability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewSlipStability(threshold float64) *SlipStability {
	return &SlipStability{
		name:      "slip_stability",
		threshold: threshold,
	}
}

func (s *SlipStability) Name() string { return s.name }

func (s *SlipStability) Observe(sample dynamo.Sample, dt float64) {
	s.samples++
	if math.Abs(sample.Slip) > s.threshold {
		s.violations++
	}
}

func (s *SlipStability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *SlipStability) Reset() {
	s.violations = 0
	s.samples = 0
}
