package sim

import (
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/seq"
)

// Bus is the ideal three-phase source at the machine terminals. Voltages
// are per unit of the machine's rated line-neutral voltage; angles are in
// radians.
type Bus struct {
	VoltagePU   float64
	Angle       float64
	NegSeqPU    float64
	NegSeqAngle float64
}

func (b Bus) phases(base float64) seq.Vector {
	return seq.Balanced(b.VoltagePU*base, b.Angle, b.NegSeqPU, b.NegSeqAngle)
}

// Disturbance replaces the positive-sequence bus voltage over
// [At, At+Duration) of a dynamic run.
type Disturbance struct {
	At        float64
	Duration  float64
	VoltagePU float64
}

func (d Disturbance) active(t float64) bool {
	return d.Duration > 0 && t >= d.At && t < d.At+d.Duration
}

type Observer interface {
	OnStep(s dynamo.Sample)
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithBus(b Bus) Option {
	return func(s *Simulator) { s.bus = b }
}

func WithDisturbance(d Disturbance) Option {
	return func(s *Simulator) { s.dist = d }
}

func WithMetrics(m ...dynamo.Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, m...) }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func maxAbsDiff(a, b []float64) float64 {
	d := 0.0
	for k := range a {
		d = math.Max(d, math.Abs(a[k]-b[k]))
	}
	return d
}

func maxAbs(a []float64) float64 {
	m := 0.0
	for _, v := range a {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
