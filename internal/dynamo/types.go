package dynamo

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how the host drives its devices.
type Mode int

const (
	ModeSnapshot Mode = iota
	ModeDynamic
)

func (m Mode) String() string {
	switch m {
	case ModeSnapshot:
		return "snapshot"
	case ModeDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "snapshot", "snap", "pflow":
		return ModeSnapshot, nil
	case "dynamic", "dynamics", "dyn":
		return ModeDynamic, nil
	}
	return ModeSnapshot, fmt.Errorf("unknown solution mode: %s", s)
}

// Solution holds the host's per-iteration solution variables. Devices read
// it; only the host writes it.
type Solution struct {
	Mode Mode
	// IterationFlag is zero on the first iteration of a new time step.
	IterationFlag int
	H             float64
	T             float64
}

func (s *Solution) IsDynamic() bool { return s.Mode == ModeDynamic }

func (s *Solution) NewStep() bool { return s.IterationFlag == 0 }

// GenVars are the rating and shaft variables the host keeps for a rotating
// machine. Speed is the deviation from synchronous speed in rad/s.
type GenVars struct {
	KVGeneratorBase  float64
	KVARating        float64
	W0               float64
	PNominalPerPhase float64
	NumConductors    int

	// H and D are the per-unit inertia and damping the device reports on
	// its own rating.
	H float64
	D float64

	Speed  float64
	DSpeed float64
	Theta  float64
	DTheta float64
}

func NewGenVars(kv, kva, kw, baseFreq float64) *GenVars {
	return &GenVars{
		KVGeneratorBase:  kv,
		KVARating:        kva,
		W0:               2 * math.Pi * baseFreq,
		PNominalPerPhase: kw * 1000 / 3,
		NumConductors:    3,
	}
}

type Config struct {
	Dt            float64
	Duration      float64
	MaxIterations int
	Tolerance     float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.001,
		Duration:      1.0,
		MaxIterations: 50,
		Tolerance:     1e-6,
		ValidateState: true,
	}
}

// Sample is one accepted host time step.
type Sample struct {
	T          float64
	Slip       float64
	Speed      float64
	V1         float64
	Is1        float64
	Is2        float64
	E1         float64
	P          float64
	Q          float64
	Losses     float64
	Iterations int
}

func (s Sample) IsValid() bool {
	for _, v := range []float64{s.Slip, s.Speed, s.V1, s.Is1, s.Is2, s.E1, s.P, s.Q} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Metric interface {
	Name() string
	Observe(s Sample, dt float64)
	Value() float64
	Reset()
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	Outputs    map[string]float64
	StepsTaken int
	Errors     []error
}

// Series extracts one column from the samples by name.
func (r *Result) Series(name string) ([]float64, error) {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		switch name {
		case "t":
			out[i] = s.T
		case "slip":
			out[i] = s.Slip
		case "speed":
			out[i] = s.Speed
		case "v1":
			out[i] = s.V1
		case "is1":
			out[i] = s.Is1
		case "is2":
			out[i] = s.Is2
		case "e1":
			out[i] = s.E1
		case "p":
			out[i] = s.P
		case "q":
			out[i] = s.Q
		case "losses":
			out[i] = s.Losses
		default:
			return nil, fmt.Errorf("unknown series: %s", name)
		}
	}
	return out, nil
}

var SeriesNames = []string{"t", "slip", "speed", "v1", "is1", "is2", "e1", "p", "q", "losses"}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
