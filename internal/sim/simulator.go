// Package sim drives a machine device from an ideal bus: power flow,
// transition to dynamics and time stepping with a swing equation for the
// shaft, the way a network solver would.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"go.uber.org/zap"

	"github.com/san-kum/indmach/internal/adapter"
	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/integrators"
	"github.com/san-kum/indmach/internal/machine"
	"github.com/san-kum/indmach/internal/seq"
)

type Simulator struct {
	table *adapter.Table
	sol   *dynamo.Solution
	cfg   dynamo.Config

	bus       Bus
	dist      Disturbance
	metrics   []dynamo.Metric
	observers []Observer
	logger    *zap.Logger

	v, i  []float64
	vbase float64

	speed   integrators.Trapezoid[float64]
	theta   integrators.Trapezoid[float64]
	pShaft  float64
	inertia float64
	damping float64
	dynamic bool
}

// New builds a simulator whose devices each start from a copy of gen.
// Device messages, such as the edit help, go to the logger.
func New(factory adapter.Factory, gen *dynamo.GenVars, cfg dynamo.Config, opts ...Option) *Simulator {
	sol := &dynamo.Solution{Mode: dynamo.ModeSnapshot, H: cfg.Dt}
	s := &Simulator{
		table:  adapter.NewTable(factory, gen, sol),
		sol:    sol,
		cfg:    cfg,
		bus:    Bus{VoltagePU: 1.0},
		logger: zap.NewNop(),
		v:      make([]float64, adapter.BufferLen),
		i:      make([]float64, adapter.BufferLen),
		vbase:  real(machine.RatedVoltage(gen.KVGeneratorBase)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.table.SetMessageFunc(func(msg string) { s.logger.Info(msg) })
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric)    { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)       { s.observers = append(s.observers, o) }
func (s *Simulator) Table() *adapter.Table        { return s.table }
func (s *Simulator) Solution() *dynamo.Solution   { return s.sol }
func (s *Simulator) GenVars() *dynamo.GenVars     { return s.table.ActiveGenVars() }
func (s *Simulator) SetDisturbance(d Disturbance) { s.dist = d }
func (s *Simulator) Outputs() []machine.Output    { return s.table.Outputs() }

// AddDevice creates a device on the simulator's table and selects it.
func (s *Simulator) AddDevice(edit string) (int, error) {
	return s.table.Add(edit)
}

func (s *Simulator) busVoltage(t float64) seq.Vector {
	b := s.bus
	if s.dynamic && s.dist.active(t) {
		b.VoltagePU = s.dist.VoltagePU
	}
	return b.phases(s.vbase)
}

func (s *Simulator) validateConfig() error {
	if s.cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", s.cfg.Dt, dynamo.ErrParameterBounds)
	}
	if s.cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f: %w", s.cfg.Duration, dynamo.ErrParameterBounds)
	}
	if s.cfg.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d: %w", s.cfg.MaxIterations, dynamo.ErrParameterBounds)
	}
	if s.table.Active() == 0 {
		return dynamo.ErrNoActiveModel
	}
	return nil
}

// SolvePowerFlow repeats the device's snapshot calculation at the bus
// voltage until the phase currents settle, and returns the iteration count.
func (s *Simulator) SolvePowerFlow(ctx context.Context) (int, error) {
	if s.table.Active() == 0 {
		return 0, dynamo.ErrNoActiveModel
	}

	s.dynamic = false
	s.sol.Mode = dynamo.ModeSnapshot
	s.sol.T = 0

	s.busVoltage(0).Flatten(s.v)
	prev := make([]float64, len(s.i))

	for k := 0; k < s.cfg.MaxIterations; k++ {
		if err := ctx.Err(); err != nil {
			return k, err
		}

		s.sol.IterationFlag = k
		copy(prev, s.i)
		s.table.Calc(s.v, s.i)

		if !seq.Unflatten(s.i).IsValid() {
			return k + 1, fmt.Errorf("power flow iteration %d: %w", k, dynamo.ErrInvalidState)
		}

		if k > 0 && maxAbsDiff(prev, s.i) <= s.cfg.Tolerance*math.Max(1, maxAbs(s.i)) {
			p := real(seq.Power(seq.Unflatten(s.v), seq.Unflatten(s.i)))
			s.logger.Info("power flow converged",
				zap.Int("iterations", k+1),
				zap.Float64("slip", s.outputValue("Slip")),
				zap.Float64("p_kw", p/1000),
			)
			return k + 1, nil
		}
	}

	s.logger.Warn("power flow did not converge", zap.Int("max_iterations", s.cfg.MaxIterations))
	return s.cfg.MaxIterations, fmt.Errorf("power flow after %d iterations: %w", s.cfg.MaxIterations, dynamo.ErrNotConverged)
}

// InitDynamics switches to dynamic mode from a converged power flow. The
// shaft power is set so the rotor starts in equilibrium.
func (s *Simulator) InitDynamics() {
	s.dynamic = true
	s.sol.Mode = dynamo.ModeDynamic
	s.sol.IterationFlag = 0
	s.sol.H = s.cfg.Dt
	s.sol.T = 0

	gen := s.GenVars()
	if gen == nil {
		return
	}
	speed := s.table.Init(s.v, s.i)
	gen.Speed = speed
	gen.DSpeed = 0
	s.speed.Init(speed)
	s.theta.Init(gen.Theta)

	base := gen.KVARating * 1000 / gen.W0
	s.inertia = 2 * gen.H * base
	s.damping = gen.D * base

	pe := real(seq.Power(seq.Unflatten(s.v), seq.Unflatten(s.i)))
	s.pShaft = pe - s.damping*speed

	s.logger.Debug("dynamics initialised",
		zap.Float64("speed", speed),
		zap.Float64("p_shaft_kw", s.pShaft/1000),
	)
}

// Step advances one time step, iterating device and shaft to convergence.
// A step that runs out of iterations is kept and reported as
// dynamo.ErrNotConverged alongside the sample.
func (s *Simulator) Step(ctx context.Context) (dynamo.Sample, error) {
	gen := s.GenVars()
	if gen == nil {
		return dynamo.Sample{}, dynamo.ErrNoActiveModel
	}
	h := s.cfg.Dt
	t := s.sol.T + h

	vabc := s.busVoltage(t)
	vabc.Flatten(s.v)

	prev := make([]float64, len(s.i))
	converged := false
	iterations := 0
	debug := s.table.Debug()

	for k := 0; k < s.cfg.MaxIterations; k++ {
		if err := ctx.Err(); err != nil {
			return dynamo.Sample{}, err
		}

		s.sol.IterationFlag = k
		gen.Speed = s.speed.X

		copy(prev, s.i)
		s.table.Calc(s.v, s.i)
		s.table.Integrate()

		if k == 0 {
			s.speed.Snapshot()
			s.theta.Snapshot()
		}
		pe := real(seq.Power(vabc, seq.Unflatten(s.i)))
		before := s.speed.X
		s.speed.D = (pe - s.pShaft - s.damping*s.speed.X) / s.inertia
		s.speed.Step(h)
		s.theta.D = s.speed.X
		s.theta.Step(h)

		iterations = k + 1
		if debug {
			s.logger.Info("iteration",
				zap.Float64("t", t),
				zap.Int("k", k),
				zap.Float64("speed", s.speed.X),
				zap.Float64("p_kw", pe/1000),
			)
		}
		if k > 0 &&
			maxAbsDiff(prev, s.i) <= s.cfg.Tolerance*math.Max(1, maxAbs(s.i)) &&
			math.Abs(s.speed.X-before) <= s.cfg.Tolerance*math.Max(1, math.Abs(s.speed.X)) {
			converged = true
			break
		}
	}

	gen.Speed = s.speed.X
	gen.DSpeed = s.speed.D
	gen.Theta = s.theta.X
	gen.DTheta = s.theta.D
	s.sol.T = t

	sample := s.sample(t, vabc, iterations)
	if !converged {
		s.logger.Debug("step did not converge", zap.Float64("t", t), zap.Int("iterations", iterations))
		return sample, fmt.Errorf("t=%.6f: %w", t, dynamo.ErrNotConverged)
	}
	return sample, nil
}

func (s *Simulator) outputValue(name string) float64 {
	for _, o := range s.table.Outputs() {
		if o.Name == name {
			return o.Value
		}
	}
	return math.NaN()
}

// Sample reports the present operating point without stepping.
func (s *Simulator) Sample() dynamo.Sample {
	return s.sample(s.sol.T, seq.Unflatten(s.v), 0)
}

func (s *Simulator) sample(t float64, vabc seq.Vector, iterations int) dynamo.Sample {
	iabc := seq.Unflatten(s.i)
	power := seq.Power(vabc, iabc)
	v012 := seq.PhaseToSeq(vabc)

	speed := math.NaN()
	if gen := s.GenVars(); gen != nil {
		speed = gen.Speed
	}

	return dynamo.Sample{
		T:          t,
		Slip:       s.outputValue("Slip"),
		Speed:      speed,
		V1:         cmplx.Abs(v012[1]) / s.vbase,
		Is1:        s.outputValue("Is1"),
		Is2:        s.outputValue("Is2"),
		E1:         s.outputValue("E1_pu"),
		P:          real(power),
		Q:          imag(power),
		Losses:     s.outputValue("StatorLosses") + s.outputValue("RotorLosses"),
		Iterations: iterations,
	}
}

// Run solves the power flow, enters dynamics and steps to the configured
// duration. An invalid state ends the run early; the result so far is
// returned with the error recorded in Errors.
func (s *Simulator) Run(ctx context.Context) (*dynamo.Result, error) {
	return s.run(ctx, nil)
}

// RunWithCallback is Run with a hook after every accepted step. Returning
// false from fn stops the run.
func (s *Simulator) RunWithCallback(ctx context.Context, fn func(dynamo.Sample) bool) (*dynamo.Result, error) {
	return s.run(ctx, fn)
}

func (s *Simulator) run(ctx context.Context, fn func(dynamo.Sample) bool) (*dynamo.Result, error) {
	if err := s.validateConfig(); err != nil {
		return nil, err
	}

	if _, err := s.SolvePowerFlow(ctx); err != nil {
		return nil, err
	}
	s.InitDynamics()

	steps := int(math.Round(s.cfg.Duration / s.cfg.Dt))
	result := &dynamo.Result{
		Samples: make([]dynamo.Sample, 0, steps+1),
		Metrics: make(map[string]float64),
		Outputs: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	first := s.Sample()
	result.Samples = append(result.Samples, first)
	unconverged := 0

	for n := 0; n < steps; n++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		sample, err := s.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			unconverged++
		}

		if s.cfg.ValidateState && !sample.IsValid() {
			simErr := &dynamo.SimulationError{Step: n, Time: sample.T, Sample: sample, Wrapped: dynamo.ErrInvalidState}
			result.Errors = append(result.Errors, simErr)
			s.logger.Warn("invalid state", zap.Int("step", n), zap.Float64("t", sample.T))
			break
		}

		for _, m := range s.metrics {
			m.Observe(sample, s.cfg.Dt)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample)
		}

		result.Samples = append(result.Samples, sample)
		result.StepsTaken++

		if fn != nil && !fn(sample) {
			break
		}
	}

	if unconverged > 0 {
		result.Errors = append(result.Errors, fmt.Errorf("%d steps hit the iteration limit: %w", unconverged, dynamo.ErrNotConverged))
		s.logger.Warn("unconverged steps", zap.Int("count", unconverged))
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	for _, o := range s.table.Outputs() {
		result.Outputs[o.Name] = o.Value
	}

	s.logger.Info("run finished",
		zap.Int("steps", result.StepsTaken),
		zap.Float64("t", s.sol.T),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}
