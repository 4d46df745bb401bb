// Package experiment turns a configuration into a ready simulator.
package experiment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/san-kum/indmach/internal/config"
	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *zap.Logger
	simulator *sim.Simulator
}

func New(cfg *config.Config, logger *zap.Logger) *Experiment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   logger,
	}
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

// Setup validates the configuration, builds the simulator and adds one
// device to it.
func (e *Experiment) Setup(opts ...sim.Option) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	build, err := e.registry.GetModel(e.cfg.Model)
	if err != nil {
		return err
	}
	p, err := e.cfg.Params()
	if err != nil {
		return err
	}

	bus := sim.Bus{
		VoltagePU:   e.cfg.Bus.VoltagePU,
		Angle:       degToRad(e.cfg.Bus.AngleDeg),
		NegSeqPU:    e.cfg.Bus.NegSeqPU,
		NegSeqAngle: degToRad(e.cfg.Bus.NegSeqAngle),
	}
	dist := sim.Disturbance{
		At:        e.cfg.Disturbance.At,
		Duration:  e.cfg.Disturbance.Duration,
		VoltagePU: e.cfg.Disturbance.VoltagePU,
	}

	all := []sim.Option{
		sim.WithLogger(e.logger.With(zap.String("model", e.cfg.Model))),
		sim.WithBus(bus),
		sim.WithDisturbance(dist),
		sim.WithMetrics(e.registry.DefaultMetrics(p)...),
	}
	all = append(all, opts...)

	e.simulator = sim.New(build(p), e.cfg.GenVars(), e.cfg.SimConfig(), all...)
	if _, err := e.simulator.AddDevice(""); err != nil {
		return err
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx)
}

// PowerFlow solves only the steady state and reports it.
func (e *Experiment) PowerFlow(ctx context.Context) (dynamo.Sample, error) {
	if e.simulator == nil {
		return dynamo.Sample{}, fmt.Errorf("experiment not setup")
	}
	if _, err := e.simulator.SolvePowerFlow(ctx); err != nil {
		return dynamo.Sample{}, err
	}
	return e.simulator.Sample(), nil
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Sweep runs cfg once per edit, each applied on top of cfg.Set.
func Sweep(ctx context.Context, cfg *config.Config, edits []string, limit int, logger *zap.Logger) ([]*dynamo.Result, error) {
	build := func(edit string) (*sim.Simulator, error) {
		c := *cfg
		c.Set = strings.TrimSpace(cfg.Set + " " + edit)
		exp := New(&c, logger)
		if err := exp.Setup(); err != nil {
			return nil, err
		}
		return exp.GetSimulator(), nil
	}
	return sim.Sweep(ctx, build, edits, limit)
}
