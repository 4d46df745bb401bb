package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/machine"
)

const (
	DefaultModel         = "indmach012"
	DefaultDt            = 0.001
	DefaultDuration      = 1.0
	DefaultMaxIterations = 50
	DefaultTolerance     = 1e-6
	DefaultKV            = 2.4
	DefaultKVA           = 1000.0
	DefaultKW            = 900.0
	DefaultBaseFreq      = 60.0
)

type Config struct {
	Model         string            `yaml:"model"`
	Machine       machine.Params    `yaml:"machine"`
	Rating        RatingConfig      `yaml:"rating"`
	Bus           BusConfig         `yaml:"bus"`
	Dt            float64           `yaml:"dt"`
	Duration      float64           `yaml:"duration"`
	MaxIterations int               `yaml:"max_iterations"`
	Tolerance     float64           `yaml:"tolerance"`
	Disturbance   DisturbanceConfig `yaml:"disturbance"`
	// Set is a parameter edit applied on top of Machine.
	Set string `yaml:"set,omitempty"`
}

type RatingConfig struct {
	KV       float64 `yaml:"kv"`
	KVA      float64 `yaml:"kva"`
	KW       float64 `yaml:"kw"`
	BaseFreq float64 `yaml:"base_freq"`
}

// BusConfig is the ideal source at the machine terminals. Angles are in
// degrees; the negative-sequence magnitude is relative to the positive.
type BusConfig struct {
	VoltagePU   float64 `yaml:"voltage_pu"`
	AngleDeg    float64 `yaml:"angle_deg"`
	NegSeqPU    float64 `yaml:"neg_seq_pu"`
	NegSeqAngle float64 `yaml:"neg_seq_angle_deg"`
}

// DisturbanceConfig replaces the bus voltage for a window of the dynamic
// run. A zero duration disables it.
type DisturbanceConfig struct {
	At        float64 `yaml:"at"`
	Duration  float64 `yaml:"duration"`
	VoltagePU float64 `yaml:"voltage_pu"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:   DefaultModel,
		Machine: machine.DefaultParams(),
		Rating: RatingConfig{
			KV:       DefaultKV,
			KVA:      DefaultKVA,
			KW:       DefaultKW,
			BaseFreq: DefaultBaseFreq,
		},
		Bus:           BusConfig{VoltagePU: 1.0},
		Dt:            DefaultDt,
		Duration:      DefaultDuration,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params returns the machine parameters with Set applied.
func (c *Config) Params() (machine.Params, error) {
	p := c.Machine
	if _, err := p.Apply(c.Set); err != nil {
		return p, fmt.Errorf("set %q: %w", c.Set, err)
	}
	return p, nil
}

func (c *Config) GenVars() *dynamo.GenVars {
	return dynamo.NewGenVars(c.Rating.KV, c.Rating.KVA, c.Rating.KW, c.Rating.BaseFreq)
}

func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
		ValidateState: true,
	}
}

func bounds(name string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return fmt.Errorf("%s=%g not in [%g, %g]: %w", name, v, lo, hi, dynamo.ErrParameterBounds)
	}
	return nil
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 || math.IsInf(v, 0) {
		return fmt.Errorf("%s=%g must be positive: %w", name, v, dynamo.ErrParameterBounds)
	}
	return nil
}

// Validate rejects configurations the machine would turn into NaN or Inf.
// The machine itself does not check.
func (c *Config) Validate() error {
	p, err := c.Params()
	if err != nil {
		return err
	}

	checks := []error{
		positive("dt", c.Dt),
		positive("duration", c.Duration),
		positive("tolerance", c.Tolerance),
		positive("kv", c.Rating.KV),
		positive("kva", c.Rating.KVA),
		positive("base_freq", c.Rating.BaseFreq),
		positive("H", p.H),
		positive("puRr", p.PuRr),
		positive("puXm", p.PuXm),
		bounds("D", p.D, 0, math.MaxFloat64),
		bounds("puRs", p.PuRs, 0, math.MaxFloat64),
		bounds("puXs", p.PuXs, 0, math.MaxFloat64),
		bounds("puXr", p.PuXr, 0, math.MaxFloat64),
		bounds("MaxSlip", p.MaxSlip, 1e-6, 1),
		bounds("slip", math.Abs(p.Slip), 0, p.MaxSlip),
		positive("voltage_pu", c.Bus.VoltagePU),
		bounds("neg_seq_pu", c.Bus.NegSeqPU, 0, 1),
		bounds("disturbance.voltage_pu", c.Disturbance.VoltagePU, 0, 2),
		bounds("disturbance.duration", c.Disturbance.Duration, 0, math.MaxFloat64),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations=%d must be at least 1: %w", c.MaxIterations, dynamo.ErrParameterBounds)
	}
	if c.Dt > c.Duration {
		return fmt.Errorf("dt=%g exceeds duration=%g: %w", c.Dt, c.Duration, dynamo.ErrParameterBounds)
	}
	return nil
}
