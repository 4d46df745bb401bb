package metrics

import "github.com/san-kum/indmach/internal/dynamo"

const joulesPerKWh = 3.6e6

// Energy integrates the real power drawn by the machine, in kWh. Power
// delivered by a generator counts negative.
type Energy struct {
	name  string
	total float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy_kwh"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.Sample, dt float64) {
	e.total += s.P * dt
}

func (e *Energy) Value() float64 { return e.total / joulesPerKWh }

func (e *Energy) Reset() { e.total = 0 }

// Losses integrates stator and rotor ohmic losses, in kWh.
type Losses struct {
	name  string
	total float64
}

func NewLosses() *Losses {
	return &Losses{name: "losses_kwh"}
}

func (l *Losses) Name() string { return l.name }

func (l *Losses) Observe(s dynamo.Sample, dt float64) {
	l.total += s.Losses * dt
}

func (l *Losses) Value() float64 { return l.total / joulesPerKWh }

func (l *Losses) Reset() { l.total = 0 }
