package machine

import (
	"math"
	"math/cmplx"
)

func sqmag(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

func (m *Model) StatorLosses() float64 {
	return 3 * (sqmag(m.is1) + sqmag(m.is2)) * real(m.net.Zs)
}

func (m *Model) RotorLosses() float64 {
	return 3 * (sqmag(m.ir1) + sqmag(m.ir2)) * real(m.net.Zr)
}

// PowerFactor is P/|S| signed like the reactive power, so it is zero when
// Q is exactly zero and also at zero apparent power.
func (m *Model) PowerFactor() float64 {
	s := m.power
	mag := cmplx.Abs(s)
	if mag == 0 {
		return 0
	}
	pf := real(s) / mag
	switch {
	case imag(s) > 0:
		return pf
	case imag(s) < 0:
		return -pf
	}
	return 0
}

func (m *Model) EfficiencyPct() float64 {
	p := real(m.power)
	if p == 0 {
		return 0
	}
	eff := (1 - (m.StatorLosses()+m.RotorLosses())/p) * 100
	return math.Min(100, math.Max(0, eff))
}

// ShaftPowerHP is the mechanical power developed across the rotor load
// resistances of both branches.
func (m *Model) ShaftPowerHP() float64 {
	term := func(ir complex128, s float64) float64 {
		if s == 0 {
			return 0
		}
		return sqmag(ir) * (1 - s) / s
	}
	return (3.0 / 746) * (term(m.ir1, m.s1) + term(m.ir2, m.s2)) * real(m.net.Zr)
}

func (m *Model) E1PU() float64 {
	return math.Sqrt(3) * cmplx.Abs(m.e1.X) / (1000 * m.gen.KVGeneratorBase)
}

type Output struct {
	Name  string
	Value float64
}

var outputNames = []string{
	"Slip", "puRs", "puXs", "puRr", "puXr", "puXm", "MaxSlip",
	"Is1", "Is2", "Ir1", "Ir2",
	"E1_pu", "StatorLosses", "RotorLosses", "ShaftPower_hp", "PowerFactor", "Efficiency_pct",
}

// Outputs reports the monitored variables in a fixed order. Currents are
// reported as magnitudes.
func (m *Model) Outputs() []Output {
	values := []float64{
		m.s1, m.PuRs, m.PuXs, m.PuRr, m.PuXr, m.PuXm, m.MaxSlip,
		cmplx.Abs(m.is1), cmplx.Abs(m.is2), cmplx.Abs(m.ir1), cmplx.Abs(m.ir2),
		m.E1PU(), m.StatorLosses(), m.RotorLosses(), m.ShaftPowerHP(), m.PowerFactor(), m.EfficiencyPct(),
	}
	out := make([]Output, len(outputNames))
	for i, name := range outputNames {
		out[i] = Output{Name: name, Value: values[i]}
	}
	return out
}

func (m *Model) NumVars() int { return len(outputNames) }

// VarName is 1-based, as hosts index monitored variables.
func (m *Model) VarName(i int) string {
	if i < 1 || i > len(outputNames) {
		return ""
	}
	return outputNames[i-1]
}

func (m *Model) Var(i int) float64 {
	if i < 1 || i > len(outputNames) {
		return 0
	}
	return m.Outputs()[i-1].Value
}
