package machine

import (
	"math/cmplx"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/integrators"
	"github.com/san-kum/indmach/internal/seq"
)

// Model is a three-phase induction machine represented in symmetrical
// components: a positive-sequence branch running at slip S1 and a
// negative-sequence branch at S2 = 2 - S1.
type Model struct {
	Params

	gen *dynamo.GenVars
	sol *dynamo.Solution
	net Network

	fixedSlip      bool
	firstIteration bool

	s1, s2   float64
	v1, v2   complex128
	is1, is2 complex128
	ir1, ir2 complex128

	// voltage behind transient reactance, per sequence
	e1, e2 integrators.Trapezoid[complex128]

	power complex128

	msg func(string)
}

// New builds a model bound to the host's generator and solution variables
// and commits p.
func New(p Params, gen *dynamo.GenVars, sol *dynamo.Solution) *Model {
	m := &Model{Params: p, gen: gen, sol: sol}
	m.Update()
	return m
}

// Update recomputes the equivalent circuit and the slip sensitivity from
// the present parameters and rating. It leaves the E state alone.
func (m *Model) Update() {
	gen := m.gen

	m.SetLocalSlip(m.Slip)

	// make generator speed agree
	gen.Speed = -m.s1 * gen.W0
	gen.DSpeed = 0
	gen.H, gen.D = m.H, m.D

	m.fixedSlip = m.FixedSlip()
	m.firstIteration = true

	m.net = Derive(m.Params, gen.KVGeneratorBase, gen.KVARating, gen.W0)

	// init dSdP from rated slip at rated voltage
	m.v1 = RatedVoltage(gen.KVGeneratorBase)
	m.is1 = 0
	if m.s1 != 0 {
		m.is1, m.ir1 = m.net.Current(m.v1, m.s1)
	}
	m.net.DSdP = 0
	if p := real(m.v1 * cmplx.Conj(m.is1)); p != 0 {
		m.net.DSdP = m.s1 / p
	}

	m.is1, m.is2 = 0, 0
	m.v1, m.v2 = 0, 0
}

// Calc takes phase voltages and writes the machine's phase currents,
// dispatching on the host's solution mode.
func (m *Model) Calc(vabc seq.Vector, iabc *seq.Vector) {
	v012 := seq.PhaseToSeq(vabc)
	var i012 seq.Vector

	if m.sol.IsDynamic() {
		m.CalcDynamic(v012, &i012)
	} else {
		m.CalcPowerFlow(v012, &i012)
	}

	*iabc = seq.SeqToPhase(i012)
	m.power = seq.Power(vabc, *iabc)
}

func (m *Model) Network() Network { return m.net }

func (m *Model) Slips() (s1, s2 float64) { return m.s1, m.s2 }

func (m *Model) Voltages() (v1, v2 complex128) { return m.v1, m.v2 }

func (m *Model) StatorCurrents() (is1, is2 complex128) { return m.is1, m.is2 }

func (m *Model) RotorCurrents() (ir1, ir2 complex128) { return m.ir1, m.ir2 }

// E returns the present voltages behind transient reactance.
func (m *Model) E() (e1, e2 complex128) { return m.e1.X, m.e2.X }

// Power is the total three-phase complex power into the machine from the
// last Calc.
func (m *Model) Power() complex128 { return m.power }

func (m *Model) IsFixedSlip() bool { return m.fixedSlip }
