package machine

import (
	"math/cmplx"

	"github.com/san-kum/indmach/internal/seq"
)

// InitStateVars sets E1 and E2 from the terminal voltages and currents of
// a converged power flow, zeroes their derivatives and returns the rotor
// speed deviation the host should start from.
func (m *Model) InitStateVars(vabc, iabc seq.Vector) float64 {
	v012 := seq.PhaseToSeq(vabc)
	i012 := seq.PhaseToSeq(iabc)

	m.v1, m.v2 = v012[1], v012[2]
	m.is1, m.is2 = i012[1], i012[2]

	zsp := m.net.Zsp
	m.e1.Init(m.v1 - m.is1*zsp)
	m.e2.Init(m.v2 - m.is2*zsp)

	gen := m.gen
	gen.Speed = -m.s1 * gen.W0
	gen.DSpeed = 0
	gen.Theta = cmplx.Phase(m.e1.X)
	gen.DTheta = 0

	return gen.Speed
}

// CalcDynamic computes the currents from the present E state. Slip follows
// the host's shaft speed and is not limited here.
func (m *Model) CalcDynamic(v012 seq.Vector, i012 *seq.Vector) {
	m.v1, m.v2 = v012[1], v012[2]

	m.SetLocalSlip(-m.gen.Speed / m.gen.W0)

	zsp, zm := m.net.Zsp, m.net.Zm

	m.is1 = (m.v1 - m.e1.X) / zsp
	m.is2 = (m.v2 - m.e2.X) / zsp

	m.ir1 = m.is1 - (m.v1-m.is1*zsp)/zm
	m.ir2 = m.is2 - (m.v2-m.is2*zsp)/zm

	*i012 = seq.Vector{0, m.is1, m.is2}
}

// Derivative is dE/dt for one sequence branch at slip s, state e and
// stator current is.
func (m *Model) Derivative(e, is complex128, s float64) complex128 {
	n := &m.net
	return complex(0, -m.gen.W0*s)*e - (e-complex(0, n.Xopen-n.Xp)*is)/complex(n.T0p, 0)
}

// Integrate advances E1 and E2 by one trapezoidal iteration. The history
// is captured on the first iteration of each host time step, so it must be
// called after every CalcDynamic of the step.
func (m *Model) Integrate() {
	if m.sol.NewStep() {
		m.e1.Snapshot()
		m.e2.Snapshot()
	}

	m.e1.D = m.Derivative(m.e1.X, m.is1, m.s1)
	m.e2.D = m.Derivative(m.e2.X, m.is2, m.s2)

	h := complex(m.sol.H, 0)
	m.e1.Step(h)
	m.e2.Step(h)
}
