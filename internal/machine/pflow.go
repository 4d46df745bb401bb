package machine

import (
	"math/cmplx"

	"github.com/san-kum/indmach/internal/seq"
)

// PFlowCurrent solves the equivalent circuit at sequence voltage v and
// slip s.
func (m *Model) PFlowCurrent(v complex128, s float64) (is, ir complex128) {
	return m.net.Current(v, s)
}

// PowerError is the per-phase real power mismatch against the nominal
// target at the present V1 and Is1.
func (m *Model) PowerError() float64 {
	return m.gen.PNominalPerPhase - real(m.v1*cmplx.Conj(m.is1))
}

// CalcPowerFlow makes one linearised slip correction toward the nominal
// power and solves both sequence branches. The host's outer iteration
// supplies the convergence loop.
func (m *Model) CalcPowerFlow(v012 seq.Vector, i012 *seq.Vector) {
	m.v1, m.v2 = v012[1], v012[2]

	if m.firstIteration || m.sol.NewStep() {
		m.is1, m.ir1 = m.net.Current(m.v1, m.s1)
		m.firstIteration = false
	}

	if !m.fixedSlip {
		m.SetLocalSlip(m.s1 + m.net.DSdP*m.PowerError())
	}

	m.is1, m.ir1 = m.net.Current(m.v1, m.s1)
	m.is2, m.ir2 = m.net.Current(m.v2, m.s2)

	*i012 = seq.Vector{0, m.is1, m.is2}
}
