package machine

import "math"

// SetLocalSlip is the only writer of S1 and S2. Outside dynamics the
// magnitude of S1 is limited to MaxSlip with its sign kept.
func (m *Model) SetLocalSlip(s float64) {
	m.s1 = s
	if !m.sol.IsDynamic() {
		if math.Abs(m.s1) > m.MaxSlip {
			m.s1 = math.Copysign(m.MaxSlip, m.s1)
		}
	}
	m.s2 = 2 - m.s1
}
