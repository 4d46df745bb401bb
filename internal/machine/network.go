package machine

import "math"

// zeroSlipRL is the rotor load resistance multiplier used in place of
// (1-s)/s at exactly synchronous speed.
const zeroSlipRL = 1.0e6

// Network is the ohmic equivalent circuit derived from Params. It is
// rebuilt wholesale whenever the parameters are committed.
type Network struct {
	Zs    complex128
	Zm    complex128
	Zr    complex128
	Xopen float64
	Xp    float64
	Zsp   complex128
	T0p   float64
	DSdP  float64
}

// Derive converts p to ohms on the base kv (line-line) and kva, with w0 the
// base radian frequency. Nonphysical input yields NaN or Inf fields.
func Derive(p Params, kv, kva, w0 float64) Network {
	zbase := 1000.0 * (kv * kv / kva)

	rs := p.PuRs * zbase
	xs := p.PuXs * zbase
	rr := p.PuRr * zbase
	xr := p.PuXr * zbase
	xm := p.PuXm * zbase

	n := Network{
		Zs:    complex(rs, xs),
		Zm:    complex(0, xm),
		Zr:    complex(rr, xr),
		Xopen: xs + xm,
		Xp:    xs + (xr*xm)/(xr+xm),
		T0p:   (xr + xm) / (w0 * rr),
	}
	n.Zsp = complex(rs, n.Xp)
	return n
}

// Current solves the steady-state equivalent circuit for stator and rotor
// current at sequence voltage v and slip s.
func (n *Network) Current(v complex128, s float64) (is, ir complex128) {
	var rl float64
	if s != 0 {
		rl = real(n.Zr) * (1 - s) / s
	} else {
		rl = real(n.Zr) * zeroSlipRL
	}

	zrotor := complex(rl, 0) + n.Zr
	zmotor := n.Zs + (zrotor*n.Zm)/(zrotor+n.Zm)
	is = v / zmotor
	ir = is - (v-n.Zs*is)/n.Zm
	return is, ir
}

// RatedVoltage is the line-neutral voltage for a line-line kV rating.
func RatedVoltage(kv float64) complex128 {
	return complex(kv*1000.0/math.Sqrt(3), 0)
}
