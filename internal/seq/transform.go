// Package seq converts three-phase quantities to and from symmetrical
// components, ordered [zero, positive, negative].
package seq

import (
	"math"
	"math/cmplx"
)

type Vector [3]complex128

// Matrices are filled from the exact cube roots of unity rather than by
// numerically inverting one from the other.
var (
	a  = complex(-0.5, math.Sqrt(3)/2)
	aa = complex(-0.5, -math.Sqrt(3)/2)

	ap2s = [3][3]complex128{
		{1, 1, 1},
		{1, a, aa},
		{1, aa, a},
	}

	as2p = [3][3]complex128{
		{1, 1, 1},
		{1, aa, a},
		{1, a, aa},
	}
)

func mul(m *[3][3]complex128, v Vector) Vector {
	var out Vector
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

// PhaseToSeq returns the [zero, positive, negative] components of v.
func PhaseToSeq(v Vector) Vector {
	out := mul(&ap2s, v)
	for i := range out {
		out[i] /= 3
	}
	return out
}

// SeqToPhase recovers phase quantities from [zero, positive, negative].
func SeqToPhase(v Vector) Vector {
	return mul(&as2p, v)
}

// Power is the total complex power sum(v * conj(i)).
func Power(v, i Vector) complex128 {
	var s complex128
	for k := range v {
		s += v[k] * cmplx.Conj(i[k])
	}
	return s
}

// Balanced builds phase quantities from sequence magnitudes, with the
// negative-sequence component given relative to the positive one.
func Balanced(mag, angle, negRatio, negAngle float64) Vector {
	v1 := cmplx.Rect(mag, angle)
	v2 := cmplx.Rect(mag*negRatio, angle+negAngle)
	return SeqToPhase(Vector{0, v1, v2})
}

func (v Vector) IsValid() bool {
	for _, c := range v {
		if cmplx.IsNaN(c) || cmplx.IsInf(c) {
			return false
		}
	}
	return true
}

// Flatten writes v as interleaved re/im pairs.
func (v Vector) Flatten(buf []float64) {
	for k, c := range v {
		if 2*k+1 >= len(buf) {
			return
		}
		buf[2*k] = real(c)
		buf[2*k+1] = imag(c)
	}
}

// Unflatten reads interleaved re/im pairs; missing entries stay zero.
func Unflatten(buf []float64) Vector {
	var v Vector
	for k := range v {
		if 2*k+1 >= len(buf) {
			break
		}
		v[k] = complex(buf[2*k], buf[2*k+1])
	}
	return v
}
