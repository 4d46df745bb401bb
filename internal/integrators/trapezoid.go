package integrators

// Scalar is any state value the trapezoidal rule can advance.
type Scalar interface {
	~float64 | ~complex128
}

// Trapezoid is one state variable with its derivative and the values
// captured at the start of the current host time step.
type Trapezoid[T Scalar] struct {
	X  T
	D  T
	Xn T
	Dn T
}

// Init sets the state, zeroes both derivatives and snapshots it.
func (s *Trapezoid[T]) Init(x T) {
	s.X = x
	s.D = 0
	s.Snapshot()
}

// Snapshot copies the present state and derivative into the history.
func (s *Trapezoid[T]) Snapshot() {
	s.Xn = s.X
	s.Dn = s.D
}

// Step applies X = Xn + h/2 (D + Dn). D must already be evaluated at the
// latest estimate of the new state.
func (s *Trapezoid[T]) Step(h T) {
	s.X = s.Xn + h*0.5*(s.D+s.Dn)
}
