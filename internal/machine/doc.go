// Package machine implements a three-phase induction machine for use as a
// device inside a network solver.
//
// The model works in symmetrical components. Positive- and
// negative-sequence branches share one equivalent circuit derived from
// per-unit nameplate data; the zero sequence is not modelled.
//
// # Solution modes
//
// In snapshot (power-flow) mode each [Model.Calc] makes one linearised
// slip correction toward the host's nominal power and solves the
// steady-state circuit. Repeated calls from the host's outer loop converge
// the slip.
//
// In dynamic mode the currents come from the voltages behind transient
// reactance E1 and E2, which [Model.Integrate] advances with the
// trapezoidal rule. Slip follows the shaft speed the host integrates.
//
// # Lifecycle
//
//	m := machine.New(params, gen, sol) // Update is called
//	m.Calc(vabc, &iabc)                 // power flow, repeated by the host
//	m.InitStateVars(vabc, iabc)         // entering dynamics
//	for each step:
//	    m.Calc(vabc, &iabc); m.Integrate() // per host iteration
//
// Nothing in this package returns errors or logs: invalid parameters show
// up as NaN or Inf in the results, and calling Calc in dynamic mode before
// InitStateVars is undefined.
package machine
