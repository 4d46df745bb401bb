// Package dynamo provides the host-side primitives shared by devices and the
// solver that drives them.
//
//   - [Solution]: solution mode, iteration flag and step size for the
//     current host iteration
//   - [GenVars]: machine rating and shaft variables owned by the host
//   - [Config]: time stepping and convergence settings
//   - [Sample], [Result]: what a run produces
//   - [Metric]: run-level observers
//
// Devices hold pointers to a [Solution] and a [GenVars] and read them on
// every call; they never write the solution variables.
//
// # Thread Safety
//
// None of these types are safe for concurrent use. A host owns one
// Solution and one GenVars per device and calls the device serially.
package dynamo
