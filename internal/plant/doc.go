// Package plant integrates the quadrotor rigid-body dynamics.
//
// [Step] is the pure per-tick update: mode gating, angular dynamics with
// right-composed orientation integration, then linear acceleration from the
// updated orientation. [Quadrotor] wraps it with the state a flight loop
// carries between ticks, plus world-frame velocity and position for
// display.
//
// Integration is explicit first-order Euler at the control period.
package plant
