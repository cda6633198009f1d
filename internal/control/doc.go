// Package control implements the quadrotor flight control law.
//
// The pieces, leaves first:
//
//   - [PID]: single-axis controller with output clamp and external
//     integrator hold
//   - [Allocator]: maps body torque and collective thrust to four propeller
//     forces, scaling torque down to stay inside the force limits
//   - [Controller]: attitude/acceleration law run once per control tick
//   - [Supervisor]: Disabled/Enabled/Failed mode machine around a Controller
//
// # Usage
//
//	ctrl, err := control.New(vehicle.Default(), control.DefaultTuning())
//	sup := control.NewSupervisor(ctrl)
//	forces := sup.Update(state.Sensors(), cmd) // once per tick
//
// Nothing here allocates per tick or returns errors after construction;
// saturation and failure are reported through [Controller.Saturated] and
// [Supervisor.Mode].
package control
