// Package dynamo provides the value types shared by the flight stack.
//
// Everything here is a plain value: copying a [Quat], [VehicleState] or
// [Command] hands the receiver its own copy, so no component ever shares
// mutable attitude state with another.
//
//   - [Vec3], [Quat]: vector and rotation math
//   - [Forces]: the four propeller forces in allocation order
//   - [Mode]: Disabled, Enabled, Failed
//   - [Command]: desired world acceleration, heading and mode
//   - [VehicleState]: what the plant publishes once per tick
//   - [Record]: one logged tick (time, state, command)
//
// # Frames
//
// Orientations rotate body vectors into the world frame. World z points up
// and gravity acts along -z.
package dynamo
