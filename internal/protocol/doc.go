// Package protocol implements the framed serial messages shared by the
// simulator host, the flight controller and the teleop remote.
//
// Every frame is
//
//	0xFF | id | payload
//
// with no length field and no checksum: the payload length is fixed per id
// and per direction, so each reader is built with the [Schema] it expects.
// All numbers are little-endian IEEE-754 float32.
//
// HIL link (host <-> flight controller):
//
//	host -> device  id 0x00  40 bytes  quat w,x,y,z | omega x,y,z | local accel x,y,z
//	device -> host  id 0x00  16 bytes  prop forces 0..3
//
// Teleop link (remote <-> flight controller):
//
//	remote -> device  id 0x00   0 bytes  start
//	remote -> device  id 0x01  16 bytes  accel cmd x,y,z | heading
//	device -> remote  id 0x01  56 bytes  quat | omega | local accel | prop forces
package protocol
