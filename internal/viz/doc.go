// Package viz renders flights in the terminal and to image files.
//
//   - [LiveModel]: Bubble Tea view of a running flight, fed from the
//     runner's published snapshot
//   - [Canvas]: Braille pixel canvas used for the wireframe view
//   - [Plot] and [SavePNG]: time-series plots of a stored flight log
//
// # Key Bindings
//
//	Space - Freeze/resume the display (the flight keeps going)
//	X/x   - Tilt the camera
//	Z/z   - Orbit the camera
//	+/-   - Zoom
//	F     - Switch the graph between tilt and propeller forces
//	Q     - Quit
package viz
