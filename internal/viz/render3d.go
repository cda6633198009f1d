package viz

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

// Camera looks at the world origin from a yaw/pitch orbit. World z is up on
// screen.
type Camera struct {
	Yaw, Pitch float64 // [rad]
	Zoom       float64
	Span       float64 // half-width of the visible world at zoom 1 [m]
	Distance   float64 // perspective distance in units of Span
}

func NewCamera() *Camera {
	return &Camera{Yaw: -math.Pi / 6, Pitch: 0.35, Zoom: 1, Span: 0.2, Distance: 6}
}

func (c *Camera) Orbit(a float64) { c.Yaw += a }
func (c *Camera) Tilt(a float64)  { c.Pitch = math.Max(-1.5, math.Min(1.5, c.Pitch+a)) }
func (c *Camera) ZoomIn()         { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()        { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) view() dynamo.Quat {
	return dynamo.AxisAngle(dynamo.XHat, c.Pitch).Mul(dynamo.AxisAngle(dynamo.ZHat, c.Yaw))
}

// Project maps a world point to dot coordinates on a w by h canvas and
// reports its depth (larger is nearer) and whether it lands on screen.
func (c *Camera) Project(p dynamo.Vec3, w, h int) (int, int, float64, bool) {
	v := c.view().Rotate(p).Scale(1 / c.Span)
	depth := -v.Y
	if depth >= c.Distance {
		return 0, 0, 0, false
	}
	persp := c.Distance / (c.Distance - depth) * c.Zoom
	half := float64(min(w, h)) / 2
	sx := int(math.Round(v.X*persp*half)) + w/2
	sy := h/2 - int(math.Round(v.Z*persp*half))
	return sx, sy, depth, sx >= 0 && sx < w && sy >= 0 && sy < h
}

type Edge struct {
	Start, End dynamo.Vec3
}

type Wireframe struct{ Edges []Edge }

func (w *Wireframe) Add(s, e dynamo.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }

// Draw renders every edge onto the canvas.
func (w *Wireframe) Draw(c *Canvas, cam *Camera) {
	cw, ch := c.Dots()
	for _, e := range w.Edges {
		x1, y1, _, v1 := cam.Project(e.Start, cw, ch)
		x2, y2, _, v2 := cam.Project(e.End, cw, ch)
		if v1 || v2 {
			c.DrawLine(x1, y1, x2, y2)
		}
	}
}

// propOffsets are the propeller positions in body axes, in allocation order.
func propOffsets(p vehicle.Params) [dynamo.NumProps]dynamo.Vec3 {
	rx, ry := p.Arm[0], p.Arm[1]
	return [dynamo.NumProps]dynamo.Vec3{
		{X: rx, Y: ry},
		{X: rx, Y: -ry},
		{X: -rx, Y: ry},
		{X: -rx, Y: -ry},
	}
}

// QuadFrame draws the vehicle at orientation q: X-frame arms, a small ring
// per propeller, a thrust bar per propeller scaled by its share of
// PropMax, and a ground cross.
func QuadFrame(p vehicle.Params, q dynamo.Quat, forces dynamo.Forces) *Wireframe {
	w := &Wireframe{}
	span := math.Max(p.Arm[0], p.Arm[1])

	g := 1.6 * span
	w.Add(dynamo.Vec3{X: -g, Z: -span}, dynamo.Vec3{X: g, Z: -span})
	w.Add(dynamo.Vec3{Y: -g, Z: -span}, dynamo.Vec3{Y: g, Z: -span})

	up := q.Rotate(dynamo.ZHat)
	for i, off := range propOffsets(p) {
		tip := q.Rotate(off)
		w.Add(dynamo.Vec3{}, tip)

		r := span / 3
		const segs = 8
		for k := 0; k < segs; k++ {
			a0 := 2 * math.Pi * float64(k) / segs
			a1 := 2 * math.Pi * float64(k+1) / segs
			p0 := off.Add(dynamo.Vec3{X: r * math.Cos(a0), Y: r * math.Sin(a0)})
			p1 := off.Add(dynamo.Vec3{X: r * math.Cos(a1), Y: r * math.Sin(a1)})
			w.Add(q.Rotate(p0), q.Rotate(p1))
		}

		if p.PropMax > 0 && forces[i] > 0 {
			w.Add(tip, tip.Add(up.Scale(span*forces[i]/p.PropMax)))
		}
	}
	return w
}
