package viewer

import (
	"github.com/chewxy/math32"
	vec3d "github.com/flywave/go3d/float64/vec3"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	rotateSpeed = 0.01
	zoomSpeed   = 0.05
	pitchLimit  = 1.5
	minDistance = 0.5
	maxDistance = 5000
)

// OrbitCamera is a target-centered camera: yaw and pitch orbit the target at a
// fixed distance, the wheel zooms, and panning moves the target itself.
type OrbitCamera struct {
	Camera   rl.Camera3D
	target   rl.Vector3
	distance float32
	yaw      float32
	pitch    float32
}

// NewOrbitCamera returns a camera orbiting the origin from an elevated angle.
func NewOrbitCamera() *OrbitCamera {
	c := &OrbitCamera{
		distance: 14,
		yaw:      0.8,
		pitch:    0.45,
	}
	c.Camera.Up = rl.NewVector3(0, 1, 0)
	c.Camera.Fovy = 45
	c.Camera.Projection = rl.CameraPerspective
	c.apply()
	return c
}

// HandleInput applies one frame of mouse input: left-drag rotates, shift+left
// or middle-drag pans, the wheel zooms. Call only while the console is closed
// so typing does not fight the camera.
func (c *OrbitCamera) HandleInput() {
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		c.distance *= 1 - wheel*zoomSpeed
		if c.distance < minDistance {
			c.distance = minDistance
		}
		if c.distance > maxDistance {
			c.distance = maxDistance
		}
	}

	shift := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
	panning := rl.IsMouseButtonDown(rl.MouseMiddleButton) || (rl.IsMouseButtonDown(rl.MouseLeftButton) && shift)
	if panning {
		c.pan(rl.GetMouseDelta())
	} else if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		delta := rl.GetMouseDelta()
		c.yaw += delta.X * rotateSpeed
		c.pitch -= delta.Y * rotateSpeed
		if c.pitch > pitchLimit {
			c.pitch = pitchLimit
		}
		if c.pitch < -pitchLimit {
			c.pitch = -pitchLimit
		}
	}
	c.apply()
}

// pan moves the target along the camera's right and up vectors, scaled by
// distance so the model tracks the cursor at any zoom level.
func (c *OrbitCamera) pan(delta rl.Vector2) {
	forward := rl.Vector3Normalize(rl.Vector3Subtract(c.target, c.Camera.Position))
	right := rl.Vector3Normalize(rl.Vector3CrossProduct(forward, c.Camera.Up))
	up := rl.Vector3Normalize(rl.Vector3CrossProduct(right, forward))

	speed := c.distance * 0.001
	c.target = rl.Vector3Add(c.target, rl.Vector3Scale(right, -delta.X*speed))
	c.target = rl.Vector3Add(c.target, rl.Vector3Scale(up, delta.Y*speed))
}

// apply recomputes the camera position from the spherical orbit parameters.
func (c *OrbitCamera) apply() {
	x := c.distance * math32.Cos(c.pitch) * math32.Sin(c.yaw)
	y := c.distance * math32.Sin(c.pitch)
	z := c.distance * math32.Cos(c.pitch) * math32.Cos(c.yaw)
	c.Camera.Position = rl.Vector3{X: c.target.X + x, Y: c.target.Y + y, Z: c.target.Z + z}
	c.Camera.Target = c.target
}

// Frame centers the orbit on the box and backs off far enough to see all of
// it. Orbit angles are kept so framing does not jerk the view around.
func (c *OrbitCamera) Frame(box vec3d.Box) {
	center := vec3d.Add(&box.Min, &box.Max)
	center.Scale(0.5)
	c.target = rl.Vector3{X: float32(center[0]), Y: float32(center[1]), Z: float32(center[2])}

	size := vec3d.Sub(&box.Max, &box.Min)
	maxDim := size[0]
	if size[1] > maxDim {
		maxDim = size[1]
	}
	if size[2] > maxDim {
		maxDim = size[2]
	}
	c.distance = float32(maxDim) * 2
	if c.distance < 2 {
		c.distance = 2
	}
	c.apply()
}
