package scene

import (
	"github.com/achilleasa/lumen/types"
	"github.com/chewxy/math32"
)

// The camera type describes the scene camera.
type Camera struct {
	Resolution [2]int32

	// Horizontal and vertical field of view in degrees.
	FOV types.Vec2

	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Derived by Setup.
	View  types.Vec3
	Right types.Vec3

	// Size of a pixel on the image plane at unit distance from the eye.
	PixelLength types.Vec2

	// Depth of field parameters. A zero lens radius disables depth of field.
	LensRadius  float32
	FocalLength float32
}

// Derive the horizontal field of view, the per-pixel step and the camera
// basis vectors from the vertical field of view (in degrees), the resolution
// and the eye/look-at/up vectors.
func (c *Camera) Setup(fovy float32) {
	resX := float32(c.Resolution[0])
	resY := float32(c.Resolution[1])

	yScaled := math32.Tan(fovy * 0.5 * math32.Pi / 180)
	xScaled := yScaled * resX / resY
	fovx := 2 * math32.Atan(xScaled) * 180 / math32.Pi
	c.FOV = types.Vec2{fovx, fovy}

	c.PixelLength = types.Vec2{
		2 * xScaled / resX,
		2 * yScaled / resY,
	}

	c.View = c.LookAt.Sub(c.Position).Normalize()
	c.Right = c.View.Cross(c.Up).Normalize()
}

// Recover the field of view (in degrees) from a per-pixel step and a resolution.
func FOVFromPixelLength(pixelLength types.Vec2, resolution [2]int32) types.Vec2 {
	var fov types.Vec2
	for axis := 0; axis < 2; axis++ {
		halfExtent := pixelLength[axis] * float32(resolution[axis]) * 0.5
		fov[axis] = 2 * math32.Atan(halfExtent) * 180 / math32.Pi
	}
	return fov
}

// The render state holds the camera and the progressive rendering settings.
type RenderState struct {
	Camera Camera

	Iterations uint32
	TraceDepth uint32
	ImageName  string

	// Accumulation buffer with one entry per pixel.
	Image []types.Vec3
}

// Allocate a zeroed accumulation buffer that matches the camera resolution.
func (s *RenderState) AllocImage() {
	s.Image = make([]types.Vec3, int(s.Camera.Resolution[0])*int(s.Camera.Resolution[1]))
}
