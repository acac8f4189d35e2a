// Package viewer renders the scene with raylib: an orbit camera, the editor
// grid, uploaded entity meshes, and selection highlights. It owns no scene
// state; all mutation goes through the workspace it draws.
package viewer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"

	"mesh-studio/internal/scene"
	"mesh-studio/internal/workspace"
)

const (
	gridExtent     = 50
	gridMinorStep  = 1
	gridMajorStep  = 10
	gridMinorAlpha = 50
	gridMajorAlpha = 120
	axisLineAlpha  = 220
	// clickSlop is the max cursor travel (pixels) for a press-release pair to
	// count as a pick instead of an orbit drag.
	clickSlop = 5
)

// Viewer draws the workspace scene and translates clicks into selection.
type Viewer struct {
	ws    *workspace.Workspace
	cam   *OrbitCamera
	cache *ModelCache

	gridVisible  bool
	mouseDownPos rl.Vector2
	dragging     bool
}

// New returns a viewer over ws with the grid visible.
func New(ws *workspace.Workspace) *Viewer {
	return &Viewer{
		ws:          ws,
		cam:         NewOrbitCamera(),
		cache:       NewModelCache(),
		gridVisible: true,
	}
}

// SetGridVisible sets whether the editor grid is drawn.
func (v *Viewer) SetGridVisible(visible bool) {
	v.gridVisible = visible
}

// GridVisible reports whether the editor grid is drawn.
func (v *Viewer) GridVisible() bool {
	return v.gridVisible
}

// Camera exposes the raylib camera for projections (e.g. picking, overlays).
func (v *Viewer) Camera() rl.Camera3D {
	return v.cam.Camera
}

// FrameScene points the camera at the selection if there is one, else the
// whole scene. No-op on an empty scene.
func (v *Viewer) FrameScene() {
	sel := v.ws.Selection().Entities()
	if len(sel) > 0 {
		box := scene.WorldBounds(sel[0])
		for _, e := range sel[1:] {
			eb := scene.WorldBounds(e)
			box.Join(&eb)
		}
		v.cam.Frame(box)
		return
	}
	if box, ok := v.ws.Scene().CombinedBounds(); ok {
		v.cam.Frame(box)
	}
}

// Update runs camera input and click picking. Call once per frame; pass
// captured=true while the console is open so mouse input stays with it.
func (v *Viewer) Update(captured bool) {
	if captured {
		v.dragging = false
		return
	}
	v.cam.HandleInput()

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		v.mouseDownPos = rl.GetMousePosition()
		v.dragging = false
	}
	if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		if rl.Vector2Distance(v.mouseDownPos, rl.GetMousePosition()) > clickSlop {
			v.dragging = true
		}
	}
	if rl.IsMouseButtonReleased(rl.MouseLeftButton) && !v.dragging {
		v.pick(rl.GetMousePosition())
	}
}

// pick casts a ray through the cursor and updates the selection: plain click
// replaces it, shift+click toggles, clicking empty space clears.
func (v *Viewer) pick(mouse rl.Vector2) {
	sel := v.ws.Selection()
	id, hit := pickEntity(v.ws.Scene(), v.cam.Camera, mouse)
	shift := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)

	switch {
	case !hit && !shift:
		sel.Clear()
	case hit && shift:
		sel.Toggle(id)
	case hit:
		sel.Clear()
		sel.Add(id)
	}
}

// pickEntity returns the handle of the nearest entity whose world bounds the
// cursor ray hits.
func pickEntity(sc *scene.Scene, cam rl.Camera3D, mouse rl.Vector2) (uuid.UUID, bool) {
	ray := rl.GetScreenToWorldRay(mouse, cam)
	var best float32
	var hit uuid.UUID
	found := false
	for i := 0; i < sc.Len(); i++ {
		e := sc.At(i)
		col := rl.GetRayCollisionBox(ray, entityBox(e))
		if col.Hit && (!found || col.Distance < best) {
			best = col.Distance
			hit = e.Handle
			found = true
		}
	}
	return hit, found
}

func entityBox(e *scene.Entity) rl.BoundingBox {
	b := scene.WorldBounds(e)
	return rl.NewBoundingBox(
		rl.NewVector3(float32(b.Min[0]), float32(b.Min[1]), float32(b.Min[2])),
		rl.NewVector3(float32(b.Max[0]), float32(b.Max[1]), float32(b.Max[2])),
	)
}

// Draw renders the 3D scene: grid, entity meshes, then selection boxes.
// Call after ClearBackground and before 2D overlays.
func (v *Viewer) Draw() {
	pos := v.cam.Camera.Position
	v.cache.SetView([3]float32{pos.X, pos.Y, pos.Z}, [3]float32{0.5, 1, 0.5})

	rl.BeginMode3D(v.cam.Camera)
	if v.gridVisible {
		drawEditorGrid()
	}
	v.cache.Draw(v.ws.Scene())
	v.drawSelectionBoxes()
	rl.EndMode3D()
}

// drawSelectionBoxes outlines the world bounds of every selected entity.
func (v *Viewer) drawSelectionBoxes() {
	for _, e := range v.ws.Selection().Entities() {
		rl.DrawBoundingBox(entityBox(e), rl.Orange)
	}
}

// drawEditorGrid draws a grid on the XZ plane with major/minor lines and axis
// lines. Reuses start/end vectors to avoid per-frame allocations in the loop.
func drawEditorGrid() {
	minor := rl.NewColor(128, 128, 128, gridMinorAlpha)
	major := rl.NewColor(160, 160, 160, gridMajorAlpha)
	axisX := rl.NewColor(220, 80, 80, axisLineAlpha)
	axisY := rl.NewColor(80, 220, 80, axisLineAlpha)
	axisZ := rl.NewColor(80, 80, 220, axisLineAlpha)

	var start, end rl.Vector3
	for x := -gridExtent; x <= gridExtent; x += gridMinorStep {
		c := major
		if x%gridMajorStep != 0 {
			c = minor
		}
		start.X, start.Y, start.Z = float32(x), 0, float32(-gridExtent)
		end.X, end.Y, end.Z = float32(x), 0, float32(gridExtent)
		rl.DrawLine3D(start, end, c)
	}
	for z := -gridExtent; z <= gridExtent; z += gridMinorStep {
		c := major
		if z%gridMajorStep != 0 {
			c = minor
		}
		start.X, start.Y, start.Z = float32(-gridExtent), 0, float32(z)
		end.X, end.Y, end.Z = float32(gridExtent), 0, float32(z)
		rl.DrawLine3D(start, end, c)
	}

	// Axis lines through origin (X=red, Y=green, Z=blue)
	start.X, start.Y, start.Z = float32(-gridExtent), 0, 0
	end.X, end.Y, end.Z = float32(gridExtent), 0, 0
	rl.DrawLine3D(start, end, axisX)
	start.X, start.Y, start.Z = 0, float32(-gridExtent), 0
	end.X, end.Y, end.Z = 0, float32(gridExtent), 0
	rl.DrawLine3D(start, end, axisY)
	start.X, start.Y, start.Z = 0, 0, float32(-gridExtent)
	end.X, end.Y, end.Z = 0, 0, float32(gridExtent)
	rl.DrawLine3D(start, end, axisZ)
}
