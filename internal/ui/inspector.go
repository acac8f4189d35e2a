package ui

import "fmt"

// Inspector is the right-docked panel describing the current selection: name,
// format, triangle count, transform channels, world size, and history depth.
// It reuses its three nodes so the engine's style cache stays warm while a
// selection is held.
type Inspector struct {
	panel *Node
	title *Node
	body  *Node
}

// NewInspector returns an inspector styled by .inspector, .inspector-title,
// and .inspector-body.
func NewInspector() *Inspector {
	return &Inspector{
		panel: NewPanel("inspector"),
		title: NewLabel("inspector-title", "Inspector"),
		body:  NewLabel("inspector-body", ""),
	}
}

// Selection is what the inspector shows. The shell fills it from the first
// selected entity; ui stays independent of the scene package.
// Rotation is in degrees. Size is the world-space bounding box extent.
type Selection struct {
	Name      string
	Format    string
	Triangles int
	Position  [3]float64
	Rotation  [3]float64
	Scale     [3]float64
	Size      [3]float64
	Count     int    // number of selected entities
	History   string // e.g. "undo 3 / redo 1"
}

// AppendNodes refreshes the body text from sel and appends the panel nodes to
// dst; with visible false it appends nothing. Call it every frame: text
// updates do not invalidate the engine's style cache.
func (in *Inspector) AppendNodes(dst []*Node, visible bool, sel Selection) []*Node {
	if !visible {
		return dst
	}
	selected := fmt.Sprintf("%d entities", sel.Count)
	if sel.Count == 1 {
		selected = "1 entity"
	}
	in.body.Text = fmt.Sprintf(
		"Name: %s\nFormat: %s\nTriangles: %d\n"+
			"Position: %.2f, %.2f, %.2f\nRotation: %.1f, %.1f, %.1f\n"+
			"Scale: %.2f, %.2f, %.2f\nSize: %.2f x %.2f x %.2f\n"+
			"Selected: %s\nHistory: %s",
		sel.Name, sel.Format, sel.Triangles,
		sel.Position[0], sel.Position[1], sel.Position[2],
		sel.Rotation[0], sel.Rotation[1], sel.Rotation[2],
		sel.Scale[0], sel.Scale[1], sel.Scale[2],
		sel.Size[0], sel.Size[1], sel.Size[2],
		selected, sel.History)
	return append(dst, in.panel, in.title, in.body)
}
