package ui

import (
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Engine draws styled nodes with raylib. Nodes render in list order, so a
// panel precedes the labels sitting on it. Styles resolve once per
// SetStylesheet or SetNodes call and stay cached; node text may change freely
// between frames without invalidating the cache.
type Engine struct {
	sheet  *Stylesheet
	nodes  []*Node
	styles []ComputedStyle
	dirty  bool
}

// New returns an engine with no stylesheet and no nodes.
func New() *Engine {
	return &Engine{dirty: true}
}

// SetStylesheet replaces the stylesheet (typically parsed from embedded CSS).
func (e *Engine) SetStylesheet(sheet *Stylesheet) {
	e.sheet = sheet
	e.dirty = true
}

// AddNode appends one node to the draw list.
func (e *Engine) AddNode(n *Node) {
	e.nodes = append(e.nodes, n)
	e.dirty = true
}

// SetNodes replaces the draw list.
func (e *Engine) SetNodes(nodes []*Node) {
	e.nodes = nodes
	e.dirty = true
}

// Draw renders every node. Call between BeginDrawing and EndDrawing.
func (e *Engine) Draw() {
	if e.dirty {
		e.restyle()
	}
	screenW := int32(rl.GetScreenWidth())
	screenH := int32(rl.GetScreenHeight())
	for i, n := range e.nodes {
		drawNode(n, e.styles[i], screenW, screenH)
	}
}

// restyle recomputes per-node styles and applies styled sizes to bounds.
// Origins stay unresolved: they depend on the screen size, which can change
// between frames.
func (e *Engine) restyle() {
	e.styles = make([]ComputedStyle, len(e.nodes))
	for i, n := range e.nodes {
		st := ResolveProps(e.match(n))
		if st.Width > 0 {
			n.Bounds.Width = float32(st.Width)
		}
		if st.Height > 0 {
			n.Bounds.Height = float32(st.Height)
		}
		e.styles[i] = st
	}
	e.dirty = false
}

// match merges the properties of every rule whose selector hits n, later
// rules overriding earlier ones.
func (e *Engine) match(n *Node) map[string]string {
	merged := make(map[string]string)
	if e.sheet == nil {
		return merged
	}
	for _, rule := range e.sheet.Rules {
		if !n.matches(rule.Selector) {
			continue
		}
		for k, v := range rule.Props {
			merged[k] = v
		}
	}
	return merged
}

func drawNode(n *Node, st ComputedStyle, screenW, screenH int32) {
	w, h := int32(n.Bounds.Width), int32(n.Bounds.Height)
	x, y := origin(st, w, h, screenW, screenH)

	if st.Background.A > 0 {
		rl.DrawRectangle(x, y, w, h, st.Background)
	}
	if st.HasBorder && w > 0 && h > 0 {
		rl.DrawRectangleLines(x, y, w, h, st.Border)
	}
	if n.Text == "" {
		return
	}
	lh := st.LineHeight
	if lh <= 0 {
		lh = st.FontSize + 5
	}
	ty := y + st.Padding
	for _, line := range strings.Split(n.Text, "\n") {
		rl.DrawText(line, x+st.Padding, ty, st.FontSize, st.Color)
		ty += lh
	}
}

// origin resolves the node's top-left corner. Pixel left/top apply first,
// percent positions override them, and a right/bottom anchor wins last so a
// docked panel tracks the window edge through resizes.
func origin(st ComputedStyle, w, h, screenW, screenH int32) (int32, int32) {
	x, y := st.Left, st.Top
	if st.LeftPct >= 0 {
		x = (screenW - w) * st.LeftPct / 100
	}
	if st.TopPct >= 0 {
		y = (screenH - h) * st.TopPct / 100
	}
	if st.Right >= 0 {
		x = screenW - w - st.Right
	}
	if st.Bottom >= 0 {
		y = screenH - h - st.Bottom
	}
	return x, y
}
