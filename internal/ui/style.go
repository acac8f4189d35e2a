package ui

import (
	"strconv"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Rule pairs one selector with its raw declarations.
type Rule struct {
	Selector string            // ".inspector" or "#menu"
	Props    map[string]string // "background" -> "#333"
}

// Stylesheet is an ordered rule list. Later rules win when selectors collide.
type Stylesheet struct {
	Rules []Rule
}

// ComputedStyle is a rule set resolved into drawable values. Percent and
// right/bottom anchors carry -1 when the sheet never set them; LineHeight 0
// means derive from FontSize.
type ComputedStyle struct {
	Background rl.Color
	Color      rl.Color
	Border     rl.Color
	HasBorder  bool

	Width  int32
	Height int32

	Left    int32
	Top     int32
	LeftPct int32 // percent of screen width, -1 when unset
	TopPct  int32 // percent of screen height, -1 when unset
	Right   int32 // offset from the right edge, -1 when unset
	Bottom  int32 // offset from the bottom edge, -1 when unset

	Padding    int32 // text inset from the node corner
	FontSize   int32
	LineHeight int32 // vertical advance between text lines, 0 = FontSize + 5
}

// DefaultComputedStyle is the style of an unmatched node: invisible box,
// white 20px text.
func DefaultComputedStyle() ComputedStyle {
	return ComputedStyle{
		Background: rl.NewColor(0, 0, 0, 0),
		Color:      rl.White,
		Border:     rl.Black,
		LeftPct:    -1,
		TopPct:     -1,
		Right:      -1,
		Bottom:     -1,
		Padding:    4,
		FontSize:   20,
	}
}

// ParseHexColor parses #RGB, #RRGGBB, or #RRGGBBAA into rl.Color.
// Alpha defaults to 255 when not given. Returns rl.Black and false on parse error.
func ParseHexColor(s string) (rl.Color, bool) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return rl.Black, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return rl.Black, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rl.Black, false
	}
	return rl.NewColor(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), true
}

// ParsePx parses a pixel length, with or without the "px" suffix.
func ParsePx(s string) (int32, bool) {
	s = strings.TrimSpace(s)
	if cut, ok := strings.CutSuffix(s, "px"); ok {
		s = strings.TrimSpace(cut)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

// ParsePct parses "N%" with N in 0-100.
func ParsePct(s string) (int32, bool) {
	cut, ok := strings.CutSuffix(strings.TrimSpace(s), "%")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(cut)
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return int32(n), true
}

// ResolveProps resolves a merged property map into a ComputedStyle. Unknown
// properties and unparsable values leave the default in place.
func ResolveProps(props map[string]string) ComputedStyle {
	out := DefaultComputedStyle()

	color := func(dst *rl.Color) func(string) {
		return func(v string) {
			if c, ok := ParseHexColor(v); ok {
				*dst = c
			}
		}
	}
	px := func(dst *int32, min int32) func(string) {
		return func(v string) {
			if n, ok := ParsePx(v); ok && n >= min {
				*dst = n
			}
		}
	}
	// left/top take either a percent of the screen or a pixel offset.
	edge := func(offset, pct *int32) func(string) {
		return func(v string) {
			if p, ok := ParsePct(v); ok {
				*pct = p
			} else if n, ok := ParsePx(v); ok {
				*offset = n
			}
		}
	}

	apply := map[string]func(string){
		"background": color(&out.Background),
		"color":      color(&out.Color),
		"border": func(v string) {
			if c, ok := ParseHexColor(v); ok {
				out.Border = c
				out.HasBorder = true
			}
		},
		"width":       px(&out.Width, 0),
		"height":      px(&out.Height, 0),
		"left":        edge(&out.Left, &out.LeftPct),
		"top":         edge(&out.Top, &out.TopPct),
		"right":       px(&out.Right, 0),
		"bottom":      px(&out.Bottom, 0),
		"padding":     px(&out.Padding, 0),
		"font-size":   px(&out.FontSize, 1),
		"line-height": px(&out.LineHeight, 1),
	}
	for k, v := range props {
		if set, ok := apply[k]; ok {
			set(strings.TrimSpace(v))
		}
	}
	return out
}
