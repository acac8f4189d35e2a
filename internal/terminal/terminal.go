// Package terminal draws the drop-in console: a prompt bar at the bottom of
// the window with the tail of the session log above it.
package terminal

import (
	"unicode/utf8"

	rl "github.com/gen2brain/raylib-go/raylib"

	"mesh-studio/internal/commands"
	"mesh-studio/internal/consolelog"
)

const (
	barHeight = 40
	prompt    = "> "
	fontSize  = 20
	padding   = 8
	lineStep  = fontSize + 4
	tailLines = 14 // log lines shown above the input bar
	recallMax = 64 // submitted lines kept for arrow-key recall
)

var (
	barColor   = rl.NewColor(40, 40, 40, 255)
	rimColor   = rl.NewColor(80, 80, 80, 255)
	panelColor = rl.NewColor(24, 24, 24, 240)
)

// Terminal is the ESC-toggled console. While open it captures typing, recalls
// earlier submissions with the arrow keys, and runs "cmd ..." lines through
// the command registry. While closed it draws nothing and ignores input.
type Terminal struct {
	log   *consolelog.Logger
	reg   *commands.Registry
	input string
	open  bool

	sent   []string // submitted lines, oldest first
	recall int      // index into sent while browsing; len(sent) means the live line
	stash  string   // live line saved when recall starts
}

// New returns a closed terminal writing to log and dispatching through reg.
func New(log *consolelog.Logger, reg *commands.Registry) *Terminal {
	return &Terminal{log: log, reg: reg}
}

// IsOpen reports whether the console is visible and capturing input. The
// camera controller checks this to ignore the mouse while typing.
func (t *Terminal) IsOpen() bool {
	return t.open
}

// Update handles ESC toggling and, while open, typing, paste, recall, and
// submission. Call once per frame before the camera update.
func (t *Terminal) Update() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		t.open = !t.open
	}
	if !t.open {
		return
	}
	t.readTyped()
	t.readRecall()
	if rl.IsKeyPressed(rl.KeyBackspace) && len(t.input) > 0 {
		_, size := utf8.DecodeLastRuneInString(t.input)
		t.input = t.input[:len(t.input)-size]
	}
	if (rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeyKpEnter)) && t.input != "" {
		t.submit(t.input)
	}
}

// readTyped appends this frame's typed characters. Ctrl+V (Cmd+V on macOS)
// pastes the clipboard instead.
func (t *Terminal) readTyped() {
	mod := rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl) ||
		rl.IsKeyDown(rl.KeyLeftSuper) || rl.IsKeyDown(rl.KeyRightSuper)
	if mod && rl.IsKeyPressed(rl.KeyV) {
		t.input += rl.GetClipboardText()
		return
	}
	for {
		c := rl.GetCharPressed()
		if c == 0 {
			return
		}
		t.input += string(rune(c))
	}
}

// readRecall walks older submissions with Up and back toward the live line
// with Down. Whatever was typed before recall started is restored at the end.
func (t *Terminal) readRecall() {
	if rl.IsKeyPressed(rl.KeyUp) && t.recall > 0 {
		if t.recall == len(t.sent) {
			t.stash = t.input
		}
		t.recall--
		t.input = t.sent[t.recall]
	}
	if rl.IsKeyPressed(rl.KeyDown) && t.recall < len(t.sent) {
		t.recall++
		if t.recall == len(t.sent) {
			t.input = t.stash
		} else {
			t.input = t.sent[t.recall]
		}
	}
}

func (t *Terminal) submit(line string) {
	t.log.Log(line)
	t.input = ""
	t.stash = ""
	if len(t.sent) == 0 || t.sent[len(t.sent)-1] != line {
		t.sent = append(t.sent, line)
		if len(t.sent) > recallMax {
			t.sent = t.sent[1:]
		}
	}
	t.recall = len(t.sent)

	args, isCmd := commands.Parse(line)
	if !isCmd {
		t.log.Log(`commands start with "cmd", try "cmd help"`)
		return
	}
	if err := t.reg.Execute(args); err != nil {
		t.log.Log(err.Error())
	}
}

// Draw renders the input bar along the bottom edge and the log tail above it.
// Screen size is read every frame so the bar tracks window resizes.
func (t *Terminal) Draw() {
	if !t.open {
		return
	}
	screenW := int32(rl.GetScreenWidth())
	barY := int32(rl.GetScreenHeight()) - barHeight

	tail := t.log.Tail(tailLines)
	if len(tail) > 0 {
		panelH := int32(len(tail))*lineStep + padding
		panelY := barY - panelH
		rl.DrawRectangle(0, panelY, screenW, panelH, panelColor)
		for i, line := range tail {
			if len(line) > 200 {
				line = line[:197] + "..."
			}
			y := panelY + int32(i)*lineStep + padding/2
			rl.DrawText(line, padding, y, fontSize, rl.LightGray)
		}
	}

	rl.DrawRectangle(0, barY, screenW, barHeight, barColor)
	rl.DrawRectangle(0, barY, screenW, 1, rimColor)
	line := prompt + t.input
	if int(rl.GetTime()*2)%2 == 0 {
		line += "|"
	}
	rl.DrawText(line, padding, barY+(barHeight-fontSize)/2, fontSize, rl.White)
}
