package graphics

import rl "github.com/gen2brain/raylib-go/raylib"

// Background used to clear each frame. Dark grey rather than black so
// unlit model silhouettes stay visible.
var backgroundColor = rl.NewColor(18, 18, 22, 255)

// Run opens the window and drives the main loop. Each frame it calls update (input,
// command handling), then clears the screen and calls draw (3D scene, overlays).
// This keeps the graphics layer separate from the console or other screen content.
// ESC toggles the console; close via the window button.
func Run(title string, width, height int32, update, draw func()) {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(width, height, title)
	defer rl.CloseWindow()

	rl.SetExitKey(rl.KeyNull) // ESC is used to toggle the console, not to quit
	rl.SetTargetFPS(60)

	for !rl.WindowShouldClose() {
		update()

		rl.BeginDrawing()
		rl.ClearBackground(backgroundColor)
		draw()
		rl.EndDrawing()
	}
}
