package tui

import (
	"objconsole/internal/layout"
	"objconsole/internal/tui/render"
)

// CellMeasurer measures labels in terminal cells. The font is ignored: every
// cell is the same size in a terminal.
type CellMeasurer struct{}

func (CellMeasurer) Measure(text string, _ layout.Font, maxWidth int) (int, int) {
	lines := render.WrapText(text, maxWidth)
	return render.Widest(lines), len(lines)
}
