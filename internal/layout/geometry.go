// Package layout stacks console rows into variable-height, nested lists.
//
// Geometry is in terminal cells with the origin at the top-left and y growing
// downward. Item frames are relative to their owning engine; a nested engine's
// frame is relative to the item that hosts it; the root frame is absolute.
package layout

// Font is passed through to the Measurer untouched.
type Font struct {
	Family string
	Size   int
}

// Measurer returns the wrapped size of text at the given maximum width.
// Implementations must be deterministic for fixed inputs.
type Measurer interface {
	Measure(text string, font Font, maxWidth int) (width, height int)
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(text string, font Font, maxWidth int) (int, int)

func (f MeasurerFunc) Measure(text string, font Font, maxWidth int) (int, int) {
	return f(text, font, maxWidth)
}

// Surface receives a redraw signal after each completed root layout pass.
type Surface interface {
	Invalidate()
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func()

func (f SurfaceFunc) Invalidate() { f() }

// Metrics holds the two indentation constants.
type Metrics struct {
	HorizontalMargin   int
	DisclosureDiameter int
}

// DefaultMetrics suits a terminal: one-cell margin, two-cell disclosure glyph.
var DefaultMetrics = Metrics{HorizontalMargin: 1, DisclosureDiameter: 2}

// RootMargin is the content x of a root-level item.
func (m Metrics) RootMargin() int { return m.DisclosureDiameter + 2*m.HorizontalMargin }

// NestedMargin is the content x of an item inside a nested list.
func (m Metrics) NestedMargin() int { return m.DisclosureDiameter + m.HorizontalMargin }

// Rect is a frame in cells.
type Rect struct {
	X, Y          int
	Width, Height int
}

func (r Rect) Bottom() int { return r.Y + r.Height }

// Contains reports whether (x, y) falls inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}
