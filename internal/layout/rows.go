package layout

// Row is a visible item in absolute coordinates.
type Row struct {
	Item  *Item
	Depth int
	// Frame covers the label lines only, not the expanded children.
	Frame Rect
	// ContentX is the absolute x of the label.
	ContentX int
	// Disclosure is the absolute frame of the disclosure glyph; zero if none.
	Disclosure Rect
}

// Rows flattens the visible tree depth-first.
func (e *Engine) Rows() []Row {
	var out []Row
	e.appendRows(&out, e.frame.X, e.frame.Y, 0)
	return out
}

func (e *Engine) appendRows(out *[]Row, ox, oy, depth int) {
	for _, it := range e.items {
		y := oy + it.frame.Y
		row := Row{
			Item:     it,
			Depth:    depth,
			Frame:    Rect{X: ox, Y: y, Width: it.frame.Width, Height: it.contentHeight},
			ContentX: ox + it.ContentX(),
		}
		if it.HasDisclosure() {
			d := it.DisclosureFrame()
			row.Disclosure = Rect{X: ox + d.X, Y: y + d.Y, Width: d.Width, Height: d.Height}
		}
		*out = append(*out, row)
		if it.expanded && it.child != nil && it.child.attached {
			it.child.appendRows(out, ox+it.child.frame.X, y+it.child.frame.Y, depth+1)
		}
	}
}

// HitTest returns the visible row whose label covers absolute y.
func (e *Engine) HitTest(y int) (Row, bool) {
	for _, row := range e.Rows() {
		if y >= row.Frame.Y && y < row.Frame.Bottom() {
			return row, true
		}
	}
	return Row{}, false
}
