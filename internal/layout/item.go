package layout

import "objconsole/internal/node"

// Item is one row: a node, or the input sentinel of a root engine.
type Item struct {
	node  *node.Node
	owner *Engine
	input bool
	text  string

	expanded bool
	child    *Engine

	frame         Rect
	contentHeight int
}

func newItem(owner *Engine, n *node.Node) *Item {
	return &Item{node: n, owner: owner}
}

func (it *Item) Node() *node.Node { return it.node }

// Owner is the engine the item belongs to; nil once removed.
func (it *Item) Owner() *Engine { return it.owner }

// IsInput reports whether this is the input sentinel.
func (it *Item) IsInput() bool { return it.input }

func (it *Item) Expanded() bool { return it.expanded }

// Child returns the nested engine, which survives collapse.
func (it *Item) Child() *Engine { return it.child }

// Frame is relative to the owning engine.
func (it *Item) Frame() Rect { return it.frame }

// ContentHeight is the measured height of the label alone.
func (it *Item) ContentHeight() int { return it.contentHeight }

// Text is what gets measured: the node label, or the input text.
func (it *Item) Text() string {
	if it.input || it.node == nil {
		return it.text
	}
	return it.node.Label()
}

// HasDisclosure reports whether a disclosure control is drawn for this row.
func (it *Item) HasDisclosure() bool {
	return !it.input && it.node != nil && it.node.Expandable()
}

// ContentX is where the label starts, relative to the item.
func (it *Item) ContentX() int {
	if it.owner == nil {
		return DefaultMetrics.RootMargin()
	}
	return it.owner.margin()
}

// DisclosureFrame is where the disclosure glyph goes, relative to the item.
func (it *Item) DisclosureFrame() Rect {
	m := DefaultMetrics
	nested := false
	if it.owner != nil {
		m = it.owner.Metrics()
		nested = it.owner.Nested()
	}
	x := m.HorizontalMargin
	if nested {
		x = 0
	}
	return Rect{X: x, Y: 0, Width: m.DisclosureDiameter, Height: min(m.DisclosureDiameter, max(it.contentHeight, 1))}
}

// UpdateSize measures the label at the content width and, when expanded,
// lays out the child engine directly below it. It returns the item height.
func (it *Item) UpdateSize(width int) int {
	if it.owner == nil {
		return it.frame.Height
	}
	x := it.owner.margin()
	contentWidth := max(width-x, 1)
	h := it.owner.measure(it.Text(), contentWidth)
	if h < 1 {
		h = 1
	}
	it.contentHeight = h

	total := h
	if it.expanded && it.child != nil && it.child.attached {
		it.child.Relayout(0, contentWidth)
		it.child.frame.X = x
		it.child.frame.Y = h
		total += it.child.frame.Height
	}
	it.frame.Width = width
	it.frame.Height = total
	return total
}

// ToggleExpansion flips the row between collapsed and expanded. The child
// engine is built from the node's children on first expansion and only
// detached on collapse. It returns false when the row has no disclosure.
func (it *Item) ToggleExpansion() bool {
	if !it.HasDisclosure() {
		return false
	}
	it.expanded = !it.expanded
	if it.expanded {
		if it.child == nil {
			it.child = newNestedEngine(it, it.node.Children())
		}
		it.child.Attach(nil)
	} else if it.child != nil {
		it.child.Detach()
	}
	if it.owner != nil {
		it.owner.RelayoutAfterChildToggled(it)
	}
	return true
}

// SetExpanded toggles only when the state differs.
func (it *Item) SetExpanded(expanded bool) bool {
	if it.expanded == expanded {
		return false
	}
	return it.ToggleExpansion()
}

func (it *Item) release() {
	if it.child != nil {
		it.child.Detach()
	}
	it.owner = nil
}
