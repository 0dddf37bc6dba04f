package layout

import (
	"objconsole/internal/logger"
	"objconsole/internal/node"
)

var log = logger.Named("layout")

// Config configures a root engine. Nested engines inherit everything from
// their root through the host chain.
type Config struct {
	Measurer Measurer
	Font     Font
	Metrics  Metrics
	// InputRow adds the input sentinel as the last item.
	InputRow bool
	// InputText is measured for the sentinel's height; empty measures as one line.
	InputText string
}

// Engine is a vertical stack of items. The root engine belongs to the console;
// nested engines belong to an expanded Item.
type Engine struct {
	items []*Item
	input *Item

	host     *Item
	attached bool
	surface  Surface

	measurer Measurer
	font     Font
	metrics  Metrics

	frame  Rect
	width  int
	laying bool
	// anchor 是根视图底边的 y，由外部 SetFrameSize 的高度决定。
	anchor int
}

// NewEngine creates a root engine. It lays nothing out until attached.
func NewEngine(cfg Config) *Engine {
	if cfg.Measurer == nil {
		cfg.Measurer = MeasurerFunc(func(string, Font, int) (int, int) { return 0, 1 })
	}
	if cfg.Metrics == (Metrics{}) {
		cfg.Metrics = DefaultMetrics
	}
	e := &Engine{
		measurer: cfg.Measurer,
		font:     cfg.Font,
		metrics:  cfg.Metrics,
	}
	if cfg.InputRow {
		e.input = &Item{owner: e, input: true, text: cfg.InputText}
		e.items = []*Item{e.input}
	}
	return e
}

func newNestedEngine(host *Item, nodes []*node.Node) *Engine {
	e := &Engine{host: host}
	for _, n := range nodes {
		e.items = append(e.items, newItem(e, n))
	}
	return e
}

// Nested reports whether the engine is owned by an Item.
func (e *Engine) Nested() bool { return e.host != nil }


func (e *Engine) Attached() bool { return e.attached }

// Frame is relative to the host item for nested engines, absolute for the root.
func (e *Engine) Frame() Rect { return e.frame }

// TotalHeight is the sum of item heights after the last layout pass.
func (e *Engine) TotalHeight() int { return e.frame.Height }

// Width is the width of the last layout pass.
func (e *Engine) Width() int { return e.width }

func (e *Engine) root() *Engine {
	r := e
	for r.host != nil && r.host.owner != nil {
		r = r.host.owner
	}
	return r
}

func (e *Engine) Font() Font       { return e.root().font }
func (e *Engine) Metrics() Metrics { return e.root().metrics }

func (e *Engine) margin() int {
	if e.Nested() {
		return e.Metrics().NestedMargin()
	}
	return e.Metrics().RootMargin()
}

func (e *Engine) measure(text string, maxWidth int) int {
	r := e.root()
	if r.measurer == nil {
		return 1
	}
	_, h := r.measurer.Measure(text, r.font, maxWidth)
	return h
}

// Attach connects the engine to a surface and lays it out at its current width.
// Nested engines are attached by their host item and pass a nil surface.
func (e *Engine) Attach(surface Surface) {
	e.attached = true
	e.surface = surface
	if !e.Nested() {
		e.Relayout(0, e.width)
	}
}

// Detach disconnects the engine. Items and cached nodes are kept.
func (e *Engine) Detach() {
	if !e.attached {
		return
	}
	e.attached = false
	if s := e.surface; s != nil {
		e.surface = nil
		s.Invalidate()
	}
}

// SetFont changes the root font and lays everything out again.
func (e *Engine) SetFont(font Font) {
	r := e.root()
	if r.font == font {
		return
	}
	r.font = font
	r.Relayout(0, r.width)
}

// SetItems replaces the content items. The input row, if any, stays last.
func (e *Engine) SetItems(nodes []*node.Node) {
	items := make([]*Item, 0, len(nodes)+1)
	for _, n := range nodes {
		if n != nil {
			items = append(items, newItem(e, n))
		}
	}
	for _, old := range e.items {
		if old != e.input {
			old.release()
		}
	}
	if e.input != nil {
		e.input.frame.Y = 0
		items = append(items, e.input)
	}
	e.items = items
	if len(e.items) == 0 {
		e.collapseFrame()
		return
	}
	e.Relayout(0, e.width)
}

// Clear removes all content items.
func (e *Engine) Clear() { e.SetItems(nil) }

// AppendItem adds a row after the last content item and lays out from there;
// items above it do not move.
func (e *Engine) AppendItem(n *node.Node) *Item {
	it := newItem(e, n)
	idx := len(e.items)
	if e.input != nil {
		idx--
	}
	e.items = append(e.items, nil)
	copy(e.items[idx+1:], e.items[idx:])
	e.items[idx] = it
	if idx > 0 {
		prev := e.items[idx-1]
		it.frame.Y = prev.frame.Bottom()
	}
	e.Relayout(idx, e.width)
	return it
}

// RemoveItem drops a content item and lays out from where it was.
func (e *Engine) RemoveItem(it *Item) bool {
	idx := e.indexOf(it)
	if idx < 0 || it == e.input {
		return false
	}
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	if idx < len(e.items) {
		e.items[idx].frame.Y = it.frame.Y
	}
	it.release()
	if idx >= len(e.items) {
		idx = len(e.items) - 1
	}
	if idx < 0 {
		e.collapseFrame()
		return true
	}
	e.Relayout(idx, e.width)
	return true
}

// Relayout recomputes item heights from start and restacks them. Items before
// start keep their origins unless item 0 is no longer at y=0, in which case
// everything is laid out again.
func (e *Engine) Relayout(start, width int) {
	if !e.attached || len(e.items) == 0 || e.laying {
		return
	}
	if start < 0 || start >= len(e.items) {
		start = 0
	}
	if start > 0 && e.items[0].frame.Y != 0 {
		log.Debugf("stale origin %d at item 0, full relayout", e.items[0].frame.Y)
		start = 0
	}
	if start > 0 && width != e.width {
		start = 0
	}

	e.laying = true
	y := 0
	if start > 0 {
		y = e.items[start].frame.Y
	}
	for _, it := range e.items[start:] {
		h := it.UpdateSize(width)
		it.frame.X = 0
		it.frame.Y = y
		y += h
	}
	e.width = width
	e.SetFrameSize(width, y)
	if !e.Nested() {
		e.frame.Y = e.anchor - y
	}
	e.laying = false

	if !e.Nested() {
		e.invalidate()
	}
}

// SetFrameSize assigns the frame size. Outside a layout pass it relays out at
// the new width; inside one it only records the size. On the root the height
// is the viewport height and fixes the bottom edge the content hangs from.
func (e *Engine) SetFrameSize(width, height int) {
	e.frame.Width = width
	e.frame.Height = height
	if e.laying {
		return
	}
	if !e.Nested() {
		e.anchor = height
		if len(e.items) == 0 {
			e.frame.Y, e.frame.Height = height, 0
		}
	}
	e.width = width
	e.Relayout(0, width)
}

// RelayoutAfterChildToggled relays out from it and then walks the host chain
// so that every enclosing list restacks below the changed row.
func (e *Engine) RelayoutAfterChildToggled(it *Item) {
	if idx := e.indexOf(it); idx >= 0 {
		e.Relayout(idx, e.width)
	}
	if e.host != nil && e.host.owner != nil {
		e.host.owner.RelayoutAfterChildToggled(e.host)
	}
}

// collapseFrame empties the frame; the root keeps its bottom edge in place.
func (e *Engine) collapseFrame() {
	if !e.Nested() {
		e.frame.Y = e.anchor
	}
	e.frame.Height = 0
	e.invalidate()
}

func (e *Engine) invalidate() {
	r := e.root()
	if r.attached && r.surface != nil {
		r.surface.Invalidate()
	}
}

func (e *Engine) indexOf(it *Item) int {
	for i, candidate := range e.items {
		if candidate == it {
			return i
		}
	}
	return -1
}

// Items returns every item including the input sentinel.
func (e *Engine) Items() []*Item { return append([]*Item(nil), e.items...) }

// InputItem returns the input sentinel, or nil.
func (e *Engine) InputItem() *Item { return e.input }

// ContentItems returns the items without the input sentinel.
func (e *Engine) ContentItems() []*Item {
	out := make([]*Item, 0, len(e.items))
	for _, it := range e.items {
		if it != e.input {
			out = append(out, it)
		}
	}
	return out
}

// ContentLen is the number of content items.
func (e *Engine) ContentLen() int {
	if e.input != nil {
		return len(e.items) - 1
	}
	return len(e.items)
}

// ContentItem addresses content rows 0-based, excluding the input sentinel.
func (e *Engine) ContentItem(i int) (*Item, bool) {
	if i < 0 || i >= e.ContentLen() {
		return nil, false
	}
	return e.items[i], true
}

// IndexOfContent is the inverse of ContentItem; -1 for the sentinel or strangers.
func (e *Engine) IndexOfContent(it *Item) int {
	if it == nil || it == e.input {
		return -1
	}
	return e.indexOf(it)
}

// SetInputText changes the text measured for the input sentinel.
func (e *Engine) SetInputText(text string) {
	if e.input == nil || e.input.text == text {
		return
	}
	e.input.text = text
	e.Relayout(len(e.items)-1, e.width)
}
