package layout

import (
	"fmt"
	"testing"

	"objconsole/internal/node"
)

type fakeMeasurer struct {
	calls  int
	height func(text string, maxWidth int) int
}

func (f *fakeMeasurer) Measure(text string, _ Font, maxWidth int) (int, int) {
	f.calls++
	h := 20
	if f.height != nil {
		h = f.height(text, maxWidth)
	}
	return min(len(text), maxWidth), h
}

var testMetrics = Metrics{HorizontalMargin: 3, DisclosureDiameter: 2}

func newRoot(m Measurer, width int, input bool) *Engine {
	e := NewEngine(Config{Measurer: m, Metrics: testMetrics, InputRow: input})
	e.Attach(nil)
	e.SetFrameSize(width, 0)
	return e
}

func origins(e *Engine) []Rect {
	var out []Rect
	for _, it := range e.Items() {
		out = append(out, it.Frame())
	}
	return out
}

func assertStacked(t *testing.T, e *Engine) {
	t.Helper()
	items := e.Items()
	if len(items) > 0 && items[0].Frame().Y != 0 {
		t.Fatalf("first item at y=%d, want 0", items[0].Frame().Y)
	}
	for i := 0; i+1 < len(items); i++ {
		if got, want := items[i+1].Frame().Y, items[i].Frame().Bottom(); got != want {
			t.Fatalf("item %d at y=%d, want %d", i+1, got, want)
		}
	}
	if len(items) > 0 {
		if got, want := e.TotalHeight(), items[len(items)-1].Frame().Bottom(); got != want {
			t.Fatalf("TotalHeight = %d, want %d", got, want)
		}
	}
}

func TestAppendThenLayout(t *testing.T) {
	m := &fakeMeasurer{height: func(_ string, maxWidth int) int {
		if maxWidth <= 392 {
			return 20
		}
		return 10
	}}
	e := newRoot(m, 400, false)
	it := e.AppendItem(node.NewBasic("hello"))

	if f := it.Frame(); f.X != 0 || f.Y != 0 || f.Height != 20 {
		t.Fatalf("item frame = %+v, want origin (0,0) height 20", f)
	}
	if e.TotalHeight() != 20 {
		t.Fatalf("TotalHeight = %d, want 20", e.TotalHeight())
	}
}

func TestRelayoutIsIdempotent(t *testing.T) {
	m := &fakeMeasurer{height: func(text string, _ int) int { return len(text) }}
	e := newRoot(m, 80, true)
	for _, s := range []string{"a", "bbb", "cc", "dddddd"} {
		e.AppendItem(node.NewBasic(s))
	}
	list := e.AppendItem(node.NewList("list", []string{"x", "yy"}))
	if !list.ToggleExpansion() {
		t.Fatalf("list row should expand")
	}

	e.Relayout(0, 80)
	first, firstTotal, firstFrame := origins(e), e.TotalHeight(), e.Frame()
	e.Relayout(0, 80)
	second := origins(e)

	if e.TotalHeight() != firstTotal || e.Frame() != firstFrame {
		t.Fatalf("total drifted: %d/%+v then %d/%+v", firstTotal, firstFrame, e.TotalHeight(), e.Frame())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("item %d moved: %+v -> %+v", i, first[i], second[i])
		}
	}
}

func TestMonotonicStacking(t *testing.T) {
	m := &fakeMeasurer{height: func(text string, _ int) int { return 1 + len(text)%4 }}
	e := newRoot(m, 60, true)
	for i := 0; i < 12; i++ {
		e.AppendItem(node.NewBasic(fmt.Sprintf("row %d %s", i, "xyz"[:i%3])))
		assertStacked(t, e)
	}
	e.SetFrameSize(30, 10)
	assertStacked(t, e)
}

func TestAppendDoesNotRemeasurePredecessors(t *testing.T) {
	m := &fakeMeasurer{}
	e := newRoot(m, 100, false)
	for i := 0; i < 5; i++ {
		e.AppendItem(node.NewBasic("x"))
	}
	before := m.calls
	e.AppendItem(node.NewBasic("y"))
	if got := m.calls - before; got != 1 {
		t.Fatalf("append measured %d items, want 1", got)
	}
}

func nestedTree() (*node.Node, *node.Node) {
	c := node.NewList("C", []string{"c1", "c2", "c3"})
	b := node.NewBlockList("B", func() []*node.Node { return []*node.Node{c} })
	a := node.NewBlockList("A", func() []*node.Node { return []*node.Node{b} })
	return a, c
}

func TestExpandCollapseRoundTrip(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 200, false)
	a, _ := nestedTree()
	item := e.AppendItem(a)
	e.AppendItem(node.NewBasic("below"))
	before := e.TotalHeight()

	if !item.ToggleExpansion() {
		t.Fatalf("expandable item refused to toggle")
	}
	if e.TotalHeight() <= before {
		t.Fatalf("expansion did not grow the list: %d -> %d", before, e.TotalHeight())
	}
	assertStacked(t, e)
	child := item.Child()

	item.ToggleExpansion()
	if e.TotalHeight() != before {
		t.Fatalf("TotalHeight after round trip = %d, want %d", e.TotalHeight(), before)
	}
	if child.Attached() {
		t.Fatalf("collapsed child engine should be detached")
	}

	item.ToggleExpansion()
	if item.Child() != child {
		t.Fatalf("re-expansion should reuse the cached child engine")
	}
}

func TestUpwardPropagation(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 300, false)
	a, _ := nestedTree()
	itemA := e.AppendItem(a)
	h0 := e.TotalHeight()

	itemA.ToggleExpansion()
	h1 := e.TotalHeight()
	itemB, ok := itemA.Child().ContentItem(0)
	if !ok {
		t.Fatalf("A has no child rows")
	}
	itemB.ToggleExpansion()
	h2 := e.TotalHeight()
	itemC, ok := itemB.Child().ContentItem(0)
	if !ok {
		t.Fatalf("B has no child rows")
	}
	itemC.ToggleExpansion()
	h3 := e.TotalHeight()

	if !(h0 < h1 && h1 < h2 && h2 < h3) {
		t.Fatalf("heights not increasing: %d %d %d %d", h0, h1, h2, h3)
	}
	if got, want := h3-h2, itemC.Child().TotalHeight(); got != want {
		t.Fatalf("H3-H2 = %d, want C child height %d", got, want)
	}
	if itemC.Child().TotalHeight() != 60 {
		t.Fatalf("C child height = %d, want 60", itemC.Child().TotalHeight())
	}
	if itemA.Frame().Height != e.TotalHeight() {
		t.Fatalf("A height %d does not match root total %d", itemA.Frame().Height, e.TotalHeight())
	}
}

func TestNestedMargins(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 300, false)
	a, _ := nestedTree()
	itemA := e.AppendItem(a)
	itemA.ToggleExpansion()

	rows := e.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ContentX != testMetrics.RootMargin() {
		t.Fatalf("root content x = %d, want %d", rows[0].ContentX, testMetrics.RootMargin())
	}
	if want := testMetrics.RootMargin() + testMetrics.NestedMargin(); rows[1].ContentX != want {
		t.Fatalf("nested content x = %d, want %d", rows[1].ContentX, want)
	}
	if rows[1].Depth != 1 || rows[1].Frame.Y != rows[0].Frame.Bottom() {
		t.Fatalf("nested row = %+v", rows[1])
	}
	if rows[0].Disclosure.X != testMetrics.HorizontalMargin {
		t.Fatalf("root disclosure x = %d", rows[0].Disclosure.X)
	}
	if rows[1].Disclosure.X != testMetrics.RootMargin() {
		t.Fatalf("nested disclosure x = %d", rows[1].Disclosure.X)
	}
}

func TestInputSentinelIndexing(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 100, true)
	first := e.AppendItem(node.NewBasic("first"))
	second := e.AppendItem(node.NewBasic("second"))

	items := e.Items()
	if len(items) != 3 || !items[2].IsInput() {
		t.Fatalf("input row should stay last")
	}
	if e.ContentLen() != 2 {
		t.Fatalf("ContentLen = %d, want 2", e.ContentLen())
	}
	if got, _ := e.ContentItem(0); got != first {
		t.Fatalf("ContentItem(0) is not the first appended row")
	}
	if got, _ := e.ContentItem(1); got != second {
		t.Fatalf("ContentItem(1) is not the second appended row")
	}
	if _, ok := e.ContentItem(2); ok {
		t.Fatalf("ContentItem must not address the input row")
	}
	if e.IndexOfContent(e.InputItem()) != -1 || e.IndexOfContent(second) != 1 {
		t.Fatalf("IndexOfContent mismatch")
	}
	if e.InputItem().Frame().Y != second.Frame().Bottom() {
		t.Fatalf("input row at y=%d, want %d", e.InputItem().Frame().Y, second.Frame().Bottom())
	}
	if e.InputItem().HasDisclosure() {
		t.Fatalf("input row has no disclosure")
	}

	e.Clear()
	if e.ContentLen() != 0 || len(e.Items()) != 1 {
		t.Fatalf("Clear should keep only the input row")
	}
	assertStacked(t, e)
}

func TestStaleOriginFallsBackToFullLayout(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 100, false)
	for i := 0; i < 3; i++ {
		e.AppendItem(node.NewBasic("x"))
	}
	e.items[0].frame.Y = 7
	e.items[1].frame.Y = 99

	e.Relayout(2, 100)
	assertStacked(t, e)
	if e.TotalHeight() != 60 {
		t.Fatalf("TotalHeight = %d, want 60", e.TotalHeight())
	}
}

func TestRemoveFirstItemRestacks(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 100, false)
	first := e.AppendItem(node.NewBasic("a"))
	e.AppendItem(node.NewBasic("b"))
	e.AppendItem(node.NewBasic("c"))

	if !e.RemoveItem(first) {
		t.Fatalf("RemoveItem failed")
	}
	assertStacked(t, e)
	if e.TotalHeight() != 40 || first.Owner() != nil {
		t.Fatalf("after removal total = %d", e.TotalHeight())
	}
}

func TestRemoveItemRestacksSuccessors(t *testing.T) {
	tests := []struct {
		name   string
		remove int
	}{
		{name: "middle", remove: 1},
		{name: "last before input", remove: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newRoot(&fakeMeasurer{}, 100, true)
			var items []*Item
			for _, text := range []string{"a", "b", "c"} {
				items = append(items, e.AppendItem(node.NewBasic(text)))
			}
			if !e.RemoveItem(items[tt.remove]) {
				t.Fatalf("RemoveItem failed")
			}
			assertStacked(t, e)
			// two content rows plus the input row
			if e.TotalHeight() != 60 {
				t.Fatalf("TotalHeight = %d, want 60", e.TotalHeight())
			}
			if got, want := e.InputItem().Frame().Y, 40; got != want {
				t.Fatalf("input row at y=%d, want %d", got, want)
			}
		})
	}
}

func TestRootAnchorsBottom(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 100, false)
	e.SetFrameSize(100, 100)
	e.AppendItem(node.NewBasic("a"))
	if f := e.Frame(); f.Y != 80 || f.Bottom() != 100 {
		t.Fatalf("frame after one row = %+v", f)
	}
	e.AppendItem(node.NewBasic("b"))
	if f := e.Frame(); f.Y != 60 || f.Bottom() != 100 {
		t.Fatalf("frame after two rows = %+v", f)
	}

	for i := 0; i < 2; i++ {
		e.SetFrameSize(100, 100)
		if f := e.Frame(); f.Y != 60 || f.Bottom() != 100 {
			t.Fatalf("frame after resize %d = %+v", i, f)
		}
	}
	e.SetFrameSize(100, 50)
	if f := e.Frame(); f.Y != 10 || f.Bottom() != 50 {
		t.Fatalf("frame after shrinking viewport = %+v", f)
	}
	e.SetFrameSize(100, 100)

	row, ok := e.HitTest(85)
	if !ok || row.Item.Text() != "b" {
		t.Fatalf("HitTest(85) = %+v, %v", row, ok)
	}
	e.Clear()
	if f := e.Frame(); f.Height != 0 || f.Y != 100 {
		t.Fatalf("frame after clear = %+v", f)
	}
	e.SetFrameSize(100, 70)
	if f := e.Frame(); f.Height != 0 || f.Y != 70 {
		t.Fatalf("empty frame after resize = %+v", f)
	}
}

func TestNestedEnginesDoNotAnchor(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 100, false)
	a, _ := nestedTree()
	item := e.AppendItem(a)
	item.ToggleExpansion()
	if f := item.Child().Frame(); f.Y != item.ContentHeight() {
		t.Fatalf("nested frame y = %d, want %d", f.Y, item.ContentHeight())
	}
}

type reentrantMeasurer struct {
	engine *Engine
	calls  int
}

func (r *reentrantMeasurer) Measure(string, Font, int) (int, int) {
	r.calls++
	if r.engine != nil {
		r.engine.SetFrameSize(r.engine.Width(), 999)
	}
	return 1, 10
}

func TestFrameAssignmentDuringLayoutDoesNotRecurse(t *testing.T) {
	m := &reentrantMeasurer{}
	e := newRoot(m, 50, false)
	e.AppendItem(node.NewBasic("a"))
	e.AppendItem(node.NewBasic("b"))

	m.engine = e
	m.calls = 0
	e.Relayout(0, 50)
	if m.calls != 2 {
		t.Fatalf("measure calls = %d, want 2", m.calls)
	}
	if e.TotalHeight() != 20 {
		t.Fatalf("TotalHeight = %d, want 20", e.TotalHeight())
	}
}

func TestDetachedEngineIsNoop(t *testing.T) {
	m := &fakeMeasurer{}
	e := NewEngine(Config{Measurer: m, Metrics: testMetrics})
	e.AppendItem(node.NewBasic("a"))
	e.Relayout(0, 100)
	if m.calls != 0 || e.TotalHeight() != 0 {
		t.Fatalf("detached engine laid out: calls=%d total=%d", m.calls, e.TotalHeight())
	}

	empty := newRoot(m, 100, false)
	empty.Relayout(0, 100)
	if m.calls != 0 {
		t.Fatalf("empty engine measured")
	}

	e.SetFrameSize(100, 0)
	e.Attach(nil)
	if e.TotalHeight() != 20 {
		t.Fatalf("attach should lay out, total = %d", e.TotalHeight())
	}
}

func TestSurfaceInvalidation(t *testing.T) {
	count := 0
	e := NewEngine(Config{Measurer: &fakeMeasurer{}, Metrics: testMetrics})
	e.Attach(SurfaceFunc(func() { count++ }))
	e.SetFrameSize(100, 0)
	base := count
	e.AppendItem(node.NewBasic("a"))
	if count != base+1 {
		t.Fatalf("invalidations = %d, want %d", count, base+1)
	}
	e.SetFont(Font{Family: "Mono", Size: 14})
	if count != base+2 {
		t.Fatalf("SetFont should relayout and invalidate")
	}
	e.SetFont(Font{Family: "Mono", Size: 14})
	if count != base+2 {
		t.Fatalf("unchanged font should not relayout")
	}
	if e.Font().Size != 14 {
		t.Fatalf("font not stored")
	}
}

func TestNonExpandableItemDoesNotToggle(t *testing.T) {
	e := newRoot(&fakeMeasurer{}, 100, false)
	item := e.AppendItem(node.NewBasic("leaf"))
	if item.ToggleExpansion() || item.Expanded() || item.HasDisclosure() {
		t.Fatalf("basic rows have no disclosure")
	}
	obj := e.AppendItem(node.NewObject(42))
	if !obj.SetExpanded(true) || obj.SetExpanded(true) {
		t.Fatalf("SetExpanded should toggle once")
	}
}
