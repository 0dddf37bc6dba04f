package node

import (
	"errors"
	"image"
	"reflect"
	"strings"
	"testing"
)

type point struct {
	X int
	y int
}

func (p point) Dist(q point) float64 { return float64((p.X-q.X)*(p.X-q.X) + (p.y-q.y)*(p.y-q.y)) }

func (p *point) Scale(f float64) {
	p.X = int(float64(p.X) * f)
	p.y = int(float64(p.y) * f)
}

type labelled struct {
	point
	Name string
}

func childLabels(n *Node) []string {
	var out []string
	for _, c := range n.Children() {
		out = append(out, c.Label())
	}
	return out
}

func childByLabel(n *Node, label string) *Node {
	for _, c := range n.Children() {
		if c.Label() == label {
			return c
		}
	}
	return nil
}

func TestBasicNodeEquality(t *testing.T) {
	cases := []struct {
		a, b *Node
		want bool
	}{
		{NewBasic("hello"), NewBasic("hello"), true},
		{NewBasic("hello"), NewBasic("world"), false},
		{NewBasicWithPrefix("001>", "x"), NewBasicWithPrefix("001>", "x"), true},
		{NewBasicWithPrefix("001>", "x"), NewBasicWithPrefix("002>", "x"), false},
		{NewBasic("x"), NewList("x", nil), false},
	}
	for i, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Fatalf("case %d: Equal(%q, %q) = %v, want %v", i, tc.a.Label(), tc.b.Label(), got, tc.want)
		}
	}
	a, b := NewBasic("same"), NewBasic("same")
	if a.ID() == b.ID() {
		t.Fatalf("ids should be unique per instance")
	}
}

func TestListNodeEquality(t *testing.T) {
	a := NewList("letters", []string{"a", "b"})
	b := NewList("letters", []string{"a", "b"})
	if !Equal(a, b) {
		t.Fatalf("expected equal list nodes")
	}
	if a.Computed() || b.Computed() {
		t.Fatalf("Equal must not force children")
	}
	if Equal(a, NewList("letters", []string{"a", "c"})) {
		t.Fatalf("lists with different items compared equal")
	}
	if got := childLabels(a); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("children = %v", got)
	}
	if !EqualDeep(a, b, 2) {
		t.Fatalf("expected deep equality")
	}
}

func TestBlockListMemoizesChildren(t *testing.T) {
	calls := 0
	n := NewBlockList("fresh", func() []*Node {
		calls++
		return []*Node{NewBasic("one"), nil, NewBasic("two")}
	})
	if n.Computed() {
		t.Fatalf("children computed at construction")
	}
	first := n.Children()
	second := n.Children()
	if calls != 1 {
		t.Fatalf("producer called %d times, want 1", calls)
	}
	if len(first) != 2 {
		t.Fatalf("nil children should be dropped, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] || !Equal(first[i], second[i]) {
			t.Fatalf("child %d changed between calls", i)
		}
	}
}

func TestBlockListPanicYieldsEmpty(t *testing.T) {
	n := NewBlockList("boom", func() []*Node { panic("nope") })
	if got := n.Children(); len(got) != 0 {
		t.Fatalf("children = %v, want empty", got)
	}
}

func TestObjectSkipsFailingProducer(t *testing.T) {
	for name, build := range map[string]func(*Node) (*Node, error){
		"panic": func(*Node) (*Node, error) { panic("inaccessible") },
		"error": func(*Node) (*Node, error) { return nil, errors.New("inaccessible") },
	} {
		t.Run(name, func(t *testing.T) {
			producers := ReplaceProducer(ObjectProducers(), ProducerPublicMethods, build)
			n := NewObject(point{X: 1}, WithProducers(producers))
			labels := childLabels(n)
			for _, l := range labels {
				if l == "Public methods" {
					t.Fatalf("failing producer should be omitted: %v", labels)
				}
			}
			if childByLabel(n, "Type: node.point") == nil {
				t.Fatalf("other producers should still run: %v", labels)
			}
			if childByLabel(n, "Pointer methods") == nil {
				t.Fatalf("pointer methods missing: %v", labels)
			}
		})
	}
}

func TestObjectChildren(t *testing.T) {
	n := NewObject(&point{X: 3, y: 4})
	if n.HasExplicitLabel() {
		t.Fatalf("label should be formatted")
	}
	if childByLabel(n, "Description") != nil {
		t.Fatalf("description child only exists for explicitly labelled objects")
	}

	public := childByLabel(n, "Public methods")
	if public == nil {
		t.Fatalf("no public methods child: %v", childLabels(n))
	}
	if got := childLabels(public); !reflect.DeepEqual(got, []string{"Dist(node.point) float64"}) {
		t.Fatalf("public methods = %v", got)
	}
	ptr := childByLabel(n, "Pointer methods")
	if ptr == nil {
		t.Fatalf("no pointer methods child: %v", childLabels(n))
	}
	if got := childLabels(ptr); !reflect.DeepEqual(got, []string{"Scale(float64)"}) {
		t.Fatalf("pointer methods = %v", got)
	}

	fields := childByLabel(n, "Fields")
	if fields == nil {
		t.Fatalf("no fields child: %v", childLabels(n))
	}
	if got := childLabels(fields); !reflect.DeepEqual(got, []string{"X", "y"}) {
		t.Fatalf("fields = %v", got)
	}
	y := fields.Children()[1]
	if got := y.Description(); got != "4" {
		t.Fatalf("unexported field description = %q, want 4", got)
	}
	desc := childByLabel(y, "Description")
	if desc == nil || !reflect.DeepEqual(desc.Items(), []string{"4"}) {
		t.Fatalf("labelled field should carry a description child: %v", childLabels(y))
	}
}

func TestObjectWithoutContentDropsProducers(t *testing.T) {
	n := NewObject(42)
	if got := childLabels(n); !reflect.DeepEqual(got, []string{"Type: int"}) {
		t.Fatalf("children of 42 = %v", got)
	}
	if n.Label() != "42" {
		t.Fatalf("label = %q", n.Label())
	}
	if !n.Expandable() {
		t.Fatalf("object nodes are always expandable")
	}

	nilNode := NewObject(nil)
	if nilNode.Label() != "nil" || len(nilNode.Children()) != 0 {
		t.Fatalf("nil object = %q / %v", nilNode.Label(), childLabels(nilNode))
	}
}

func TestObjectEquality(t *testing.T) {
	p := &point{X: 1}
	cases := []struct {
		name string
		a, b *Node
		want bool
	}{
		{"ints", NewObject(42), NewObject(42), true},
		{"different ints", NewObject(42), NewObject(43), false},
		{"same pointer", NewObject(p), NewObject(p), true},
		{"equal pointees", NewObject(&point{X: 1}), NewObject(&point{X: 1}), false},
		{"structs", NewObject(point{X: 1, y: 2}), NewObject(point{X: 1, y: 2}), true},
		{"labels", NewObject(42, WithLabel("a")), NewObject(42, WithLabel("b")), false},
	}
	for _, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s: Equal = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestElementsAreCapped(t *testing.T) {
	n := NewObject([]int{10, 20, 30, 40}, WithMaxElements(2))
	elems := childByLabel(n, "Elements (4)")
	if elems == nil {
		t.Fatalf("no elements child: %v", childLabels(n))
	}
	if got := childLabels(elems); !reflect.DeepEqual(got, []string{"[0]", "[1]", "… 2 more"}) {
		t.Fatalf("elements = %v", got)
	}
	if got := elems.Children()[1].Description(); got != "20" {
		t.Fatalf("element description = %q", got)
	}
}

func TestMapElementsSorted(t *testing.T) {
	n := NewObject(map[string]int{"b": 2, "a": 1})
	elems := childByLabel(n, "Elements (2)")
	if elems == nil {
		t.Fatalf("no elements child: %v", childLabels(n))
	}
	if got := childLabels(elems); !reflect.DeepEqual(got, []string{`"a"`, `"b"`}) {
		t.Fatalf("map elements = %v", got)
	}
}

func TestModuleChildren(t *testing.T) {
	n := NewModule(reflect.TypeOf(labelled{}))
	if n.Label() != "node.labelled" {
		t.Fatalf("label = %q", n.Label())
	}
	labels := childLabels(n)
	if len(labels) == 0 || labels[0] != "Kind: struct" {
		t.Fatalf("children = %v", labels)
	}
	embedded := childByLabel(n, "Embedded")
	if embedded == nil {
		t.Fatalf("no embedded child: %v", labels)
	}
	if got := childLabels(embedded); !reflect.DeepEqual(got, []string{"node.point"}) {
		t.Fatalf("embedded = %v", got)
	}
	if embedded.Children()[0].Kind() != KindModule {
		t.Fatalf("embedded types should be modules")
	}
	fields := childByLabel(n, "Fields")
	if fields == nil || !reflect.DeepEqual(fields.Items(), []string{"point node.point", "Name string"}) {
		t.Fatalf("fields = %v", childLabels(n))
	}
	if !Equal(n, NewModule(reflect.TypeOf(labelled{}))) {
		t.Fatalf("modules of the same type should be equal")
	}
}

func TestForValueDispatch(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	cases := []struct {
		value any
		want  Kind
	}{
		{42, KindObject},
		{nil, KindObject},
		{reflect.TypeOf(""), KindModule},
		{img, KindImage},
	}
	for _, tc := range cases {
		if got := ForValue(tc.value).Kind(); got != tc.want {
			t.Fatalf("ForValue(%T) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestImagePayload(t *testing.T) {
	n := NewImage(image.NewRGBA(image.Rect(0, 0, 3, 2)))
	if n.Label() != "Image 3x2" {
		t.Fatalf("label = %q", n.Label())
	}
	if n.Expandable() {
		t.Fatalf("images are not expandable")
	}
	payload, err := n.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if len(payload) < 2 || payload[0] != 0xFF || payload[1] != 0xD8 {
		t.Fatalf("payload is not JPEG: % x", payload[:min(4, len(payload))])
	}
	if w, h := n.Size(); w != 3 || h != 2 {
		t.Fatalf("Size = %dx%d", w, h)
	}
}

func TestDefaultFormatter(t *testing.T) {
	cases := []struct {
		value any
		want  string
	}{
		{42, "42"},
		{"hi", `"hi"`},
		{nil, "nil"},
		{errors.New("boom"), "boom"},
		{[]int{1, 2}, "[]int{1, 2}"},
		{(*point)(nil), "(*node.point)(nil)"},
	}
	for _, tc := range cases {
		if got := (DefaultFormatter{}).Format(reflect.ValueOf(tc.value)); got != tc.want {
			t.Fatalf("Format(%#v) = %q, want %q", tc.value, got, tc.want)
		}
	}
	long := (DefaultFormatter{MaxWidth: 5}).Format(reflect.ValueOf(strings.Repeat("x", 20)))
	if !strings.HasSuffix(long, "…") {
		t.Fatalf("long value not truncated: %q", long)
	}
}

type brokenStringer struct{ n *int }

func (b brokenStringer) String() string { return strings.Repeat("x", *b.n) }

type brokenError struct{ msg *string }

func (b brokenError) Error() string { return *b.msg }

func TestPanickingMethodsDoNotEscapeLabel(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{
			name: "String",
			node: NewObject(brokenStringer{}),
			want: "<node.brokenStringer: String panicked:",
		},
		{
			name: "Error",
			node: NewObject(brokenError{}),
			want: "<node.brokenError: Error panicked:",
		},
		{
			name: "formatter",
			node: NewObject(3, WithFormatter(FormatterFunc(func(reflect.Value) string { panic("boom") }))),
			want: "<int: format panicked: boom>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Label(); !strings.HasPrefix(got, tt.want) {
				t.Fatalf("Label() = %q, want prefix %q", got, tt.want)
			}
			if got := tt.node.Description(); !strings.HasPrefix(got, tt.want) {
				t.Fatalf("Description() = %q, want prefix %q", got, tt.want)
			}
			if len(tt.node.Children()) == 0 {
				t.Fatalf("children should still be produced")
			}
		})
	}
}
