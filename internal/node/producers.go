package node

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Producer names, in the order of ObjectProducers and ModuleProducers.
const (
	ProducerDescription    = "description"
	ProducerClass          = "class"
	ProducerKind           = "kind"
	ProducerAncestors      = "ancestors"
	ProducerPublicMethods  = "public_methods"
	ProducerPointerMethods = "pointer_methods"
	ProducerFields         = "fields"
	ProducerElements       = "elements"
)

// Producer builds one child of an object or module node. A nil node with a
// nil error means "nothing to show"; the child is dropped either way.
type Producer struct {
	Name  string
	Build func(n *Node) (*Node, error)
}

func (p Producer) run(n *Node) (child *Node, err error) {
	if p.Build == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			child, err = nil, fmt.Errorf("%s panicked: %v", p.Name, r)
		}
	}()
	return p.Build(n)
}

// ObjectProducers returns the default children of an object node.
func ObjectProducers() []Producer {
	return []Producer{
		{Name: ProducerDescription, Build: descriptionNode},
		{Name: ProducerClass, Build: classNode},
		{Name: ProducerPublicMethods, Build: publicMethodsNode},
		{Name: ProducerPointerMethods, Build: pointerMethodsNode},
		{Name: ProducerFields, Build: fieldsNode},
		{Name: ProducerElements, Build: elementsNode},
	}
}

// ModuleProducers returns the default children of a module node.
func ModuleProducers() []Producer {
	return []Producer{
		{Name: ProducerKind, Build: kindNode},
		{Name: ProducerAncestors, Build: ancestorsNode},
		{Name: ProducerPublicMethods, Build: typePublicMethodsNode},
		{Name: ProducerPointerMethods, Build: typePointerMethodsNode},
		{Name: ProducerFields, Build: typeFieldsNode},
	}
}

// ReplaceProducer returns a copy of producers with the named entry's Build swapped.
func ReplaceProducer(producers []Producer, name string, build func(n *Node) (*Node, error)) []Producer {
	out := append([]Producer(nil), producers...)
	for i := range out {
		if out[i].Name == name {
			out[i].Build = build
		}
	}
	return out
}

// --- object producers ---

func descriptionNode(n *Node) (*Node, error) {
	if !n.labelSet {
		return nil, nil
	}
	return NewList("Description", []string{n.Description()}, n.derive()...), nil
}

func classNode(n *Node) (*Node, error) {
	t := dynamicType(n.value)
	if t == nil {
		return nil, nil
	}
	return NewModule(t, n.derive(WithLabel("Type: "+t.String()))...), nil
}

func publicMethodsNode(n *Node) (*Node, error) {
	t := dynamicType(n.value)
	if t == nil {
		return nil, nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return methodList(n, "Public methods", methodSignatures(t, true)), nil
}

func pointerMethodsNode(n *Node) (*Node, error) {
	t := dynamicType(n.value)
	if t == nil {
		return nil, nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return methodList(n, "Pointer methods", pointerOnlySignatures(t)), nil
}

func fieldsNode(n *Node) (*Node, error) {
	v := indirect(n.value)
	if !v.IsValid() || v.Kind() != reflect.Struct || v.NumField() == 0 {
		return nil, nil
	}
	t := v.Type()
	return NewBlockList("Fields", func() []*Node {
		out := make([]*Node, 0, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			out = append(out, newObjectValue(v.Field(i), n.derive(WithLabel(t.Field(i).Name))))
		}
		return out
	}, n.derive()...), nil
}

func elementsNode(n *Node) (*Node, error) {
	v := indirect(n.value)
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		return NewBlockList(fmt.Sprintf("Elements (%d)", v.Len()), func() []*Node {
			limit := min(v.Len(), n.maxElements)
			out := make([]*Node, 0, limit+1)
			for i := 0; i < limit; i++ {
				out = append(out, newObjectValue(v.Index(i), n.derive(WithLabel(fmt.Sprintf("[%d]", i)))))
			}
			return appendRemainder(out, v.Len()-limit)
		}, n.derive()...), nil
	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		return NewBlockList(fmt.Sprintf("Elements (%d)", v.Len()), func() []*Node {
			keys := v.MapKeys()
			labels := make([]string, len(keys))
			for i, k := range keys {
				labels[i] = n.formatter.Format(k)
			}
			order := make([]int, len(keys))
			for i := range order {
				order[i] = i
			}
			sort.SliceStable(order, func(i, j int) bool { return labels[order[i]] < labels[order[j]] })

			limit := min(len(keys), n.maxElements)
			out := make([]*Node, 0, limit+1)
			for _, idx := range order[:limit] {
				out = append(out, newObjectValue(v.MapIndex(keys[idx]), n.derive(WithLabel(labels[idx]))))
			}
			return appendRemainder(out, len(keys)-limit)
		}, n.derive()...), nil
	}
	return nil, nil
}

func appendRemainder(out []*Node, rest int) []*Node {
	if rest > 0 {
		out = append(out, NewBasic(fmt.Sprintf("… %d more", rest)))
	}
	return out
}

// --- module producers ---

func kindNode(n *Node) (*Node, error) {
	if n.typ == nil {
		return nil, nil
	}
	return NewBasic("Kind: " + n.typ.Kind().String()), nil
}

func ancestorsNode(n *Node) (*Node, error) {
	types := embeddedTypes(n.typ)
	if len(types) == 0 {
		return nil, nil
	}
	return NewBlockList("Embedded", func() []*Node {
		out := make([]*Node, 0, len(types))
		for _, t := range types {
			out = append(out, NewModule(t, n.derive(WithLabel(t.String()))...))
		}
		return out
	}, n.derive()...), nil
}

func typePublicMethodsNode(n *Node) (*Node, error) {
	if n.typ == nil {
		return nil, nil
	}
	return methodList(n, "Public methods", methodSignatures(n.typ, n.typ.Kind() != reflect.Interface)), nil
}

func typePointerMethodsNode(n *Node) (*Node, error) {
	if n.typ == nil || n.typ.Kind() == reflect.Pointer {
		return nil, nil
	}
	return methodList(n, "Pointer methods", pointerOnlySignatures(n.typ)), nil
}

func typeFieldsNode(n *Node) (*Node, error) {
	if n.typ == nil || n.typ.Kind() != reflect.Struct || n.typ.NumField() == 0 {
		return nil, nil
	}
	items := make([]string, 0, n.typ.NumField())
	for i := 0; i < n.typ.NumField(); i++ {
		f := n.typ.Field(i)
		desc := f.Name + " " + f.Type.String()
		if f.Tag != "" {
			desc += " `" + string(f.Tag) + "`"
		}
		items = append(items, desc)
	}
	return NewList("Fields", items, n.derive()...), nil
}

// --- reflection helpers ---

func methodList(n *Node, label string, signatures []string) *Node {
	if len(signatures) == 0 {
		return nil
	}
	return NewBlockList(label, func() []*Node {
		out := make([]*Node, 0, len(signatures))
		for _, sig := range signatures {
			out = append(out, NewBasic(sig))
		}
		return out
	}, n.derive()...)
}

// dynamicType unwraps interfaces to the concrete type of v.
func dynamicType(v reflect.Value) reflect.Type {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	return v.Type()
}

// indirect follows interfaces and non-nil pointers.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() {
		switch v.Kind() {
		case reflect.Interface, reflect.Pointer:
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		default:
			return v
		}
	}
	return v
}

func methodSignatures(t reflect.Type, hasReceiver bool) []string {
	out := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		out = append(out, methodSignature(m, hasReceiver))
	}
	return out
}

// pointerOnlySignatures lists methods of *t that t itself does not have.
func pointerOnlySignatures(t reflect.Type) []string {
	if t.Kind() == reflect.Interface {
		return nil
	}
	own := make(map[string]bool, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		own[t.Method(i).Name] = true
	}
	pt := reflect.PointerTo(t)
	var out []string
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if own[m.Name] || !m.IsExported() {
			continue
		}
		out = append(out, methodSignature(m, true))
	}
	return out
}

func methodSignature(m reflect.Method, hasReceiver bool) string {
	ft := m.Type
	start := 0
	if hasReceiver {
		start = 1
	}
	in := make([]string, 0, ft.NumIn())
	for i := start; i < ft.NumIn(); i++ {
		arg := ft.In(i).String()
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			arg = "..." + ft.In(i).Elem().String()
		}
		in = append(in, arg)
	}
	out := make([]string, 0, ft.NumOut())
	for i := 0; i < ft.NumOut(); i++ {
		out = append(out, ft.Out(i).String())
	}
	sig := m.Name + "(" + strings.Join(in, ", ") + ")"
	switch len(out) {
	case 0:
	case 1:
		sig += " " + out[0]
	default:
		sig += " (" + strings.Join(out, ", ") + ")"
	}
	return sig
}

// embeddedTypes is the Go stand-in for an ancestor chain: embedded struct
// fields, or the element/key types of composite types.
func embeddedTypes(t reflect.Type) []reflect.Type {
	if t == nil {
		return nil
	}
	switch t.Kind() {
	case reflect.Struct:
		var out []reflect.Type
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.Anonymous {
				out = append(out, f.Type)
			}
		}
		return out
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan:
		return []reflect.Type{t.Elem()}
	case reflect.Map:
		return []reflect.Type{t.Key(), t.Elem()}
	}
	return nil
}
