package node

import (
	"fmt"
	"reflect"
	"slices"
)

// Equal reports structural equality: same variant, prefix and label, and for
// object/module/list nodes the same underlying value. Ids are ignored.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind || a.prefix != b.prefix || a.Label() != b.Label() {
		return false
	}
	switch a.kind {
	case KindList:
		return slices.Equal(a.items, b.items)
	case KindObject:
		return sameValue(a.value, b.value)
	case KindModule:
		return a.typ == b.typ
	case KindImage:
		return sameValue(reflect.ValueOf(a.img), reflect.ValueOf(b.img))
	}
	return true
}

// EqualDeep is Equal applied to the first depth levels of children.
// Children are computed on both sides as a side effect.
func EqualDeep(a, b *Node, depth int) bool {
	if !Equal(a, b) {
		return false
	}
	if depth <= 0 || a == nil || a == b {
		return true
	}
	ac, bc := a.Children(), b.Children()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !EqualDeep(ac[i], bc[i], depth-1) {
			return false
		}
	}
	return true
}

// sameValue compares reference kinds by identity and everything else by value.
func sameValue(a, b reflect.Value) (same bool) {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return sameValue(a.Elem(), b.Elem())
	}
	if a.Comparable() {
		defer func() {
			if recover() != nil {
				same = fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
			}
		}()
		return a.Equal(b)
	}
	return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
}
