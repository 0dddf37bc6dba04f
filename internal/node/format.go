package node

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mattn/go-runewidth"
)

// DefaultMaxLabelWidth bounds formatted labels, in terminal cells.
const DefaultMaxLabelWidth = 2048

// Formatter renders a value as a label. It receives a reflect.Value so that
// unexported struct fields can be described without Interface().
type Formatter interface {
	Format(v reflect.Value) string
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(v reflect.Value) string

func (f FormatterFunc) Format(v reflect.Value) string { return f(v) }

// DefaultFormatter prints scalars with %v, composites with %#v, and prefers
// String/Error methods when the value exposes them.
type DefaultFormatter struct {
	MaxWidth int
}

func (f DefaultFormatter) Format(v reflect.Value) string {
	limit := f.MaxWidth
	if limit <= 0 {
		limit = DefaultMaxLabelWidth
	}
	return runewidth.Truncate(formatValue(v), limit, "…")
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "nil"
		}
		return formatValue(v.Elem())
	}
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case error:
			if !isNilPointer(v) {
				return guarded(v, "Error", x.Error)
			}
		case fmt.Stringer:
			if !isNilPointer(v) {
				return guarded(v, "String", x.String)
			}
		}
	}
	switch v.Kind() {
	case reflect.String:
		return strconv.Quote(v.String())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v)
	case reflect.Pointer:
		if v.IsNil() {
			return fmt.Sprintf("(%s)(nil)", v.Type())
		}
	case reflect.Func:
		if v.IsNil() {
			return fmt.Sprintf("(%s)(nil)", v.Type())
		}
		return v.Type().String()
	case reflect.Chan:
		return fmt.Sprintf("%s (len %d, cap %d)", v.Type(), v.Len(), v.Cap())
	}
	return fmt.Sprintf("%#v", v)
}

func isNilPointer(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// guarded calls a value's own String/Error method; a panic becomes the label.
func guarded(v reflect.Value, method string, call func() string) (s string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("%s.%s panicked: %v", v.Type(), method, r)
			s = fmt.Sprintf("<%s: %s panicked: %v>", v.Type(), method, r)
		}
	}()
	return call()
}
