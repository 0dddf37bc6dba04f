// Package node models the rows of the console as a lazily expanded tree.
//
// A Node is a closed sum type over Kind. Expandable nodes compute their
// children at most once; later calls return the same slice, so views that
// keep per-node state stay valid across layouts.
package node

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"reflect"
	"slices"
	"sync"

	"objconsole/internal/logger"

	"github.com/google/uuid"
)

var log = logger.Named("node")

// Kind tags the node variant.
type Kind int

const (
	KindBasic Kind = iota
	KindList
	KindBlockList
	KindObject
	KindModule
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindList:
		return "list"
	case KindBlockList:
		return "block_list"
	case KindObject:
		return "object"
	case KindModule:
		return "module"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DefaultMaxElements caps the Elements child of collection values.
const DefaultMaxElements = 256

// JPEGQuality is used for image payloads.
const JPEGQuality = 65

// Node is one element of the inspector tree.
type Node struct {
	id     string
	kind   Kind
	prefix string

	label     string
	labelSet  bool
	labelOnce sync.Once

	formatter   Formatter
	maxElements int

	// KindObject
	value reflect.Value
	// KindModule
	typ reflect.Type
	// KindList
	items []string
	// KindBlockList
	block func() []*Node
	// KindObject, KindModule
	producers []Producer
	// KindImage
	img         image.Image
	payloadOnce sync.Once
	payload     []byte
	payloadErr  error

	childrenOnce sync.Once
	children     []*Node
	computed     bool
}

// Option configures a node at construction.
type Option func(*Node)

// WithLabel replaces the formatter-derived label.
func WithLabel(label string) Option {
	return func(n *Node) {
		n.label = label
		n.labelSet = true
	}
}

// WithPrefix sets the secondary label (line number, prompt).
func WithPrefix(prefix string) Option {
	return func(n *Node) { n.prefix = prefix }
}

// WithFormatter sets the formatter for this node and every node derived from it.
func WithFormatter(f Formatter) Option {
	return func(n *Node) {
		if f != nil {
			n.formatter = f
		}
	}
}

// WithMaxElements caps collection expansion for this node and its descendants.
func WithMaxElements(max int) Option {
	return func(n *Node) {
		if max > 0 {
			n.maxElements = max
		}
	}
}

// WithProducers replaces the child producers of an object or module node.
func WithProducers(producers []Producer) Option {
	return func(n *Node) {
		n.producers = append([]Producer(nil), producers...)
	}
}

func newNode(kind Kind, opts []Option) *Node {
	n := &Node{
		id:          uuid.NewString(),
		kind:        kind,
		formatter:   DefaultFormatter{},
		maxElements: DefaultMaxElements,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// NewBasic returns a leaf with a fixed label.
func NewBasic(label string, opts ...Option) *Node {
	return newNode(KindBasic, append([]Option{WithLabel(label)}, opts...))
}

// NewBasicWithPrefix returns a leaf tagged with prefix.
func NewBasicWithPrefix(prefix, label string) *Node {
	return NewBasic(label, WithPrefix(prefix))
}

// NewList returns a node whose children are one Basic node per item.
func NewList(label string, items []string, opts ...Option) *Node {
	n := newNode(KindList, append([]Option{WithLabel(label)}, opts...))
	n.items = append([]string(nil), items...)
	return n
}

// NewBlockList returns a node whose children come from block, called at most once.
func NewBlockList(label string, block func() []*Node, opts ...Option) *Node {
	n := newNode(KindBlockList, append([]Option{WithLabel(label)}, opts...))
	n.block = block
	return n
}

// NewObject wraps an arbitrary Go value.
func NewObject(value any, opts ...Option) *Node {
	return newObjectValue(reflect.ValueOf(value), opts)
}

func newObjectValue(rv reflect.Value, opts []Option) *Node {
	n := newNode(KindObject, opts)
	n.value = rv
	if n.producers == nil {
		n.producers = ObjectProducers()
	}
	return n
}

// NewModule wraps a type.
func NewModule(t reflect.Type, opts ...Option) *Node {
	n := newNode(KindModule, opts)
	n.typ = t
	if n.producers == nil {
		n.producers = ModuleProducers()
	}
	return n
}

// NewImage wraps an image; its payload is JPEG data instead of text.
func NewImage(img image.Image, opts ...Option) *Node {
	n := newNode(KindImage, opts)
	n.img = img
	return n
}

// ForValue picks the variant for an evaluation result.
func ForValue(value any, opts ...Option) *Node {
	switch v := value.(type) {
	case reflect.Type:
		if v != nil {
			return NewModule(v, opts...)
		}
	case image.Image:
		if v != nil {
			return NewImage(v, opts...)
		}
	}
	return NewObject(value, opts...)
}

// ID is unique per instance and never part of equality.
func (n *Node) ID() string { return n.id }

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) Prefix() string { return n.prefix }

// Label returns the display text. Object labels are formatted on first use.
func (n *Node) Label() string {
	n.labelOnce.Do(func() {
		if n.labelSet {
			return
		}
		switch n.kind {
		case KindObject:
			n.label = n.Description()
		case KindModule:
			if n.typ != nil {
				n.label = n.typ.String()
			}
		case KindImage:
			if n.img != nil {
				b := n.img.Bounds()
				n.label = fmt.Sprintf("Image %dx%d", b.Dx(), b.Dy())
			}
		}
	})
	return n.label
}

func (n *Node) String() string { return n.Label() }

// Description is the formatter rendering of the wrapped value. A panicking
// formatter yields a placeholder instead.
func (n *Node) Description() (desc string) {
	if n.kind != KindObject {
		return n.label
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("format %s panicked: %v", n.typeName(), r)
			desc = fmt.Sprintf("<%s: format panicked: %v>", n.typeName(), r)
		}
	}()
	return n.formatter.Format(n.value)
}

// HasExplicitLabel reports whether the label was given rather than formatted.
func (n *Node) HasExplicitLabel() bool { return n.labelSet }

func (n *Node) typeName() string {
	if !n.value.IsValid() {
		return "nil"
	}
	return n.value.Type().String()
}

// Value returns the wrapped value of an object node.
func (n *Node) Value() reflect.Value { return n.value }

// Object returns the wrapped value when it can be exposed as an interface.
func (n *Node) Object() (any, bool) {
	if n.kind != KindObject || !n.value.IsValid() || !n.value.CanInterface() {
		return nil, false
	}
	return n.value.Interface(), true
}

// Type returns the wrapped type of a module node.
func (n *Node) Type() reflect.Type { return n.typ }

// Items returns the strings of a list node.
func (n *Node) Items() []string { return append([]string(nil), n.items...) }

// Image returns the image of an image node.
func (n *Node) Image() image.Image { return n.img }

// Size is the pixel size of an image node.
func (n *Node) Size() (width, height int) {
	if n.img == nil {
		return 0, 0
	}
	b := n.img.Bounds()
	return b.Dx(), b.Dy()
}

// Payload returns the JPEG encoding of an image node, computed once.
func (n *Node) Payload() ([]byte, error) {
	if n.kind != KindImage || n.img == nil {
		return nil, nil
	}
	n.payloadOnce.Do(func() {
		var buf bytes.Buffer
		n.payloadErr = jpeg.Encode(&buf, n.img, &jpeg.Options{Quality: JPEGQuality})
		n.payload = buf.Bytes()
	})
	return n.payload, n.payloadErr
}

// Expandable reports whether the node may have children. Object and module
// nodes are always expandable even when their children turn out empty.
func (n *Node) Expandable() bool {
	switch n.kind {
	case KindList, KindBlockList, KindObject, KindModule:
		return true
	default:
		return false
	}
}

// Children returns the memoized children.
func (n *Node) Children() []*Node {
	if !n.Expandable() {
		return nil
	}
	n.childrenOnce.Do(func() {
		n.children = n.computeChildren()
		n.computed = true
	})
	return n.children
}

// Computed reports whether Children has already run.
func (n *Node) Computed() bool {
	if !n.Expandable() {
		return true
	}
	return n.computed
}

func (n *Node) computeChildren() []*Node {
	switch n.kind {
	case KindList:
		out := make([]*Node, 0, len(n.items))
		for _, item := range n.items {
			out = append(out, NewBasic(item))
		}
		return out
	case KindBlockList:
		return n.runBlock()
	case KindObject, KindModule:
		return n.runProducers()
	}
	return nil
}

func (n *Node) runBlock() (out []*Node) {
	if n.block == nil {
		return []*Node{}
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("label", n.label).Warnf("children block panicked: %v", r)
			out = []*Node{}
		}
	}()
	children := n.block()
	if children == nil {
		return []*Node{}
	}
	return slices.DeleteFunc(slices.Clone(children), func(c *Node) bool { return c == nil })
}

func (n *Node) runProducers() []*Node {
	out := make([]*Node, 0, len(n.producers))
	for _, p := range n.producers {
		child, err := p.run(n)
		if err != nil {
			log.WithField("producer", p.Name).Warnf("skipping child of %s: %v", n.kind, err)
			continue
		}
		if child != nil {
			out = append(out, child)
		}
	}
	return out
}

// derive builds options so that children inherit formatting and limits.
func (n *Node) derive(opts ...Option) []Option {
	return append([]Option{WithFormatter(n.formatter), WithMaxElements(n.maxElements)}, opts...)
}
