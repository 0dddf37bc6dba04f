// Package console binds evaluation events to rows of the root layout engine
// and user input back to the evaluator.
//
// A Console is not safe for concurrent use. Worker events must be delivered
// through Handle on the goroutine that owns the console.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"objconsole/internal/eval"
	"objconsole/internal/layout"
	"objconsole/internal/logger"
	"objconsole/internal/node"
)

var log = logger.Named("console")

// Evaluator accepts one line at a time and reports back through events.
type Evaluator interface {
	Submit(ctx context.Context, line string) (string, error)
}

// Beeper signals a refused history move.
type Beeper interface {
	Beep()
}

// BeeperFunc adapts a function to Beeper.
type BeeperFunc func()

func (f BeeperFunc) Beep() { f() }

// Config configures a Console. Layout.InputRow is forced on.
type Config struct {
	Layout      layout.Config
	Evaluator   Evaluator
	Beeper      Beeper
	Formatter   node.Formatter
	MaxElements int
	// Names supplies completion candidates besides history.
	Names func() []string
}

// Console owns the root engine and the id→node registry.
type Console struct {
	engine    *layout.Engine
	evaluator Evaluator
	beeper    Beeper
	names     func() []string
	nodeOpts  []node.Option

	history  history
	registry map[string]*node.Node
	block    map[string]bool

	input      string
	line       int
	continuing bool
	enabled    bool
	pending    string
}

// New creates a console with an empty root engine.
func New(cfg Config) *Console {
	lc := cfg.Layout
	lc.InputRow = true
	c := &Console{
		engine:    layout.NewEngine(lc),
		evaluator: cfg.Evaluator,
		beeper:    cfg.Beeper,
		names:     cfg.Names,
		registry:  map[string]*node.Node{},
		block:     map[string]bool{},
		line:      1,
		enabled:   true,
	}
	if cfg.Formatter != nil {
		c.nodeOpts = append(c.nodeOpts, node.WithFormatter(cfg.Formatter))
	}
	if cfg.MaxElements > 0 {
		c.nodeOpts = append(c.nodeOpts, node.WithMaxElements(cfg.MaxElements))
	}
	c.syncInputRow()
	return c
}

// Engine returns the root layout engine.
func (c *Console) Engine() *layout.Engine { return c.engine }

// Attach connects the root engine to a rendering surface.
func (c *Console) Attach(surface layout.Surface) { c.engine.Attach(surface) }

// Prompt is the prefix for the next submitted line.
func (c *Console) Prompt() string {
	if c.continuing {
		return fmt.Sprintf("%03d*", c.line)
	}
	return fmt.Sprintf("%03d>", c.line)
}

// Continuing reports whether a multi-line statement is open.
func (c *Console) Continuing() bool { return c.continuing }

// InputEnabled is false between a submission and its terminal event.
func (c *Console) InputEnabled() bool { return c.enabled }

// Pending returns the id of the in-flight submission.
func (c *Console) Pending() string { return c.pending }

func (c *Console) Input() string { return c.input }

// SetInput replaces the input text. Editing leaves history browsing.
func (c *Console) SetInput(text string) {
	if text == c.input {
		return
	}
	c.input = text
	c.history.ResetBrowsing()
	c.syncInputRow()
}

func (c *Console) syncInputRow() {
	c.engine.SetInputText(c.Prompt() + " " + c.input)
}

// SubmitLine sends text to the evaluator. Blank lines and lines typed while
// an evaluation is in flight are ignored.
func (c *Console) SubmitLine(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" || !c.enabled {
		return false
	}
	if c.evaluator == nil {
		log.Warnf("submit without evaluator: %q", text)
		return false
	}
	if !c.continuing {
		c.block = map[string]bool{}
	}
	c.history.Add(text)
	c.appendRow(node.NewBasicWithPrefix(c.Prompt(), text))
	c.line++
	c.input = ""
	c.enabled = false
	c.syncInputRow()

	id, err := c.evaluator.Submit(ctx, text)
	if err != nil {
		if errors.Is(err, eval.ErrBusy) {
			log.Warnf("evaluator busy, dropping %q", text)
		}
		c.OnException(err.Error())
		return true
	}
	c.pending = id
	log.WithField("submission_id", id).Debugf("submitted line %d", c.line-1)
	return true
}

// OnResult appends the value as an inspectable row.
func (c *Console) OnResult(value any) {
	c.appendRow(node.ForValue(value, c.nodeOpts...))
	c.rearm()
}

// OnOutput appends captured output. A lone newline is ignored.
func (c *Console) OnOutput(text string) {
	text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
	if text == "" {
		return
	}
	c.appendRow(node.NewBasic(text))
}

// OnException appends the error description.
func (c *Console) OnException(desc string) {
	c.appendRow(node.NewBasic(desc))
	c.rearm()
}

// OnSyntaxError appends the error and keeps the session going.
func (c *Console) OnSyntaxError(line int, desc string) {
	c.appendRow(node.NewBasic(fmt.Sprintf("SyntaxError: line %d: %s", line, desc)))
	c.rearm()
}

// OnNeedsMoreInput re-arms input for a continuation line.
func (c *Console) OnNeedsMoreInput() {
	c.enabled = true
	c.continuing = true
	c.pending = ""
	c.syncInputRow()
}

// Handle dispatches a worker event.
func (c *Console) Handle(ev eval.Event) {
	if c.pending != "" && ev.SubmissionID != "" && ev.SubmissionID != c.pending {
		log.WithField("submission_id", ev.SubmissionID).Debugf("ignoring stale %s", ev.Kind)
		return
	}
	switch ev.Kind {
	case eval.EventResult:
		c.OnResult(ev.Value)
	case eval.EventOutput:
		c.OnOutput(ev.Text)
	case eval.EventException:
		c.OnException(ev.Text)
	case eval.EventSyntaxError:
		c.OnSyntaxError(ev.Line, ev.Text)
	case eval.EventNeedsMoreInput:
		c.OnNeedsMoreInput()
	default:
		log.Warnf("unknown event kind %q", ev.Kind)
	}
}

func (c *Console) rearm() {
	c.enabled = true
	c.continuing = false
	c.pending = ""
	c.syncInputRow()
}

// Clear removes every row and forgets registered nodes and any open statement.
func (c *Console) Clear() {
	c.engine.Clear()
	c.registry = map[string]*node.Node{}
	c.block = map[string]bool{}
	c.continuing = false
	if r, ok := c.evaluator.(eval.Resetter); ok {
		r.Reset()
	}
	c.syncInputRow()
}

// HistoryPrevious replaces the input with the previous entry, or beeps.
func (c *Console) HistoryPrevious(current string) (string, bool) {
	text, ok := c.history.Prev(current)
	if !ok {
		c.beep()
		return current, false
	}
	c.input = text
	c.syncInputRow()
	return text, true
}

// HistoryNext moves toward the newest entry, or beeps.
func (c *Console) HistoryNext() (string, bool) {
	text, ok := c.history.Next()
	if !ok {
		c.beep()
		return c.input, false
	}
	c.input = text
	c.syncInputRow()
	return text, true
}

// History returns the submitted lines, oldest first.
func (c *Console) History() []string { return c.history.Entries() }

func (c *Console) beep() {
	if c.beeper != nil {
		c.beeper.Beep()
	}
}

func (c *Console) appendRow(n *node.Node) *layout.Item {
	c.register(n)
	c.block[n.ID()] = true
	return c.engine.AppendItem(n)
}

func (c *Console) register(n *node.Node) {
	if n != nil && n.Expandable() {
		c.registry[n.ID()] = n
	}
}

// Resolve maps a node id from a UI event back to its node.
func (c *Console) Resolve(id string) (*node.Node, bool) {
	n, ok := c.registry[id]
	return n, ok
}

// ToggleRow expands or collapses the visible row showing the node with id.
func (c *Console) ToggleRow(id string) bool {
	n, ok := c.Resolve(id)
	if !ok {
		return false
	}
	for _, row := range c.engine.Rows() {
		if row.Item.Node() == n {
			return c.ToggleItem(row.Item)
		}
	}
	return false
}

// ToggleItem toggles it and registers any nodes it reveals.
func (c *Console) ToggleItem(it *layout.Item) bool {
	if it == nil || !it.ToggleExpansion() {
		return false
	}
	if it.Expanded() {
		for _, child := range it.Node().Children() {
			c.register(child)
		}
	}
	return true
}

// InCurrentBlock reports whether n is a top-level row of the latest submitted block.
func (c *Console) InCurrentBlock(n *node.Node) bool {
	return n != nil && c.block[n.ID()]
}

// CurrentBlock returns the rows of the latest submitted block, in order.
func (c *Console) CurrentBlock() []*layout.Item {
	var out []*layout.Item
	for _, it := range c.engine.ContentItems() {
		if c.block[it.Node().ID()] {
			out = append(out, it)
		}
	}
	return out
}
