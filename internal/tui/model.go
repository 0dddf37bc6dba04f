// Package tui is the terminal surface of the console: a Bubble Tea program
// that draws the root layout engine and feeds keys back to the console.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"objconsole/internal/config"
	"objconsole/internal/console"
	"objconsole/internal/eval"
	"objconsole/internal/layout"
	"objconsole/internal/logger"
	"objconsole/internal/tui/render"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var log = logger.Named("tui")

// Options 配置 TUI。Evaluator/Events/Names 通常来自同一个 eval.Worker。
type Options struct {
	Context   context.Context
	Config    config.Config
	Evaluator console.Evaluator
	Events    <-chan eval.Event
	Names     func() []string
	// Bell 接收响铃字符，默认丢弃。
	Bell io.Writer
	// Copy 写入剪贴板，默认使用系统剪贴板。
	Copy  func(string) error
	Clock func() time.Time
	// Reload 重新读取配置（ctrl+r）；为空时该按键只响铃。
	Reload func() (config.Config, error)
}

type evalEventMsg struct {
	Event eval.Event
}

type evalClosedMsg struct{}

// Model 持有 console 与输入框，负责把按键与求值事件路由到 console。
type Model struct {
	ctx      context.Context
	console  *console.Console
	events   <-chan eval.Event
	textarea textarea.Model
	viewport render.Viewport
	spin     spinner.Model
	timer    *evalTimer
	styles   rowStyles
	bell     io.Writer
	copy     func(string) error
	reload   func() (config.Config, error)

	frame frameLines
	// pad 是内容不足一屏时顶部补齐的空行数。
	pad    int
	dirty  bool
	reveal bool

	selected string
	notice   string

	completions    []string
	completionIdx  int
	completionBase string

	width  int
	height int
}

func New(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg.MaxElements == 0 && cfg.FontSize == 0 {
		cfg = config.Default()
	}
	bell := opts.Bell
	if bell == nil {
		bell = io.Discard
	}
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	ti := textarea.New()
	ti.Placeholder = "expression"
	ti.CharLimit = 0
	ti.ShowLineNumbers = false
	ti.SetHeight(1)
	ti.KeyMap.InsertNewline.SetEnabled(false)
	ti.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := &Model{
		ctx:      ctx,
		events:   opts.Events,
		textarea: ti,
		viewport: render.NewViewport(80, 22),
		spin:     spin,
		timer:    newEvalTimer(opts.Clock),
		styles:   defaultRowStyles(),
		bell:     bell,
		copy:     copyFn,
		reload:   opts.Reload,
	}
	m.console = console.New(console.Config{
		Layout: layout.Config{
			Measurer: CellMeasurer{},
			Font:     layout.Font{Family: cfg.FontFamily, Size: cfg.FontSize},
			Metrics: layout.Metrics{
				HorizontalMargin:   cfg.HorizontalMargin,
				DisclosureDiameter: cfg.DisclosureDiameter,
			},
		},
		Evaluator:   opts.Evaluator,
		Beeper:      console.BeeperFunc(m.ring),
		MaxElements: cfg.MaxElements,
		Names:       opts.Names,
	})
	m.console.Attach(layout.SurfaceFunc(func() { m.dirty = true }))
	m.syncPrompt()
	m.resize(80, 24)
	m.flush()
	return m
}

// Console returns the console driven by the model.
func (m *Model) Console() *console.Console { return m.console }

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, textarea.Blink}
	if cmd := m.listen(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m.finish(cmds...)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		return m.finish(cmds...)
	case evalEventMsg:
		m.console.Handle(msg.Event)
		if m.console.InputEnabled() {
			m.timer.Stop()
		}
		if cmd := m.listen(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m.finish(cmds...)
	case evalClosedMsg:
		m.events = nil
		m.notice = "evaluator stopped"
		log.Warn("event stream closed")
		return m.finish(cmds...)
	case tea.MouseMsg:
		if m.handleClick(msg) {
			return m.finish(cmds...)
		}
		if cmd := m.viewport.HandleUpdate(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m.finish(cmds...)
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m.finish(cmds...)
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.console.SetInput(m.textarea.Value())
	return m.finish(cmds...)
}

func (m *Model) finish(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	m.syncPrompt()
	if m.dirty {
		m.flush()
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	status := statusLine(m.timer, m.spin.View(), m.notice, m.width)
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.textarea.View(), status)
}

func (m *Model) listen() tea.Cmd {
	ch := m.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return evalClosedMsg{}
		}
		return evalEventMsg{Event: ev}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	if key != "tab" {
		m.completions = nil
	}
	switch key {
	case "ctrl+c":
		return tea.Quit, true
	case "enter":
		m.submit()
		return nil, true
	case "up", "down":
		if !m.console.InputEnabled() {
			return nil, true
		}
		var text string
		var ok bool
		if key == "up" {
			text, ok = m.console.HistoryPrevious(m.textarea.Value())
		} else {
			text, ok = m.console.HistoryNext()
		}
		if ok {
			m.setInput(text)
		}
		return nil, true
	case "tab":
		m.complete()
		return nil, true
	case "ctrl+l":
		m.console.Clear()
		m.selected = ""
		m.notice = ""
		m.dirty = true
		return nil, true
	case "alt+up":
		m.moveSelection(-1)
		return nil, true
	case "alt+down":
		m.moveSelection(1)
		return nil, true
	case "right", "left":
		if m.selected == "" {
			return nil, false
		}
		m.setSelectedExpanded(key == "right")
		return nil, true
	case "ctrl+t":
		if m.selected != "" && m.console.ToggleRow(m.selected) {
			m.reveal = true
		}
		return nil, true
	case "ctrl+y":
		m.copySelection()
		return nil, true
	case "ctrl+r":
		m.reloadConfig()
		return nil, true
	case "esc":
		if m.selected != "" {
			m.selected = ""
			m.dirty = true
		}
		return nil, true
	case "pgup":
		m.viewport.ScrollPageUp()
		return nil, true
	case "pgdown":
		m.viewport.ScrollPageDown()
		return nil, true
	}
	return nil, false
}

func (m *Model) submit() {
	text := m.textarea.Value()
	m.console.SetInput(text)
	if !m.console.SubmitLine(m.ctx, text) {
		return
	}
	m.textarea.Reset()
	m.notice = ""
	if !m.console.InputEnabled() {
		m.timer.Start()
	}
	m.viewport.GotoBottom()
}

func (m *Model) setInput(text string) {
	m.textarea.SetValue(text)
	m.textarea.CursorEnd()
	m.console.SetInput(text)
}

// complete 在候选间循环；首次按 Tab 时以当前输入为基准。
func (m *Model) complete() {
	if m.completions == nil {
		m.completionBase = m.textarea.Value()
		m.completions = m.console.Complete(m.completionBase)
		m.completionIdx = -1
		if len(m.completions) == 0 {
			m.completions = nil
			m.ring()
			return
		}
	}
	m.completionIdx = (m.completionIdx + 1) % len(m.completions)
	m.setInput(console.ApplyCompletion(m.completionBase, m.completions[m.completionIdx]))
	if len(m.completions) > 1 {
		m.notice = strings.Join(m.completions, " ")
	}
}

func (m *Model) ring() {
	if _, err := io.WriteString(m.bell, "\a"); err != nil {
		log.Debugf("bell: %v", err)
	}
}

// selectableRows 返回可展开的可见行。
func (m *Model) selectableRows() []layout.Row {
	var out []layout.Row
	for _, row := range m.console.Engine().Rows() {
		if row.Item.HasDisclosure() {
			out = append(out, row)
		}
	}
	return out
}

func (m *Model) moveSelection(delta int) {
	rows := m.selectableRows()
	if len(rows) == 0 {
		m.selected = ""
		return
	}
	idx := -1
	for i, row := range rows {
		if row.Item.Node().ID() == m.selected {
			idx = i
		}
	}
	switch {
	case idx < 0 && delta < 0:
		idx = len(rows) - 1
	case idx < 0:
		idx = 0
	default:
		idx = min(max(idx+delta, 0), len(rows)-1)
	}
	m.selected = rows[idx].Item.Node().ID()
	m.dirty = true
	m.reveal = true
}

func (m *Model) selectedItem() *layout.Item {
	if m.selected == "" {
		return nil
	}
	for _, row := range m.console.Engine().Rows() {
		if row.Item.Node() != nil && row.Item.Node().ID() == m.selected {
			return row.Item
		}
	}
	return nil
}

func (m *Model) setSelectedExpanded(expanded bool) {
	it := m.selectedItem()
	if it == nil || it.Expanded() == expanded {
		return
	}
	if m.console.ToggleItem(it) {
		m.reveal = true
	}
}

func (m *Model) copySelection() {
	var text string
	if it := m.selectedItem(); it != nil {
		text = it.Text()
		if v, ok := it.Node().Object(); ok {
			// 字符串复制原文，不带引号
			if str, isString := v.(string); isString {
				text = str
			}
		}
	} else if n := m.console.Engine().ContentLen(); n > 0 {
		it, _ := m.console.Engine().ContentItem(n - 1)
		text = it.Text()
	}
	if text == "" {
		m.ring()
		return
	}
	if err := m.copy(text); err != nil {
		m.notice = fmt.Sprintf("copy failed: %v", err)
		log.Warnf("clipboard: %v", err)
		return
	}
	m.notice = "copied " + runewidth.Truncate(text, 40, "…")
}

// reloadConfig 重新读取配置并把字体交给根 engine；字体不变时不会重排。
func (m *Model) reloadConfig() {
	if m.reload == nil {
		m.ring()
		return
	}
	cfg, err := m.reload()
	if err != nil {
		m.notice = fmt.Sprintf("reload failed: %v", err)
		log.Warnf("reload config: %v", err)
		return
	}
	m.console.Engine().SetFont(layout.Font{Family: cfg.FontFamily, Size: cfg.FontSize})
	m.notice = "config reloaded"
	m.dirty = true
}

// handleClick 在左键点中展开符号时切换该行。
func (m *Model) handleClick(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return false
	}
	if msg.Y < 0 || msg.Y >= m.viewport.Height {
		return false
	}
	line := msg.Y + m.viewport.YOffset - m.pad
	if line < 0 || line >= len(m.frame.lines) {
		return false
	}
	y := m.frame.base + line
	row, ok := m.console.Engine().HitTest(y)
	if !ok || row.Item.IsInput() || !row.Disclosure.Contains(msg.X-gutterWidth, y) {
		return false
	}
	if !m.console.ToggleItem(row.Item) {
		return false
	}
	m.selected = row.Item.Node().ID()
	m.dirty = true
	return true
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	viewHeight := max(height-m.textarea.Height()-1, 1)
	m.viewport.Resize(width, viewHeight)
	m.textarea.SetWidth(width)
	m.console.Engine().SetFrameSize(max(width-gutterWidth, 1), viewHeight+m.textarea.Height())
	m.dirty = true
}

func (m *Model) syncPrompt() {
	prompt := runewidth.FillLeft(m.console.Prompt(), gutterWidth-1) + " "
	if m.textarea.Prompt == prompt {
		return
	}
	m.textarea.Prompt = prompt
	m.textarea.SetWidth(m.width)
}

// flush 重新渲染根引擎的可见行，并在需要时滚动到选中行。
func (m *Model) flush() {
	m.dirty = false
	m.frame = renderRows(m.console, m.selected, m.styles)
	if m.selected != "" {
		if _, ok := m.frame.spanOf(m.selected); !ok {
			m.selected = ""
			m.frame = renderRows(m.console, "", m.styles)
		}
	}
	m.pad = max(m.viewport.Height-len(m.frame.lines), 0)
	lines := make([]string, 0, m.pad+len(m.frame.lines))
	for i := 0; i < m.pad; i++ {
		lines = append(lines, "")
	}
	m.viewport.SetLines(append(lines, m.frame.lines...))
	if m.reveal {
		m.reveal = false
		if s, ok := m.frame.spanOf(m.selected); ok {
			m.viewport.Reveal(m.pad+s.top, m.pad+s.top+s.height)
		}
	}
}
