package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// evalTimer 记录当前一次求值的耗时，空闲时暂停。
type evalTimer struct {
	clock   func() time.Time
	started time.Time
	running bool
	last    time.Duration
}

func newEvalTimer(clock func() time.Time) *evalTimer {
	if clock == nil {
		clock = time.Now
	}
	return &evalTimer{clock: clock}
}

func (t *evalTimer) Start() {
	if t.running {
		return
	}
	t.started = t.clock()
	t.running = true
}

func (t *evalTimer) Stop() {
	if !t.running {
		return
	}
	t.last = t.clock().Sub(t.started)
	t.running = false
}

func (t *evalTimer) Running() bool { return t.running }

// Elapsed 运行中返回当前耗时，否则返回上一次求值的耗时。
func (t *evalTimer) Elapsed() time.Duration {
	if t.running {
		return t.clock().Sub(t.started)
	}
	return t.last
}

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85"))

const hints = "enter eval • tab complete • alt+↑/↓ select • →/← expand • ctrl+y copy • ctrl+r reload • ctrl+l clear • ctrl+c quit"

// statusLine 绘制状态行：求值中显示 spinner 与计时，否则显示提示信息。
func statusLine(t *evalTimer, spin, notice string, width int) string {
	var text string
	switch {
	case t.Running():
		text = fmt.Sprintf("%s evaluating (%s)", spin, fmtElapsedCompact(uint64(t.Elapsed().Seconds())))
	case notice != "":
		text = notice
	default:
		text = hints
	}
	if width > 0 {
		text = runewidth.Truncate(text, width, "…")
	}
	return statusStyle.Render(text)
}

// fmtElapsedCompact 将秒数格式化为紧凑字符串。
func fmtElapsedCompact(elapsedSecs uint64) string {
	switch {
	case elapsedSecs < 60:
		return fmt.Sprintf("%ds", elapsedSecs)
	case elapsedSecs < 3600:
		minutes := elapsedSecs / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		hours := elapsedSecs / 3600
		minutes := (elapsedSecs % 3600) / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, seconds)
	}
}
