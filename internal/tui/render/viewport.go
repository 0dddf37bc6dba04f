package render

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Viewport 包装 bubbles viewport：内容不变时跳过重绘，位于底部时追加内容保持贴底。
type Viewport struct {
	viewport.Model
	lastLines []string
}

// NewViewport 创建视口。
func NewViewport(width, height int) Viewport {
	return Viewport{Model: viewport.New(width, height)}
}

// Resize 更新宽高；宽度变化时丢弃缓存行。
func (v *Viewport) Resize(width, height int) {
	if v.Width == width && v.Height == height {
		return
	}
	atBottom := v.AtBottom()
	if v.Width != width {
		v.Invalidate()
	}
	v.Width = width
	v.Height = height
	if atBottom {
		v.GotoBottom()
	}
}

// HandleUpdate 代理 bubbles 的 Update（鼠标滚轮等）。
func (v *Viewport) HandleUpdate(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	v.Model, cmd = v.Model.Update(msg)
	return cmd
}

// SetLines 更新内容，返回内容是否变化。
func (v *Viewport) SetLines(lines []string) bool {
	if v.lastLines != nil && slices.Equal(lines, v.lastLines) {
		return false
	}
	stickToBottom := v.lastLines == nil || v.AtBottom()
	v.lastLines = append([]string{}, lines...)
	v.SetContent(strings.Join(lines, "\n"))
	if stickToBottom {
		v.GotoBottom()
	}
	return true
}

// Lines 返回最近一次设置的内容。
func (v *Viewport) Lines() []string { return v.lastLines }

// ScrollPageDown 下翻一页。
func (v *Viewport) ScrollPageDown() { v.ViewDown() }

// ScrollPageUp 上翻一页。
func (v *Viewport) ScrollPageUp() { v.ViewUp() }

// ScrollLineDown 下滚 n 行。
func (v *Viewport) ScrollLineDown(n int) { v.LineDown(n) }

// ScrollLineUp 上滚 n 行。
func (v *Viewport) ScrollLineUp(n int) { v.LineUp(n) }

// Reveal 滚动到能看见 [top, bottom) 的位置。
func (v *Viewport) Reveal(top, bottom int) {
	switch {
	case top < v.YOffset:
		v.SetYOffset(top)
	case bottom > v.YOffset+v.Height:
		v.SetYOffset(bottom - v.Height)
	}
}

// Invalidate 清空已缓存的行，下次 SetLines 必定重绘。
func (v *Viewport) Invalidate() {
	v.lastLines = nil
}
