package tui

import (
	"strings"

	"objconsole/internal/console"
	"objconsole/internal/layout"
	"objconsole/internal/tui/render"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// gutterWidth 为行号前缀预留的列数（右对齐，末尾一个空格）。
const gutterWidth = 6

const (
	glyphCollapsed = "▸"
	glyphExpanded  = "▾"
)

type rowStyles struct {
	gutter   lipgloss.Style
	block    lipgloss.Style
	selected lipgloss.Style
}

func defaultRowStyles() rowStyles {
	return rowStyles{
		gutter:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85")),
		block:    lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E1CF")),
		selected: lipgloss.NewStyle().Reverse(true),
	}
}

// rowSpan 记录可见行在渲染结果中的位置。
type rowSpan struct {
	item   *layout.Item
	top    int
	height int
}

// frameLines 是根引擎内容行（不含输入行）的渲染结果。
type frameLines struct {
	lines []string
	spans []rowSpan
	// base 是 lines[0] 对应的引擎 y 坐标。
	base int
}

func (f frameLines) spanOf(id string) (rowSpan, bool) {
	for _, s := range f.spans {
		if s.item.Node() != nil && s.item.Node().ID() == id {
			return s, true
		}
	}
	return rowSpan{}, false
}

func renderRows(c *console.Console, selected string, styles rowStyles) frameLines {
	var out frameLines
	first := true
	inBlock := false
	for _, row := range c.Engine().Rows() {
		if row.Item.IsInput() {
			continue
		}
		if first {
			out.base = row.Frame.Y
			first = false
		}
		for len(out.lines) < row.Frame.Y-out.base {
			out.lines = append(out.lines, "")
		}
		if row.Depth == 0 {
			inBlock = c.InCurrentBlock(row.Item.Node())
		}

		gutter, body := rowText(row)
		span := rowSpan{item: row.Item, top: len(out.lines), height: len(body)}
		isSelected := selected != "" && row.Item.Node().ID() == selected
		for i, text := range body {
			switch {
			case isSelected:
				text = styles.selected.Render(text)
			case inBlock:
				text = styles.block.Render(text)
			}
			g := strings.Repeat(" ", gutterWidth)
			if i == 0 && gutter != "" {
				g = styles.gutter.Render(gutter)
			}
			out.lines = append(out.lines, g+text)
		}
		out.spans = append(out.spans, span)
	}
	return out
}

// rowText 返回首行的行号前缀与按内容宽度换行后的各行（已含缩进与展开符号）。
func rowText(row layout.Row) (string, []string) {
	gutter := ""
	if row.Depth == 0 {
		if p := row.Item.Node().Prefix(); p != "" {
			gutter = runewidth.FillLeft(p, gutterWidth-1) + " "
		}
	}
	contentWidth := max(row.Frame.Width-(row.ContentX-row.Frame.X), 1)
	wrapped := render.WrapText(row.Item.Text(), contentWidth)

	lines := make([]string, 0, len(wrapped))
	for i, text := range wrapped {
		var b strings.Builder
		col := 0
		padTo := func(x int) {
			if x > col {
				b.WriteString(strings.Repeat(" ", x-col))
				col = x
			}
		}
		if i == 0 && row.Item.HasDisclosure() {
			padTo(row.Disclosure.X)
			glyph := glyphCollapsed
			if row.Item.Expanded() {
				glyph = glyphExpanded
			}
			b.WriteString(glyph)
			col += runewidth.StringWidth(glyph)
		}
		padTo(row.ContentX)
		b.WriteString(text)
		lines = append(lines, b.String())
	}
	return gutter, lines
}
