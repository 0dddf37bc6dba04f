package console

import "strings"

// history 负责输入历史浏览状态（上下箭头）。
// cursor == len(entries) 表示当前在“最新输入”（非浏览历史）位置。
type history struct {
	entries []string
	cursor  int
	draft   string
}

func (h *history) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	h.entries = append(h.entries, text)
	h.cursor = len(h.entries)
	h.draft = ""
}

func (h *history) Entries() []string {
	return append([]string(nil), h.entries...)
}

func (h *history) Browsing() bool {
	return h.cursor < len(h.entries)
}

func (h *history) ResetBrowsing() {
	h.cursor = len(h.entries)
	h.draft = ""
}

// Prev 返回上一条历史；已在最早一条时返回 false。
func (h *history) Prev(current string) (string, bool) {
	if h.cursor == 0 {
		return "", false
	}
	if h.cursor == len(h.entries) {
		h.draft = current
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Next 返回下一条历史，越过最新一条时恢复草稿；不在浏览时返回 false。
func (h *history) Next() (string, bool) {
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		draft := h.draft
		h.draft = ""
		return draft, true
	}
	return h.entries[h.cursor], true
}
