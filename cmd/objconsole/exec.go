package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"objconsole/internal/config"
	"objconsole/internal/console"
	"objconsole/internal/eval"
	"objconsole/internal/layout"
	"objconsole/internal/tui"
)

// execWidth 是非交互模式下的排版宽度。
const execWidth = 100

// runExec 逐行求值并打印 console 中的行，返回进程退出码。
func runExec(ctx context.Context, ev console.Evaluator, events <-chan eval.Event, cfg config.Config, lines []string, depth int, out io.Writer) int {
	c := console.New(console.Config{
		Layout:      layout.Config{Measurer: tui.CellMeasurer{}},
		Evaluator:   ev,
		MaxElements: cfg.MaxElements,
	})
	c.Attach(nil)
	c.Engine().SetFrameSize(execWidth, 0)

	code := 0
	for _, line := range lines {
		if !c.SubmitLine(ctx, line) {
			continue
		}
		for !c.InputEnabled() {
			select {
			case e, ok := <-events:
				if !ok {
					fmt.Fprintln(out, "evaluator stopped")
					return 1
				}
				if e.Kind == eval.EventException || e.Kind == eval.EventSyntaxError {
					code = 1
				}
				c.Handle(e)
			case <-ctx.Done():
				return 1
			}
		}
	}
	if c.Continuing() {
		log.Warn("input ended inside an unfinished statement")
		code = 1
	}

	expandRows(c, depth)
	printRows(out, c.Engine().Rows())
	return code
}

// expandRows 逐层展开，直到给定深度。
func expandRows(c *console.Console, depth int) {
	for level := 0; level < depth; level++ {
		for _, row := range c.Engine().Rows() {
			if row.Depth == level && row.Item.HasDisclosure() && !row.Item.Expanded() {
				c.ToggleItem(row.Item)
			}
		}
	}
}

func printRows(out io.Writer, rows []layout.Row) {
	for _, row := range rows {
		if row.Item.IsInput() {
			continue
		}
		prefix := ""
		if row.Depth == 0 {
			prefix = row.Item.Node().Prefix()
		}
		fmt.Fprintf(out, "%-5s%s%s\n", prefix, strings.Repeat("  ", row.Depth), row.Item.Text())
	}
}
