package eval

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EventKind 描述 worker 发出的事件类型。
type EventKind string

const (
	EventResult         EventKind = "result"
	EventOutput         EventKind = "output"
	EventException      EventKind = "exception"
	EventSyntaxError    EventKind = "syntax_error"
	EventNeedsMoreInput EventKind = "needs_more_input"
)

// Event 是一次提交产生的事件。除 EventOutput 外，每次提交恰好产生一个终结事件。
type Event struct {
	ID           string
	SubmissionID string
	Kind         EventKind
	Timestamp    time.Time

	// Value 仅用于 EventResult。
	Value any
	// Text 用于 EventOutput、EventException、EventSyntaxError。
	Text string
	// Line 用于 EventSyntaxError。
	Line int
}

// Terminal 表示该事件是否结束了一次提交。
func (e Event) Terminal() bool { return e.Kind != EventOutput }

// Outcome 是 Backend 对一次输入的求值结果。
type Outcome struct {
	Value          any
	Err            error
	NeedsMoreInput bool
}

// SyntaxError 表示编译失败，Line 是完成该语句的那一行。
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Backend 执行一行输入。输出写入 out；Eval 只会在 worker goroutine 上被调用。
type Backend interface {
	Eval(ctx context.Context, source string, out io.Writer) Outcome
}

// BackendFunc 让函数实现 Backend。
type BackendFunc func(ctx context.Context, source string, out io.Writer) Outcome

func (f BackendFunc) Eval(ctx context.Context, source string, out io.Writer) Outcome {
	return f(ctx, source, out)
}

// Resetter 由支持丢弃多行缓冲的 Backend 实现。
type Resetter interface {
	Reset()
}

// Namer 由能提供补全候选的 Backend 实现。
type Namer interface {
	Names() []string
}
