package eval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"objconsole/internal/logger"

	"github.com/google/uuid"
)

var (
	// ErrBusy 表示上一次提交尚未结束。
	ErrBusy = errors.New("evaluation in progress")
	// ErrWorkerClosed 表示 worker 已关闭。
	ErrWorkerClosed = errors.New("worker closed")
)

// WorkerConfig 定义求值 worker 参数。
type WorkerConfig struct {
	EventBuffer int
	LogPath     string
	// Transcript 记录每次提交；默认写入 worker 的组件日志。
	Transcript logger.TranscriptLogger
}

func (cfg WorkerConfig) withDefaults() WorkerConfig {
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = 256
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath
	}
	return cfg
}

type submission struct {
	id   string
	line string
}

// Worker 在独立 goroutine 上执行求值。空闲时阻塞在无缓冲通道上，
// 每次提交唤醒一次、求值一次，然后再次等待。
type Worker struct {
	backend Backend
	inbox   chan submission
	events  *EventQueue
	stream  <-chan Event
	busy    atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup

	log        *logger.LogEntry
	logCloser  io.Closer
	transcript logger.TranscriptLogger
}

// NewWorker 创建 worker。Start 之前 Submit 会一直阻塞。
func NewWorker(backend Backend, cfg WorkerConfig) *Worker {
	cfg = cfg.withDefaults()
	entry, closer := newComponentLogger("eval", cfg.LogPath)
	events := NewEventQueue(cfg.EventBuffer)
	events.SetLogger(entry)
	transcript := cfg.Transcript
	if transcript == nil {
		transcript = logger.NewTranscriptLogger(entry)
	}
	return &Worker{
		backend:    backend,
		inbox:      make(chan submission),
		events:     events,
		stream:     events.Subscribe(),
		done:       make(chan struct{}),
		log:        entry,
		logCloser:  closer,
		transcript: transcript,
	}
}

// Start 启动后台 goroutine。
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		w.wg.Add(1)
		go w.loop(runCtx)
	})
}

// Close 停止 worker 并关闭事件流。正在执行的求值不会被打断：
// 空闲时等待 goroutine 退出，否则直接放弃它，其后续事件被丢弃。
func (w *Worker) Close() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.cancel != nil {
			w.cancel()
		}
		if !w.busy.Load() {
			w.wg.Wait()
		}
		w.events.Close()
		if w.logCloser != nil {
			_ = w.logCloser.Close()
		}
	})
}

// Events 返回默认订阅的事件流。
func (w *Worker) Events() <-chan Event { return w.stream }

// Subscribe 额外订阅一条事件流。
func (w *Worker) Subscribe() <-chan Event { return w.events.Subscribe() }

// Busy 表示是否有提交正在执行。
func (w *Worker) Busy() bool { return w.busy.Load() }

// Submit 把一行输入交给等待中的 worker，返回提交 ID。
func (w *Worker) Submit(ctx context.Context, line string) (string, error) {
	select {
	case <-w.done:
		return "", ErrWorkerClosed
	default:
	}
	if !w.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	sub := submission{id: uuid.NewString(), line: line}
	select {
	case w.inbox <- sub:
		return sub.id, nil
	case <-ctx.Done():
		w.busy.Store(false)
		return "", ctx.Err()
	case <-w.done:
		w.busy.Store(false)
		return "", ErrWorkerClosed
	}
}

// Reset 丢弃 backend 中尚未完成的多行输入。
func (w *Worker) Reset() {
	if r, ok := w.backend.(Resetter); ok {
		r.Reset()
	}
}

// Names 返回 backend 的补全候选。
func (w *Worker) Names() []string {
	if n, ok := w.backend.(Namer); ok {
		return n.Names()
	}
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-w.inbox:
			w.evaluate(ctx, sub)
		}
	}
}

func (w *Worker) evaluate(ctx context.Context, sub submission) {
	entry := w.log.WithField("submission_id", sub.id)
	entry.Debugf("woke worker line=%q", sub.line)
	started := time.Now()
	w.transcript.Submitted(sub.id, sub.line)

	out := &lineWriter{emit: func(text string) {
		w.transcript.Output(sub.id, text)
		w.publish(ctx, Event{SubmissionID: sub.id, Kind: EventOutput, Text: text})
	}}
	outcome := w.run(ctx, sub.line, out)
	out.Flush()

	event := outcomeEvent(sub.id, outcome)
	entry.Debugf("evaluated %s in %s", event.Kind, time.Since(started))
	w.transcript.Finished(sub.id, string(event.Kind), summary(event))
	w.busy.Store(false)
	w.publish(ctx, event)
}

func (w *Worker) run(ctx context.Context, line string, out io.Writer) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if w.backend == nil {
		return Outcome{Err: errors.New("no evaluator configured")}
	}
	return w.backend.Eval(ctx, line, out)
}

func (w *Worker) publish(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := w.events.Publish(ctx, event); err != nil {
		w.log.WithField("submission_id", event.SubmissionID).Warnf("publish %s failed: %v", event.Kind, err)
	}
}

func outcomeEvent(id string, o Outcome) Event {
	var syntax *SyntaxError
	switch {
	case o.NeedsMoreInput:
		return Event{SubmissionID: id, Kind: EventNeedsMoreInput}
	case errors.As(o.Err, &syntax):
		return Event{SubmissionID: id, Kind: EventSyntaxError, Line: syntax.Line, Text: syntax.Msg}
	case o.Err != nil:
		return Event{SubmissionID: id, Kind: EventException, Text: o.Err.Error()}
	default:
		return Event{SubmissionID: id, Kind: EventResult, Value: o.Value}
	}
}

// summary 是终结事件在会话记录中的简短描述；结果只记录类型。
func summary(e Event) string {
	switch e.Kind {
	case EventResult:
		return fmt.Sprintf("%T", e.Value)
	case EventSyntaxError:
		return fmt.Sprintf("line %d: %s", e.Line, e.Text)
	default:
		return e.Text
	}
}

// lineWriter 把 backend 输出按行切分，每行一个 EventOutput。
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func (l *lineWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		idx := bytes.IndexByte(l.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(l.buf.Next(idx+1), "\r\n"))
		l.emit(line)
	}
	return len(p), nil
}

// Flush 发出最后一段不以换行结尾的输出。
func (l *lineWriter) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() == 0 {
		return
	}
	l.emit(string(bytes.TrimRight(l.buf.Bytes(), "\r\n")))
	l.buf.Reset()
}
