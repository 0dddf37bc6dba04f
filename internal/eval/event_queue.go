package eval

import (
	"context"
	"errors"
	"sync"

	"objconsole/internal/logger"
)

// ErrEventQueueClosed 表示事件队列已关闭。
var ErrEventQueueClosed = errors.New("event queue closed")

// EventQueue 把 worker 事件广播给订阅者。Publish 会等待慢消费者，
// 终结事件不能丢，否则输入框会一直处于禁用状态。
type EventQueue struct {
	mu     sync.RWMutex
	subs   []chan Event
	buffer int
	done   chan struct{}
	once   sync.Once
	log    *logger.LogEntry
}

// NewEventQueue 创建事件队列，buffer 是每个订阅者的缓存大小。
func NewEventQueue(buffer int) *EventQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventQueue{buffer: buffer, done: make(chan struct{})}
}

// SetLogger 设置事件日志。
func (q *EventQueue) SetLogger(entry *logger.LogEntry) {
	q.log = entry
}

// Subscribe 订阅事件流。通道会在 Close 时关闭。
func (q *EventQueue) Subscribe() <-chan Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed() {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, q.buffer)
	q.subs = append(q.subs, ch)
	return ch
}

// Publish 发布事件到所有订阅者。
func (q *EventQueue) Publish(ctx context.Context, event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed() {
		return ErrEventQueueClosed
	}
	if q.log != nil {
		q.log.WithField("submission_id", event.SubmissionID).Debugf("publish %s", event.Kind)
	}
	for _, ch := range q.subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return ErrEventQueueClosed
		case ch <- event:
		}
	}
	return nil
}

// Close 关闭事件队列和所有订阅通道。
func (q *EventQueue) Close() {
	q.once.Do(func() {
		close(q.done)
		q.mu.Lock()
		defer q.mu.Unlock()
		for _, ch := range q.subs {
			close(ch)
		}
		q.subs = nil
	})
}

func (q *EventQueue) closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}
