package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/interlock-panel/internal/logic"
)

// DefaultQueueCapacity bounds the backlog of unsent messages.
const DefaultQueueCapacity = 256

// Queue is a Publisher that never blocks the caller. Messages go into a
// ring buffer and a sender goroutine delivers them in order. When the
// buffer is full the oldest message is dropped.
type Queue struct {
	sender Sender
	log    *slog.Logger
	retry  time.Duration

	mu      sync.Mutex
	buf     *ringBuffer
	closed  bool
	dropped int

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewQueue starts a queue delivering through s.
func NewQueue(s Sender, capacity int, logger *slog.Logger) *Queue {
	return newQueue(s, capacity, 5*time.Second, logger)
}

func newQueue(s Sender, capacity int, retry time.Duration, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		sender: s,
		log:    logger,
		retry:  retry,
		buf:    newRingBuffer(capacity),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Publish queues a panel event.
func (q *Queue) Publish(event logic.Event) error {
	msg, err := eventMessage(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return q.enqueue(msg)
}

// PublishSystem queues a lifecycle event.
func (q *Queue) PublishSystem(event SystemEvent) error {
	msg, err := systemMessage(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return q.enqueue(msg)
}

func (q *Queue) enqueue(msg bufferedMsg) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("mqtt queue closed")
	}
	if q.buf.push(msg) && q.dropped == 0 {
		q.log.Warn("mqtt backlog full, dropping oldest", "capacity", q.buf.capacity)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of messages waiting to be sent.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.len()
}

// Dropped returns how many messages were lost to overflow.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// IsConnected reports the sender's connection state when it has one.
func (q *Queue) IsConnected() bool {
	if cs, ok := q.sender.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return true
}

// Close stops the sender after one last delivery attempt.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.stop)
	<-q.done
	return nil
}

func (q *Queue) run() {
	defer close(q.done)

	var pending []bufferedMsg
	failing := false
	for {
		pending = q.take(pending)
		sent, err := q.send(pending)
		pending = pending[sent:]

		switch {
		case err != nil && !failing:
			failing = true
			q.log.Warn("mqtt send failed, will retry", "pending", len(pending), "err", err)
		case err == nil && failing:
			failing = false
			q.log.Info("mqtt delivery resumed")
		}

		var retry <-chan time.Time
		if len(pending) > 0 {
			retry = time.After(q.retry)
		}
		select {
		case <-q.wake:
		case <-retry:
		case <-q.stop:
			pending = q.take(pending)
			if sent, _ := q.send(pending); sent < len(pending) {
				n := len(pending) - sent
				q.log.Warn("mqtt messages not delivered at close", "count", n)
			}
			return
		}
	}
}

// take moves buffered messages behind pending, keeping at most the
// buffer capacity.
func (q *Queue) take(pending []bufferedMsg) []bufferedMsg {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, dropped := q.buf.drainAll()
	q.dropped += dropped
	pending = append(pending, msgs...)
	if over := len(pending) - q.buf.capacity; over > 0 {
		q.dropped += over
		pending = pending[over:]
	}
	return pending
}

// send delivers msgs in order and returns how many went out.
func (q *Queue) send(msgs []bufferedMsg) (int, error) {
	for i, m := range msgs {
		if err := q.sender.Send(m.topic, m.qos, m.retained, m.payload); err != nil {
			return i, fmt.Errorf("send %s: %w", m.topic, err)
		}
	}
	return len(msgs), nil
}
