package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const alertTimeout = 5 * time.Second

// Queue hands alerts to a worker goroutine so that raising one never blocks
// event processing. Alerts are dropped when the queue is full or stopped.
type Queue struct {
	next Alerter
	ch   chan Alert
	log  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	done    chan struct{}
}

func NewQueue(next Alerter, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{
		next:    next,
		ch:      make(chan Alert, size),
		log:     logger,
		stopped: make(chan struct{}),
	}
}

func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.done = make(chan struct{})
	go q.run(ctx, q.done)
}

func (q *Queue) Alert(_ context.Context, a Alert) {
	select {
	case <-q.stopped:
		return
	default:
	}
	select {
	case q.ch <- a:
	default:
		q.log.Warn("alert dropped, queue full", zap.String("title", a.Title))
	}
}

// Stop ends the worker; alerts still queued are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	select {
	case <-q.stopped:
	default:
		close(q.stopped)
	}
	cancel, done := q.cancel, q.done
	q.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (q *Queue) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-q.ch:
			q.deliver(ctx, a)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, a Alert) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("alerter panicked", zap.String("title", a.Title), zap.Any("error", r))
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()
	q.next.Alert(ctx, a)
}
