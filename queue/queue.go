package queue

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Task encapsulates a unit of work processed by the worker pool, typically a
// dataset reload or a scheduled recompute.
type Task struct {
	ID       string
	Source   string
	Work     func(context.Context) error
	OnFinish func(error)
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int
	Capacity    int
	WorkerCount int
	Processed   uint64
	Failed      uint64
}

// Queue represents a bounded task queue with a fixed worker pool.
type Queue struct {
	tasks       chan Task
	workerCount int
	timeout     time.Duration
	started     bool
	mu          sync.RWMutex
	wg          sync.WaitGroup
	processed   uint64
	failed      uint64
}

// New creates a new Queue with the provided capacity, worker count, and per-task timeout.
func New(capacity, workerCount int, timeout time.Duration) *Queue {
	return &Queue{
		tasks:       make(chan Task, capacity),
		workerCount: workerCount,
		timeout:     timeout,
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue attempts to queue a task without blocking. Returns false if the
// queue is full or not started.
func (q *Queue) Enqueue(t Task) bool {
	return q.tryEnqueue(t, true)
}

// EnqueueWithRetry attempts to queue a task within a bounded retry window.
// Returns (enqueued, droppedFull).
func (q *Queue) EnqueueWithRetry(ctx context.Context, t Task, window, interval time.Duration) (bool, bool) {
	deadline := time.Now().Add(window)
	if q.tryEnqueue(t, false) {
		return true, false
	}
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false, false
		case <-time.After(interval):
			if q.tryEnqueue(t, false) {
				return true, false
			}
		}
	}
	return false, true
}

func (q *Queue) tryEnqueue(t Task, logDrop bool) bool {
	q.mu.RLock()
	started := q.started
	q.mu.RUnlock()
	if !started {
		if logDrop {
			log.Printf("enqueue called before queue started for task %s", t.ID)
		}
		return false
	}
	select {
	case q.tasks <- t:
		return true
	default:
		if logDrop {
			log.Printf("task queue full, dropping task %s", t.ID)
		}
		return false
	}
}

// Stop stops accepting new tasks and waits for workers to drain until the
// context is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	if q.tasks != nil {
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current queue metrics.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	length := 0
	if q.tasks != nil {
		length = len(q.tasks)
	}
	return Stats{
		Length:      length,
		Capacity:    cap(q.tasks),
		WorkerCount: q.workerCount,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			q.handleTask(ctx, t)
		}
	}
}

func (q *Queue) handleTask(ctx context.Context, t Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("task %s panic recovered: %v", t.ID, r)
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, q.timeout)
	err := t.Work(taskCtx)
	cancel()
	if t.OnFinish != nil {
		t.OnFinish(err)
	}
	atomic.AddUint64(&q.processed, 1)
	if err != nil {
		atomic.AddUint64(&q.failed, 1)
	}
	status := "success"
	if err != nil {
		status = err.Error()
	}
	log.Printf("task_source=%s task=%s duration_ms=%d status=%s", t.Source, t.ID, time.Since(start).Milliseconds(), status)
}

// Healthy returns true if the queue has been started.
func (q *Queue) Healthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.started
}
