// Package watch re-lints documents as they change on disk.
package watch

import (
	"context"
	"sync"
	"time"
)

// TaskFunc is the work scheduled for a key. ctx is cancelled when a newer
// request for the same key arrives or the scheduler closes.
type TaskFunc func(ctx context.Context)

// Scheduler debounces work per key. A new request for a key replaces the
// pending one and cancels the running one; at most one task per key runs at
// any time.
type Scheduler struct {
	delay time.Duration

	mu     sync.Mutex
	tasks  map[string]*task
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	gen     uint64
	timer   *time.Timer
	next    TaskFunc
	ready   bool // debounce elapsed while the previous run was active
	running bool
	stop    context.CancelFunc
}

// NewScheduler creates a scheduler that waits delay after the last request
// for a key before running it.
func NewScheduler(delay time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		delay:  delay,
		tasks:  make(map[string]*task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule requests fn for key after the debounce delay.
func (s *Scheduler) Schedule(key string, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	t := s.tasks[key]
	if t == nil {
		t = &task{}
		s.tasks[key] = t
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.stop != nil {
		t.stop()
	}
	t.gen++
	t.next = fn
	t.ready = false

	gen := t.gen
	t.timer = time.AfterFunc(s.delay, func() { s.fire(key, t, gen) })
}

// Cancel drops the pending request for key and cancels a running one.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tasks[key]
	if t == nil {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.stop != nil {
		t.stop()
	}
	t.gen++
	t.next = nil
	t.ready = false
	if !t.running {
		delete(s.tasks, key)
	}
}

// Pending reports how many keys have work pending or running.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close cancels everything and waits for running tasks to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for key, t := range s.tasks {
		if t.timer != nil {
			t.timer.Stop()
		}
		if !t.running {
			delete(s.tasks, key)
		}
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) fire(key string, t *task, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || t.gen != gen {
		return
	}
	t.timer = nil
	if t.running {
		t.ready = true
		return
	}
	s.start(key, t)
}

// start runs t.next; the caller holds s.mu.
func (s *Scheduler) start(key string, t *task) {
	fn := t.next
	t.next = nil
	t.running = true

	ctx, cancel := context.WithCancel(s.ctx)
	t.stop = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
		cancel()
		s.finish(key, t)
	}()
}

func (s *Scheduler) finish(key string, t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.running = false
	t.stop = nil
	if t.ready && !s.closed && t.next != nil {
		t.ready = false
		s.start(key, t)
		return
	}
	if t.timer == nil && s.tasks[key] == t {
		delete(s.tasks, key)
	}
}
