package watch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultlint/internal/testutil"
)

const (
	testDelay = 20 * time.Millisecond
	waitFor   = 2 * time.Second
	tick      = 5 * time.Millisecond
)

func TestScheduler_Debounce(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	s := NewScheduler(testDelay)
	defer s.Close()

	var (
		mu   sync.Mutex
		runs []int
	)
	for i := range 5 {
		s.Schedule("a.md", func(context.Context) {
			mu.Lock()
			defer mu.Unlock()
			runs = append(runs, i)
		})
	}

	require.Eventually(t, func() bool { return s.Pending() == 0 }, waitFor, tick)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{4}, runs, "only the last request runs")
}

func TestScheduler_KeysAreIndependent(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	s := NewScheduler(testDelay)
	defer s.Close()

	var count atomic.Int32
	for _, key := range []string{"a.md", "b.md", "c.md"} {
		s.Schedule(key, func(context.Context) { count.Add(1) })
	}

	require.Eventually(t, func() bool { return count.Load() == 3 }, waitFor, tick)
	require.Eventually(t, func() bool { return s.Pending() == 0 }, waitFor, tick)
}

func TestScheduler_SingleFlight(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	s := NewScheduler(testDelay)
	defer s.Close()

	var (
		active    atomic.Int32
		maxActive atomic.Int32
		cancelled atomic.Int32
		finished  atomic.Int32
	)
	started := make(chan struct{}, 1)
	slow := func(ctx context.Context) {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-ctx.Done():
			cancelled.Add(1)
		case <-time.After(100 * time.Millisecond):
		}
		finished.Add(1)
	}

	s.Schedule("a.md", slow)
	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("first task never started")
	}
	s.Schedule("a.md", slow)

	require.Eventually(t, func() bool { return finished.Load() == 2 }, waitFor, tick)
	assert.Equal(t, int32(1), maxActive.Load())
	assert.Equal(t, int32(1), cancelled.Load(), "running task is cancelled by a newer request")
}

func TestScheduler_Cancel(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	s := NewScheduler(50 * time.Millisecond)
	defer s.Close()

	var ran atomic.Bool
	s.Schedule("a.md", func(context.Context) { ran.Store(true) })
	s.Cancel("a.md")
	s.Cancel("missing.md")

	assert.Equal(t, 0, s.Pending())
	time.Sleep(100 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestScheduler_CloseCancelsRunning(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	s := NewScheduler(time.Millisecond)

	started := make(chan struct{})
	var sawCancel atomic.Bool
	s.Schedule("a.md", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	})
	<-started

	s.Close()
	assert.True(t, sawCancel.Load())

	s.Schedule("b.md", func(context.Context) { t.Error("scheduled after close") })
	time.Sleep(10 * time.Millisecond)
}
