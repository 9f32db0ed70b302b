package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocks_SerializesSameKey(t *testing.T) {
	locks := New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maximum int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("acc")
			defer unlock()

			mu.Lock()
			running++
			maximum = max(maximum, running)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maximum)
	require.Zero(t, locks.Len())
}

func TestLocks_IndependentKeys(t *testing.T) {
	locks := New()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key b waited on key a")
	}
	require.Equal(t, 1, locks.Len())
	unlockA()
	require.Zero(t, locks.Len())
}
