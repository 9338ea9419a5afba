package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7:worker-1", RecordKey("worker-1", 7))
	assert.NotEqual(t, RecordKey("a", 1), RecordKey("a", 2))
	assert.NotEqual(t, RecordKey("a", 1), RecordKey("b", 1))
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()

	unlockA := km.Lock("a")
	defer unlockA()

	// A different key must not block.
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on independent key blocked")
	}
}

func TestKeyedMutex_ReacquireAfterUnlock(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	unlock := km.Lock("k")
	unlock()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("k")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}
}
