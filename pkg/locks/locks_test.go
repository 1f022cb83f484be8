package locks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	release, err := km.Acquire(t.Context(), "exp-1")
	require.NoError(t, err)

	acquired := make(chan struct{})

	go func() {
		release2, err := km.Acquire(t.Context(), "exp-1")
		if err == nil {
			close(acquired)
			release2()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while key was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never succeeded after release")
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	release1, err := km.Acquire(t.Context(), "exp-1")
	require.NoError(t, err)

	defer release1()

	done := make(chan struct{})

	go func() {
		release2, err := km.Acquire(t.Context(), "exp-2")
		if err == nil {
			release2()
			close(done)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire on a different key blocked")
	}
}

func TestKeyedMutexCounterUnderContention(t *testing.T) {
	km := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter int
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			release, err := km.Acquire(t.Context(), "shared")
			if err != nil {
				return
			}

			counter++

			release()
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, counter)

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries, "entries should be reclaimed once released")
}
