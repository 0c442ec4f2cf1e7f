//go:build waypost_poolreinit

package waypost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownPoolWithoutPriorInitIsNoop(t *testing.T) {
	shutdownPool()

	done := make(chan int, 1)
	assert.NoError(t, submitJob(func() { done <- 1 }))

	select {
	case got := <-done:
		assert.Equal(t, 1, got)
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}

	shutdownPool()
}

func TestShutdownPoolIsIdempotent(t *testing.T) {
	done := make(chan struct{}, 1)
	assert.NoError(t, submitJob(func() { done <- struct{}{} }))
	<-done

	shutdownPool()
	shutdownPool()
}

func TestSubmitAfterShutdownStartsFreshPool(t *testing.T) {
	shutdownPool()

	done := make(chan int, 1)
	assert.NoError(t, submitJob(func() { done <- 5 }))

	select {
	case got := <-done:
		assert.Equal(t, 5, got)
	case <-time.After(time.Second):
		t.Fatal("re-initialized pool never ran the job")
	}

	shutdownPool()
}
