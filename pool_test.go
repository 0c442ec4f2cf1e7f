package waypost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitJobExecutesSingleJob(t *testing.T) {
	done := make(chan int, 1)

	err := submitJob(func() {
		done <- 1
	})
	assert.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, 1, got)
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
}

func TestSubmitJobExecutesManyJobsConcurrently(t *testing.T) {
	const numJobs = 32

	// Every job blocks on the gate until the last one is enqueued, so
	// none can sneak through sequentially.
	gate := make(chan struct{})
	results := make(chan int, numJobs)

	for i := 0; i < numJobs; i++ {
		i := i
		err := submitJob(func() {
			<-gate
			results <- i
		})
		assert.NoError(t, err)
	}

	close(gate)

	seen := map[int]bool{}
	for i := 0; i < numJobs; i++ {
		select {
		case v := <-results:
			seen[v] = true
		case <-time.After(5 * time.Second):
			t.Fatal("jobs stalled")
		}
	}

	assert.Len(t, seen, numJobs)
}

func TestSubmitJobOrderIsNotGuaranteed(t *testing.T) {
	results := make(chan string, 8)

	err := submitJob(func() {
		time.Sleep(60 * time.Millisecond)
		results <- "long"
	})
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		err := submitJob(func() {
			results <- "short"
		})
		assert.NoError(t, err)
	}

	// Submission order promises nothing; either kind may finish first.
	select {
	case first := <-results:
		assert.Contains(t, []string{"short", "long"}, first)
	case <-time.After(time.Second):
		t.Fatal("no job completed")
	}
}

func TestSubmitJobSurvivesPanickingJob(t *testing.T) {
	err := submitJob(func() {
		panic("intentional panic")
	})
	assert.NoError(t, err)

	done := make(chan int, 1)
	err = submitJob(func() {
		done <- 7
	})
	assert.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, 7, got)
	case <-time.After(time.Second):
		t.Fatal("worker died with the panicking job")
	}
}

func TestSubmitJobNestedSubmission(t *testing.T) {
	done := make(chan int, 1)

	err := submitJob(func() {
		submitJob(func() {
			done <- 9
		})
	})
	assert.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, 9, got)
	case <-time.After(time.Second):
		t.Fatal("nested job never ran")
	}
}

func TestWorkerPoolReportsFullUnderPressure(t *testing.T) {
	// A private pool keeps this test independent of the process-wide
	// singleton.
	p := &workerPool{jobs: make(chan job, 2)}

	assert.NoError(t, p.trySubmit(func() {}))
	assert.NoError(t, p.trySubmit(func() {}))
	assert.Equal(t, errQueueFull, p.trySubmit(func() {}))
}

func TestWorkerPoolDrainsQueueAfterPressure(t *testing.T) {
	p := &workerPool{jobs: make(chan job, 1)}

	done := make(chan struct{}, 2)
	assert.NoError(t, p.trySubmit(func() { done <- struct{}{} }))
	assert.Equal(t, errQueueFull, p.trySubmit(func() {}))

	go p.work()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queued job never ran")
	}

	// Capacity freed; intake works again.
	assert.NoError(t, p.trySubmit(func() { done <- struct{}{} }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follow-up job never ran")
	}

	p.close()
}

func TestWorkerPoolCloseStopsIntake(t *testing.T) {
	p := &workerPool{jobs: make(chan job, 4)}
	go p.work()

	p.close()
	p.close()

	assert.Equal(t, errQueueClosed, p.trySubmit(func() {}))
}

func TestWorkerPoolCloseLetsEnqueuedJobsComplete(t *testing.T) {
	p := &workerPool{jobs: make(chan job, 8)}

	done := make(chan int, 8)
	for i := 0; i < 8; i++ {
		i := i
		assert.NoError(t, p.trySubmit(func() { done <- i }))
	}

	p.close()
	go p.work()

	for i := 0; i < 8; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("enqueued jobs lost at close")
		}
	}
}

func TestPoolQueueCapacity(t *testing.T) {
	assert.Equal(t, 64, poolQueueCapacity(0))
	assert.Equal(t, 256, poolQueueCapacity(1))
	assert.Equal(t, 2048, poolQueueCapacity(8))
}
