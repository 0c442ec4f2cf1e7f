package waypost

import (
	"runtime"
	"sync"
)

// job is a unit of work executed off the caller thread.
type job func()

// workerPool is a fixed set of workers draining one bounded queue. It is a
// process-wide singleton started lazily by the first submit; every
// `Waypost` instance shares it.
type workerPool struct {
	mutex  sync.RWMutex
	jobs   chan job
	closed bool
}

var thePool struct {
	mutex      sync.Mutex
	p          *workerPool
	terminated bool
}

// poolWorkerCount returns the number of workers a fresh pool starts.
func poolWorkerCount() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 4
	}

	return n
}

// poolQueueCapacity returns the queue bound for the workers.
func poolQueueCapacity(workers int) int {
	capacity := workers * 256
	if capacity < 64 {
		capacity = 64
	}

	return capacity
}

// startWorkerPool returns a pointer of a new, running instance of the
// `workerPool`.
func startWorkerPool() *workerPool {
	workers := poolWorkerCount()
	p := &workerPool{
		jobs: make(chan job, poolQueueCapacity(workers)),
	}

	for i := 0; i < workers; i++ {
		go p.work()
	}

	return p
}

// work drains the queue until it closes. A panicking job never takes the
// worker down with it.
func (p *workerPool) work() {
	for j := range p.jobs {
		runJob(j)
	}
}

// runJob executes the j, absorbing any panic.
func runJob(j job) {
	defer func() {
		recover()
	}()

	j()
}

// trySubmit attempts a non-blocking enqueue of the j.
func (p *workerPool) trySubmit(j job) error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.closed {
		return errQueueClosed
	}

	select {
	case p.jobs <- j:
		return nil
	default:
		return errQueueFull
	}
}

// close stops intake. Jobs already enqueued still complete.
func (p *workerPool) close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
}

// submitJob enqueues the j on the process-wide pool, starting it first if
// needed. It returns `errQueueFull` when the queue is saturated and
// `errQueueClosed` after shutdown (unless this build re-initializes on
// submit; see `poolReinitOnSubmit`).
func submitJob(j job) error {
	thePool.mutex.Lock()
	p := thePool.p
	if p == nil {
		if thePool.terminated && !poolReinitOnSubmit {
			thePool.mutex.Unlock()
			return errQueueClosed
		}

		p = startWorkerPool()
		thePool.p = p
		thePool.terminated = false
	}
	thePool.mutex.Unlock()

	return p.trySubmit(j)
}

// shutdownPool stops the process-wide pool. Idempotent; in-flight jobs run
// to completion.
func shutdownPool() {
	thePool.mutex.Lock()
	p := thePool.p
	thePool.p = nil
	thePool.terminated = true
	thePool.mutex.Unlock()

	if p != nil {
		p.close()
	}
}
