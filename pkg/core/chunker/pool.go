package chunker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPoolClosed is returned when submitting to a closed Pool.
var ErrPoolClosed = errors.New("scan pool closed")

// Task is one category scan of one language pass.
type Task struct {
	Language Language
	Category Category
	Source   *Source
	Terms    []string
}

// ScanFunc executes a Task.
type ScanFunc func(Task) (ChunkResult, error)

// Future is the pending result of a submitted Task.
type Future struct {
	done   chan struct{}
	result ChunkResult
	err    error
}

// Wait blocks until the task has finished.
func (f *Future) Wait() (ChunkResult, error) {
	<-f.done
	return f.result, f.err
}

type job struct {
	task Task
	fut  *Future
}

// Pool runs scan tasks on a fixed number of workers.
type Pool struct {
	jobs chan job
	scan ScanFunc
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines that execute tasks with scan.
func NewPool(workers int, scan ScanFunc) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := &Pool{
		jobs: make(chan job, workers),
		scan: scan,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues task and returns its Future.
func (p *Pool) Submit(task Task) (*Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	fut := &Future{done: make(chan struct{})}
	p.jobs <- job{task: task, fut: fut}
	return fut, nil
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			j.fut.err = fmt.Errorf("scan %s/%s panicked: %v", j.task.Language, j.task.Category, r)
		}
		scanDuration.WithLabelValues(string(j.task.Language), string(j.task.Category)).
			Observe(time.Since(start).Seconds())
		close(j.fut.done)
	}()
	j.fut.result, j.fut.err = p.scan(j.task)
}
