package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

// Pool runs jobs on a fixed number of workers and returns results in submission order
type Pool struct {
	workers int
	jobs    chan indexedJob
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	results   []Result
	submitted int
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		jobs:    make(chan indexedJob, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobs:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			result := ij.job.Execute(p.ctx)

			p.mu.Lock()
			p.results[ij.index] = result
			p.mu.Unlock()
		}
	}
}

// Submit queues a job. It returns false once the pool is shut down.
// Submit must not be called after Wait.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.results = append(p.results, nil)
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- indexedJob{index: index, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns results in submission order.
// Jobs that never ran because the pool was cancelled are omitted.
func (p *Pool) Wait() []Result {
	p.closeJobs()
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Result, 0, len(p.results))
	for _, r := range p.results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Shutdown cancels in-flight work and waits for the workers to exit
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) closeJobs() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
}
