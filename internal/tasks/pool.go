package tasks

import (
	"context"
	"sync"
)

// Pool runs submitted jobs on a fixed number of worker goroutines.
type Pool struct {
	jobs chan func()
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewPool starts workers goroutines; values below one start a single worker.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	p := &Pool{jobs: make(chan func()), quit: make(chan struct{})}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.quit:
			return
		case job := <-p.jobs:
			job()
		}
	}
}

// Submit blocks until a worker accepts job. Returns false if the pool is closed; job then never runs.
//
// Never call Submit from the owner loop.
func (p *Pool) Submit(job func()) bool {
	return p.SubmitContext(context.Background(), job)
}

// SubmitContext is [Pool.Submit] that also gives up once ctx is done.
func (p *Pool) SubmitContext(ctx context.Context, job func()) bool {
	select {
	case <-p.quit:
		return false
	case <-ctx.Done():
		return false
	default:
	}

	select {
	case p.jobs <- job:
		return true
	case <-p.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close stops accepting jobs and waits for running jobs to finish.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
