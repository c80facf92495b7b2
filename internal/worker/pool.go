package worker

import (
	"context"
	"sort"
	"sync"
)

// Handler executes one job
type Handler[T, R any] func(ctx context.Context, job T) R

// PanicHandler turns a recovered panic into a result for the job
type PanicHandler[T, R any] func(job T, recovered interface{}) R

type indexed[V any] struct {
	index int
	value V
}

// Pool runs jobs on a fixed number of goroutines and returns results in
// submission order
type Pool[T, R any] struct {
	workers    int
	handle     Handler[T, R]
	onPanic    PanicHandler[T, R]
	jobQueue   chan indexed[T]
	submitted  int
	mu         sync.Mutex
	results    []indexed[R]
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool. onPanic may be nil, in which case a panicking
// job yields the zero R.
func NewPool[T, R any](ctx context.Context, workers int, handle Handler[T, R], onPanic PanicHandler[T, R]) *Pool[T, R] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool[T, R]{
		workers:    workers,
		handle:     handle,
		onPanic:    onPanic,
		jobQueue:   make(chan indexed[T], workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers
func (p *Pool[T, R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[T, R]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			value := p.run(job.value)
			if p.ctx.Err() != nil {
				return
			}
			p.mu.Lock()
			p.results = append(p.results, indexed[R]{index: job.index, value: value})
			p.mu.Unlock()
		}
	}
}

func (p *Pool[T, R]) run(job T) (result R) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			result = p.onPanic(job, r)
		}
	}()
	return p.handle(p.ctx, job)
}

// Submit queues a job. It must be called from a single goroutine before
// Wait and returns false once the pool is shut down.
func (p *Pool[T, R]) Submit(job T) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexed[T]{index: p.submitted, value: job}:
		p.submitted++
		return true
	}
}

// Wait closes the queue, waits for the workers and returns the results in
// submission order. Jobs abandoned by a shutdown have no result.
func (p *Pool[T, R]) Wait() []R {
	p.closeQueue()
	p.wg.Wait()
	p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()
	sort.Slice(p.results, func(i, j int) bool { return p.results[i].index < p.results[j].index })

	out := make([]R, len(p.results))
	for i, r := range p.results {
		out[i] = r.value
	}
	return out
}

// Shutdown cancels in-flight jobs and stops the workers
func (p *Pool[T, R]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}

func (p *Pool[T, R]) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}
