package worker

import (
	"context"
	"sort"
	"sync"
)

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	GetError() error
}

type queued struct {
	seq int
	job Job
}

type ordered struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of workers and returns results in submission order
type Pool struct {
	workers   int
	queue     chan queued
	results   chan ordered
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	next      int
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		queue:   make(chan queued, workers*2),
		results: make(chan ordered, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.queue:
			if !ok {
				return
			}
			res := q.job.Execute(p.ctx)
			select {
			case p.results <- ordered{seq: q.seq, result: res}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a job. It is not safe for concurrent use and must precede Wait.
func (p *Pool) Submit(job Job) {
	q := queued{seq: p.next, job: job}
	p.next++

	select {
	case <-p.ctx.Done():
	case p.queue <- q:
	}
}

// Wait closes the queue and collects results ordered by submission
func (p *Pool) Wait() []Result {
	close(p.queue)

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var collected []ordered
	for r := range p.results {
		collected = append(collected, r)
	}
	p.cancel()

	sort.Slice(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })

	out := make([]Result, len(collected))
	for i, r := range collected {
		out[i] = r.result
	}
	return out
}

// Shutdown stops the workers without draining the queue
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
