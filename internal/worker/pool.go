package worker

import "sync"

// Task represents a unit of work executed by the pool.
type Task func()

// Pool defines a simple worker pool with a bounded queue.
type Pool interface {
	Submit(Task)
	TrySubmit(Task) bool
	Stop()
}

// NewPool creates a pool with n workers and a queue holding up to
// queueSize pending tasks. n<=0 defaults to 1, queueSize<0 defaults to 0.
func NewPool(n, queueSize int) Pool {
	if n <= 0 {
		n = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &pool{jobs: make(chan Task, queueSize)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if job != nil {
					job()
				}
			}
		}()
	}
	return p
}

type pool struct {
	jobs chan Task
	wg   sync.WaitGroup
}

// Submit blocks until the task is queued.
func (p *pool) Submit(t Task) {
	p.jobs <- t
}

// TrySubmit queues the task without blocking and reports false when the
// queue is full.
func (p *pool) TrySubmit(t Task) bool {
	select {
	case p.jobs <- t:
		return true
	default:
		return false
	}
}

func (p *pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
