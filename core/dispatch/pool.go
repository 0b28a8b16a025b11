package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/cmdcore/core/logger"
)

// pool runs async invocations on a fixed set of workers. Submit never
// blocks: when the queue is full or the pool is closed the job runs on a
// fresh goroutine instead.
type pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	overflow atomic.Uint64
}

func newPool(workers, queueSize int) *pool {
	if queueSize <= 0 {
		queueSize = workers * 16
	}
	p := &pool{jobs: make(chan func(), queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// submit reports whether the job was queued to a worker.
func (p *pool) submit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.closed {
		select {
		case p.jobs <- job:
			return true
		default:
		}
	}
	n := p.overflow.Add(1)
	logger.Dispatch.LogAttrs(context.Background(), slog.LevelWarn, "async.overflow",
		slog.Bool("closed", p.closed),
		slog.Uint64("count", n),
	)
	go job()
	return false
}

// close stops accepting jobs and waits for queued ones to finish.
func (p *pool) close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
