package utils

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	logger "github.com/prime-labs/express-bot/middleware/log"
)

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// WorkerPool runs jobs on a fixed number of goroutines fed by a bounded queue.
type WorkerPool struct {
	jobs      chan func()
	workerNum int
	logger    *logger.Logger

	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	once    sync.Once
}

// NewWorkerPool creates a pool; call Start before submitting.
func NewWorkerPool(workerNum, queueSize int, log *logger.Logger) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &WorkerPool{
		jobs:      make(chan func(), queueSize),
		workerNum: workerNum,
		logger:    log,
	}
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerNum; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(workerID, job)
			}
		}(i)
	}
	p.logger.Info("worker pool started", zap.Int("workers", p.workerNum), zap.Int("queue_size", cap(p.jobs)))
}

// A panicking job must not take its worker down with it.
func (p *WorkerPool) run(workerID int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker job panicked", zap.Int("worker_id", workerID), zap.Any("panic", r))
		}
	}()
	job()
}

// Submit queues a job, blocking while the queue is full.
func (p *WorkerPool) Submit(job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	p.jobs <- job
	return nil
}

// Stop rejects new jobs, lets the workers drain the queue and waits for them.
func (p *WorkerPool) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// QueueLen reports the number of jobs waiting for a worker.
func (p *WorkerPool) QueueLen() int {
	return len(p.jobs)
}
