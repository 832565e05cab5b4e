package engine

import (
	"context"
	"sync"
)

// DefaultTransferStreams bounds the number of file transfers in flight
// at once, globally per sync operation. The bound exists to keep
// socket and file-descriptor pressure against the storage endpoint
// predictable regardless of tree shape.
const DefaultTransferStreams = 5

// JobHandler processes one TransferJob.
type JobHandler func(context.Context, TransferJob) error

// WorkerPool runs a fixed number of workers draining a JobChannel.
// The first handler error cancels the pool context so no further jobs
// are admitted, and is returned from Wait.
type WorkerPool struct {
	jobChan JobChannel
	handler JobHandler

	ctx    context.Context
	cancel context.CancelFunc

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewWorkerPool creates a pool reading from jobChan. Workers are not
// started until Start is called.
func NewWorkerPool(ctx context.Context, jobChan JobChannel, handler JobHandler) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		jobChan: jobChan,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches count workers. If count is <= 0,
// DefaultTransferStreams is used.
func (p *WorkerPool) Start(count int) {
	if count <= 0 {
		count = DefaultTransferStreams
	}
	for i := 0; i < count; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for {
		// Check cancellation first so a failed pool never picks up
		// another queued job by select order luck.
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobChan:
			if !ok {
				// Channel closed: the walker finished emitting.
				return
			}
			if err := p.handler(p.ctx, job); err != nil {
				p.fail(err)
				return
			}
		}
	}
}

// fail records the first error and stops admitting new jobs.
func (p *WorkerPool) fail(err error) {
	p.errOnce.Do(func() {
		p.err = err
		p.cancel()
	})
}

// Context returns the pool's context, cancelled on the first handler
// error or by Stop. Producers feeding the JobChannel should select on
// it so a failed pool doesn't leave them blocked on a full channel.
func (p *WorkerPool) Context() context.Context {
	return p.ctx
}

// Wait blocks until every worker has exited, then releases the pool
// context and returns the first handler error, if any.
func (p *WorkerPool) Wait() error {
	p.wg.Wait()
	p.cancel()
	return p.err
}

// Stop cancels the pool context and waits for workers to exit. Jobs
// currently running are interrupted through their context.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}
