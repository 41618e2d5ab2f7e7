package worker

import (
	"context"
	"sync"

	"canvas-analytics-etl/internal/logger"

	"github.com/rs/zerolog"
)

type WorkerPool struct {
	workerCount int
	jobChan     chan func(context.Context)
	wg          sync.WaitGroup
	log         zerolog.Logger
}

func NewWorkerPool(workerCount int) *WorkerPool {
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan func(context.Context), workerCount*2),
		log:         logger.Get(),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Debug().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop closes the job channel and blocks until every queued job has run.
func (wp *WorkerPool) Stop() {
	close(wp.jobChan)
	wp.wg.Wait()
	wp.log.Debug().Msg("Worker pool drained")
}

// Submit blocks until a worker can take the job. Fetch tasks must not be
// dropped, so there is no fast-fail path here.
func (wp *WorkerPool) Submit(ctx context.Context, job func(context.Context)) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.jobChan <- job:
		return nil
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Worker stopping due to context cancellation")
			return
		case job, ok := <-wp.jobChan:
			if !ok {
				return
			}
			job(ctx)
		}
	}
}
