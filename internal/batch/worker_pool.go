package batch

import "sync"

// workerPool runs batch items on a bounded number of goroutines
type workerPool struct {
	workers int
	jobs    chan func()
	wg      sync.WaitGroup
	once    sync.Once
}

func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	return &workerPool{
		workers: workers,
		jobs:    make(chan func(), workers*2),
	}
}

// Start launches the workers
func (wp *workerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *workerPool) worker() {
	for job := range wp.jobs {
		job()
	}
}

// Submit queues a job; blocks when the queue is full
func (wp *workerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.jobs <- func() {
		defer wp.wg.Done()
		job()
	}
}

// Wait blocks until every submitted job has finished
func (wp *workerPool) Wait() {
	wp.wg.Wait()
}

// Close shuts the pool down
func (wp *workerPool) Close() {
	close(wp.jobs)
}
