package worker

import "log"

type jobKind int

const (
	jobRun jobKind = iota
	jobStop
)

// Job is one inbound update bound to the handler that processes it. Jobs
// for the same chat are executed in arrival order; jobs for different chats
// run concurrently on the pool.
type Job struct {
	ChatID int64
	Run    func()
	kind   jobKind
}

type Worker struct {
	pool *workerPool
	jobs chan Job
	quit chan struct{}
}

func newWorker(pool *workerPool) *Worker {
	return &Worker{
		pool: pool,
		jobs: make(chan Job),
		quit: make(chan struct{}),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			w.pool.release(w.jobs)
			select {
			case job := <-w.jobs:
				if job.kind == jobStop {
					return
				}
				runJob(job)
			case <-w.quit:
				return
			}
		}
	}()
}

// runJob contains a job panic to the job itself: the worker, the pool and
// the rest of the queue keep running, the failure becomes a log line.
func runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker: job for chat %d panicked: %v", job.ChatID, r)
		}
	}()
	if job.Run != nil {
		job.Run()
	}
}

func (w *Worker) Stop() {
	close(w.quit)
}
