package worker

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrDispatcherBusy signals that the inbound queue is full.
var ErrDispatcherBusy = errors.New("dispatcher queue is full")

type chatQueue struct {
	jobs     []Job
	enqueued bool
}

// DispatcherConfig sizes the worker pool behind the dispatcher.
type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	WorkerIdleTimeout time.Duration
}

// Dispatcher fans inbound jobs out to the pool. Jobs are handed to workers
// in per-chat arrival order, and chats take turns in LRU order so one busy
// chat cannot starve the rest. Execution itself is concurrent; the store's
// per-key last-write-wins discipline is unchanged.
type Dispatcher struct {
	pool     *workerPool
	jobQueue chan Job

	mu        sync.Mutex
	queues    map[int64]*chatQueue
	ready     *list.List // LRU of chat IDs with pending jobs
	positions map[int64]*list.Element
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	d := &Dispatcher{
		pool:      newWorkerPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout),
		jobQueue:  make(chan Job, cfg.QueueSize),
		queues:    make(map[int64]*chatQueue),
		ready:     list.New(),
		positions: make(map[int64]*list.Element),
	}
	go d.run()
	return d
}

// Submit hands one job to the dispatcher without blocking the caller.
func (d *Dispatcher) Submit(job Job) error {
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (d *Dispatcher) run() {
	for {
		if !d.dispatchOne() {
			job := <-d.jobQueue // nothing pending, block for work
			d.enqueueJob(job)
			continue
		}
		select {
		case job := <-d.jobQueue:
			d.enqueueJob(job)
		default:
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.ChatID]
	if q == nil {
		q = &chatQueue{}
		d.queues[job.ChatID] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	elem := d.ready.PushBack(job.ChatID)
	d.positions[job.ChatID] = elem
}

// dispatchOne hands the front chat's next job to a worker, rotating the
// chat to the back of the LRU when it still has work.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}
	chatID := elem.Value.(int64)
	q := d.queues[chatID]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		q.enqueued = false
		delete(d.queues, chatID)
		d.ready.Remove(elem)
		delete(d.positions, chatID)
	} else {
		d.ready.MoveToBack(elem)
	}
	d.mu.Unlock()

	workerChan := d.pool.acquire()
	debugLog("[dispatcher] assign job for chat %d", chatID)
	workerChan <- job
	return true
}
