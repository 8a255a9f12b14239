package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("notelinks.scheduler")

var ErrStopped = errors.New("scheduler stopped")

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

// Scheduler runs tasks one at a time in the order they were scheduled.
type Scheduler struct {
	taskQueue       chan Task
	lowPriorityLock sync.Mutex

	mu       sync.RWMutex
	stopped  bool
	stopChan chan struct{}

	senders sync.WaitGroup // calls currently trying to enqueue
	loops   sync.WaitGroup // goroutines owned by the scheduler

	// pending counts tasks enqueued but not yet finished.
	pendingMu sync.Mutex
	idle      *sync.Cond
	pending   int
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	s := &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.pendingMu)
	return s
}

func (s *Scheduler) addPending(n int) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending += n
	if s.pending == 0 {
		s.idle.Broadcast()
	}
}

// RunScheduler starts the scheduler loop. Tasks receive ctx.
func (s *Scheduler) RunScheduler(ctx context.Context) {
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		for task := range s.taskQueue {
			log.Debugf("executing %s task", task.Name)
			if err := task.Execute(ctx); err != nil {
				log.Errorf("task %s: %v", task.Name, err)
			}
			s.addPending(-1)
		}
	}()
}

// enter registers a sender unless the scheduler is stopping.
func (s *Scheduler) enter() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return false
	}
	s.senders.Add(1)
	s.addPending(1)
	return true
}

// ScheduleHighPriorityTask queues task, waiting for room in the queue.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) error {
	if !s.enter() {
		return ErrStopped
	}
	defer s.senders.Done()

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.stopChan:
		s.addPending(-1)
		return ErrStopped
	}
}

// TrySchedule queues task unless the queue is full or the scheduler
// stopped. It never blocks.
func (s *Scheduler) TrySchedule(task Task) bool {
	if !s.enter() {
		return false
	}
	defer s.senders.Done()

	select {
	case s.taskQueue <- task:
		return true
	default:
		s.addPending(-1)
		return false
	}
}

// SchedulePeriodicTask queues lowTask before it returns and then every
// interval. A run is skipped when the queue is full.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) {
	schedule := func() {
		s.lowPriorityLock.Lock()
		defer s.lowPriorityLock.Unlock()
		if s.TrySchedule(lowTask) {
			log.Debugf("scheduled %s", lowTask.Name)
		} else {
			log.Infof("skipped scheduling %s", lowTask.Name)
		}
	}

	schedule()

	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				schedule()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Wait blocks until every task scheduled so far has finished.
func (s *Scheduler) Wait() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for s.pending > 0 {
		s.idle.Wait()
	}
}

// StopScheduler refuses new tasks, runs the queued ones and returns once
// all scheduler goroutines have exited.
func (s *Scheduler) StopScheduler() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	log.Info("stopping scheduler")
	close(s.stopChan)
	s.senders.Wait()
	close(s.taskQueue)
	s.loops.Wait()
	log.Info("scheduler stopped")
}
