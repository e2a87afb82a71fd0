// Counting semaphore.

package rtos_internal

// Classic P/V counting semaphore with a priority-ordered wait queue. There
// is no ownership and no priority inheritance: semaphores model general
// signaling, not mutual exclusion.

const SEMAPHORE_NAME_MAX_LEN = 31

type Semaphore struct {
	count    int
	maxCount int

	// Priority-ordered wait queue:
	waiters waitQueue

	name string
	// Back-reference for dispatch on block/wake:
	scheduler *Scheduler
}

// NewSemaphore creates a counting semaphore with the given initial and
// maximum counts. The semaphore is owned by the caller, not the scheduler.
func NewSemaphore(scheduler *Scheduler, name string, initial, maxCount int) *Semaphore {
	if len(name) > SEMAPHORE_NAME_MAX_LEN {
		name = name[:SEMAPHORE_NAME_MAX_LEN]
	}
	return &Semaphore{
		count:     initial,
		maxCount:  maxCount,
		waiters:   waitQueue{name: name},
		name:      name,
		scheduler: scheduler,
	}
}

func (semaphore *Semaphore) Name() string    { return semaphore.name }
func (semaphore *Semaphore) Count() int      { return semaphore.count }
func (semaphore *Semaphore) MaxCount() int   { return semaphore.maxCount }
func (semaphore *Semaphore) NumWaiters() int { return semaphore.waiters.len() }

// Wait is the P operation: take a unit if available, block otherwise.
func (semaphore *Semaphore) Wait(task *TaskControlBlock) {
	if semaphore == nil || task == nil {
		return
	}

	if semaphore.count > 0 {
		semaphore.count--
		return
	}

	task.SetState(TaskStateBlocked)
	semaphore.waiters.insert(task)
	semaphore.scheduler.Schedule()
}

// Signal is the V operation: wake the highest-priority waiter if any,
// otherwise increment the count. The count saturates at maxCount, extra
// signals do not carry over.
func (semaphore *Semaphore) Signal(task *TaskControlBlock) {
	if semaphore == nil {
		return
	}
	// The signaler identity is not needed for semaphores:
	_ = task

	if semaphore.waiters.len() > 0 {
		waiter := semaphore.waiters.pop()
		waiter.SetState(TaskStateReady)
		semaphore.scheduler.Schedule()
	} else if semaphore.count < semaphore.maxCount {
		semaphore.count++
	}
}
