// Mutex with the priority inheritance protocol.

package rtos_internal

//  Priority Inheritance
//  ====================
//
// When a task blocks on a mutex held by a lower-priority owner, the owner
// temporarily inherits the blocker's priority so that medium-priority tasks
// cannot starve the critical section (the classic priority inversion).
//
// The inheritance is transitive: if the boosted owner is itself blocked on
// another mutex, the boost propagates along the blocked_on -> owner chain.
// Under the lock-then-wait discipline the chain is acyclic, but the walk is
// depth-bounded anyway so that a buggy fixture cannot recurse forever.
//
// Restoration is level-based, not stack-based: when the owner releases a
// mutex, it drops to the strongest demand among the waiters of the mutexes
// it *still* holds, never below its original priority. This is the correct
// behavior when a task holds several contended mutexes at once.

const (
	MUTEX_NAME_MAX_LEN = 31

	// Transitive inheritance walk bound; chains cannot be longer than the
	// task population:
	PRIORITY_INHERIT_MAX_DEPTH = MAX_ALL_TASKS
)

var mutexLog = NewCompLogger("mutex")

type Mutex struct {
	locked bool
	owner  *TaskControlBlock

	// Priority-ordered wait queue:
	waiters waitQueue

	name string
	// Back-reference for PI and dispatch operations:
	scheduler *Scheduler
}

// NewMutex creates an unlocked mutex attached to the scheduler. The mutex is
// owned by the caller, not the scheduler.
func NewMutex(scheduler *Scheduler, name string) *Mutex {
	if len(name) > MUTEX_NAME_MAX_LEN {
		name = name[:MUTEX_NAME_MAX_LEN]
	}
	return &Mutex{
		waiters:   waitQueue{name: name},
		name:      name,
		scheduler: scheduler,
	}
}

func (mutex *Mutex) Name() string             { return mutex.name }
func (mutex *Mutex) Locked() bool             { return mutex.locked }
func (mutex *Mutex) Owner() *TaskControlBlock { return mutex.owner }
func (mutex *Mutex) NumWaiters() int          { return mutex.waiters.len() }

// Destroy releases the mutex resources. Destroying a locked mutex
// force-releases it with a diagnostic; this is test-cleanup behavior, not a
// sanctioned unlock path.
func (mutex *Mutex) Destroy() {
	if mutex == nil {
		return
	}
	if mutex.locked && mutex.owner != nil {
		mutexLog.Warnf("Destroy %s: still locked by %s, force-releasing", mutex.name, mutex.owner.name)
		mutex.owner.removeHeldMutex(mutex)
		mutex.locked = false
		mutex.owner = nil
	}
}

// Lock acquires the mutex for the task, or blocks the task when the mutex is
// contended. With priority inheritance enabled a higher-priority requester
// boosts the owner (transitively) before blocking.
func (mutex *Mutex) Lock(task *TaskControlBlock) {
	if mutex == nil || task == nil {
		return
	}
	scheduler := mutex.scheduler

	if !mutex.locked {
		mutex.locked = true
		mutex.owner = task
		task.addHeldMutex(mutex)
		scheduler.emit(EventMutexLock, task, VisNone, "%s locks %s", task.name, mutex.name)
		return
	}

	// Already locked, contention:
	scheduler.emit(EventContention, task, VisNone,
		"%s tries to lock %s (blocked by %s)", task.name, mutex.name, mutex.owner.name)

	if scheduler != nil && scheduler.priorityInheritanceEnabled &&
		task.priority < mutex.owner.priority {
		scheduler.emit(EventPriorityInherit, mutex.owner, VisNone,
			"PRIORITY INHERITANCE: %s (P%d) inherits from %s (P%d) via %s",
			mutex.owner.name, mutex.owner.priority,
			task.name, task.priority, mutex.name)
		priorityInherit(mutex.owner, task.priority, 0)
	}

	// Block the requesting task:
	task.blockedOn = mutex
	task.SetState(TaskStateBlocked)
	mutex.waiters.insert(task)

	scheduler.Schedule()
}

// Unlock releases the mutex. Only the owner may unlock; a non-owner call is
// a diagnostic no-op. The highest-priority waiter, if any, receives the
// mutex directly and becomes Ready.
func (mutex *Mutex) Unlock(task *TaskControlBlock) {
	if mutex == nil || task == nil {
		return
	}
	scheduler := mutex.scheduler

	if mutex.owner != task {
		mutexLog.Warnf("Unlock %s: %s is not the owner", mutex.name, task.name)
		return
	}

	scheduler.emit(EventMutexUnlock, task, VisNone, "%s unlocks %s", task.name, mutex.name)

	mutex.owner.removeHeldMutex(mutex)

	// Restore the priority before handing off the mutex:
	if scheduler != nil && scheduler.priorityInheritanceEnabled {
		priorityRestore(task)
	}

	if mutex.waiters.len() > 0 {
		waiter := mutex.waiters.pop()
		waiter.blockedOn = nil

		// Transfer ownership:
		mutex.owner = waiter
		waiter.addHeldMutex(mutex)

		waiter.SetState(TaskStateReady)

		scheduler.emit(EventMutexAcquire, waiter, VisNone,
			"%s acquires %s (was waiting)", waiter.name, mutex.name)
	} else {
		mutex.locked = false
		mutex.owner = nil
	}

	// The newly woken task may preempt:
	scheduler.Schedule()
}

// priorityInherit boosts the task to newPriority if that is strictly
// stronger, saving the baseline on the first boost, and propagates the boost
// along the blocked_on chain.
func priorityInherit(task *TaskControlBlock, newPriority int, depth int) {
	if task == nil {
		return
	}
	if depth >= PRIORITY_INHERIT_MAX_DEPTH {
		mutexLog.Errorf(
			"priorityInherit %s: inheritance chain deeper than %d, possible cycle",
			task.name, PRIORITY_INHERIT_MAX_DEPTH,
		)
		return
	}

	// Only strict boosts apply (lower number = higher priority):
	if newPriority >= task.priority {
		return
	}

	scheduler := task.scheduler
	oldPriority := task.priority

	if !task.priorityInherited {
		task.originalPriority = task.priority
		task.priorityInherited = true
	}

	task.priority = newPriority
	task.priorityBoosts++

	scheduler.emit(EventPriorityBoost, task, VisNone,
		"%s priority boosted: P%d -> P%d (inherited)", task.name, oldPriority, newPriority)

	// Re-sort if in the ready queue:
	if task.state == TaskStateReady && scheduler != nil {
		scheduler.readyQueue.remove(task)
		scheduler.readyQueue.insert(task)
	}

	// Transitive inheritance: if this task is itself blocked on another
	// mutex, propagate the boost to that mutex's owner.
	if task.blockedOn != nil && task.blockedOn.owner != nil {
		priorityInherit(task.blockedOn.owner, newPriority, depth+1)
	}
}

// priorityRestore drops the task to the strongest priority still demanded by
// the waiters of the mutexes it holds, never below its baseline.
func priorityRestore(task *TaskControlBlock) {
	if task == nil || !task.priorityInherited {
		return
	}

	scheduler := task.scheduler
	oldPriority := task.priority

	needed := task.originalPriority
	for _, mutex := range task.heldMutexes {
		if mutex == nil {
			continue
		}
		for _, waiter := range mutex.waiters.tasks {
			if waiter.priority < needed {
				needed = waiter.priority
			}
		}
	}

	task.priority = needed
	if task.priority == task.originalPriority {
		task.priorityInherited = false
	}

	scheduler.emit(EventPriorityRestore, task, VisNone,
		"PRIORITY RESTORED: %s (P%d -> P%d)", task.name, oldPriority, task.priority)

	if task.state == TaskStateReady && scheduler != nil {
		scheduler.readyQueue.remove(task)
		scheduler.readyQueue.insert(task)
	}
}
