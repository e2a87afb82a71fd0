// Task control block and lifecycle.

package rtos_internal

import "math"

const (
	TASK_NAME_MAX_LEN           = 31
	TASK_INITIAL_HELD_MUTEX_CAP = 4

	// Numerically lowest = logically highest:
	PRIORITY_HIGHEST = 0
	// Reserved for the idle task:
	PRIORITY_IDLE = 255
)

type TaskState int

const (
	TaskStateReady TaskState = iota
	TaskStateRunning
	TaskStateBlocked
	TaskStateSuspended
	TaskStateTerminated
)

var taskStateMap = map[TaskState]string{
	TaskStateReady:      "Ready",
	TaskStateRunning:    "Running",
	TaskStateBlocked:    "Blocked",
	TaskStateSuspended:  "Suspended",
	TaskStateTerminated: "Terminated",
}

func (state TaskState) String() string {
	return taskStateMap[state]
}

func (state TaskState) visualState() VisualState {
	switch state {
	case TaskStateRunning:
		return VisRunning
	case TaskStateReady:
		return VisReady
	case TaskStateBlocked:
		return VisBlocked
	case TaskStateSuspended, TaskStateTerminated:
		return VisSuspended
	}
	return VisNone
}

// The nominal entry point of a task. The simulator runs in virtual time and
// never invokes it; it is carried as task identity only.
type TaskFunc func(arg any)

type TaskControlBlock struct {
	// Identity:
	id    int
	name  string
	state TaskState

	// Nominal execution context (no real stack switching takes place):
	fn  TaskFunc
	arg any

	// Priority, lower numeric value wins. The effective priority may be
	// boosted below originalPriority by priority inheritance:
	priority          int
	originalPriority  int
	priorityInherited bool

	// Timing, in virtual ticks:
	period           uint64 // 0 = aperiodic
	relativeDeadline uint64
	nextRelease      uint64
	absoluteDeadline uint64
	execTime         uint64 // accumulated this invocation
	wcetObserved     uint64
	totalExecTime    uint64 // across all invocations
	remainingWork    uint64 // unsimulated work left
	readySince       uint64 // tick when last became Ready

	// Statistics:
	invocations    uint32
	deadlineMisses uint32
	preemptions    uint32
	priorityBoosts uint32

	// Resource tracking for priority inheritance:
	heldMutexes []*Mutex
	blockedOn   *Mutex

	// Back-reference to the owning scheduler:
	scheduler *Scheduler
}

var taskLog = NewCompLogger("task")

// Create a new task and register it with the scheduler. The task starts
// Ready. Under the rate monotonic policy the priority argument of a periodic
// task is overridden with the period as a stopgap; RmsRecalculatePriorities
// assigns the actual ranks. Returns nil if the scheduler is full.
func (scheduler *Scheduler) CreateTask(
	name string,
	fn TaskFunc,
	arg any,
	priority int,
	period, deadline, wcet uint64,
) *TaskControlBlock {
	if scheduler == nil {
		return nil
	}
	if len(scheduler.allTasks) >= MAX_ALL_TASKS {
		taskLog.Errorf("CreateTask %q: scheduler full (%d tasks)", name, MAX_ALL_TASKS)
		return nil
	}
	if len(name) > TASK_NAME_MAX_LEN {
		name = name[:TASK_NAME_MAX_LEN]
	}

	relativeDeadline := deadline
	if relativeDeadline == 0 {
		relativeDeadline = period
	}

	task := &TaskControlBlock{
		id:                scheduler.nextId,
		name:              name,
		state:             TaskStateReady,
		fn:                fn,
		arg:               arg,
		priority:          priority,
		originalPriority:  priority,
		period:            period,
		relativeDeadline:  relativeDeadline,
		nextRelease:       scheduler.systemTicks + period,
		absoluteDeadline:  scheduler.systemTicks + relativeDeadline,
		remainingWork:     wcet,
		readySince:        scheduler.systemTicks,
		invocations:       1,
		heldMutexes:       make([]*Mutex, 0, TASK_INITIAL_HELD_MUTEX_CAP),
		scheduler:         scheduler,
	}
	scheduler.nextId++

	// RMS auto-priority: shorter period -> higher priority. The period value
	// is a placeholder until RmsRecalculatePriorities assigns ranks:
	if scheduler.policy == SchedPolicyRateMonotonic && period > 0 {
		task.priority = int(period)
		task.originalPriority = int(period)
	}

	scheduler.allTasks = append(scheduler.allTasks, task)
	scheduler.readyQueue.insert(task)

	scheduler.emit(EventCreated, task, VisReady, "%s created (P%d)", task.name, task.priority)

	return task
}

// Accessors; the kernel operates on the unexported fields directly, these
// exist for the public facade and the demo fixtures.

func (task *TaskControlBlock) Id() int                 { return task.id }
func (task *TaskControlBlock) Name() string            { return task.name }
func (task *TaskControlBlock) State() TaskState        { return task.state }
func (task *TaskControlBlock) Priority() int           { return task.priority }
func (task *TaskControlBlock) OriginalPriority() int   { return task.originalPriority }
func (task *TaskControlBlock) PriorityInherited() bool { return task.priorityInherited }
func (task *TaskControlBlock) Period() uint64          { return task.period }
func (task *TaskControlBlock) RemainingWork() uint64   { return task.remainingWork }
func (task *TaskControlBlock) ExecTime() uint64        { return task.execTime }
func (task *TaskControlBlock) TotalExecTime() uint64   { return task.totalExecTime }
func (task *TaskControlBlock) WcetObserved() uint64    { return task.wcetObserved }
func (task *TaskControlBlock) Invocations() uint32     { return task.invocations }
func (task *TaskControlBlock) DeadlineMisses() uint32  { return task.deadlineMisses }
func (task *TaskControlBlock) Preemptions() uint32     { return task.preemptions }
func (task *TaskControlBlock) PriorityBoosts() uint32  { return task.priorityBoosts }
func (task *TaskControlBlock) BlockedOn() *Mutex       { return task.blockedOn }

// Change a task's state and update the ready queue accordingly. Transitions
// to Terminated are absorbing.
func (task *TaskControlBlock) SetState(newState TaskState) {
	if task == nil {
		return
	}
	old := task.state
	if old == newState || old == TaskStateTerminated {
		return
	}

	scheduler := task.scheduler
	task.state = newState

	// Queue bookkeeping:
	if old == TaskStateReady && newState != TaskStateReady {
		scheduler.readyQueue.remove(task)
	}
	if newState == TaskStateReady && old != TaskStateReady {
		task.readySince = scheduler.systemTicks
		scheduler.readyQueue.insert(task)
	}

	scheduler.emit(EventStateChange, task, newState.visualState(), "")
}

// Suspend a task; no-op on a terminated task.
func (task *TaskControlBlock) Suspend() {
	if task == nil || task.state == TaskStateTerminated {
		return
	}
	task.SetState(TaskStateSuspended)
}

// Resume a suspended task; no-op unless the task is suspended.
func (task *TaskControlBlock) Resume() {
	if task == nil || task.state != TaskStateSuspended {
		return
	}
	task.SetState(TaskStateReady)
}

// Terminate a task permanently.
func (task *TaskControlBlock) Terminate() {
	if task == nil {
		return
	}
	task.SetState(TaskStateTerminated)
}

// Set a task's effective priority and re-sort the ready queue as needed.
func (task *TaskControlBlock) SetPriority(newPriority int) {
	if task == nil {
		return
	}
	scheduler := task.scheduler
	task.priority = newPriority

	if task.state == TaskStateReady {
		scheduler.readyQueue.remove(task)
		scheduler.readyQueue.insert(task)
	}
}

func (task *TaskControlBlock) addHeldMutex(mutex *Mutex) {
	if task == nil || mutex == nil {
		return
	}
	task.heldMutexes = append(task.heldMutexes, mutex)
}

func (task *TaskControlBlock) removeHeldMutex(mutex *Mutex) {
	if task == nil || mutex == nil {
		return
	}
	for i, m := range task.heldMutexes {
		if m == mutex {
			task.heldMutexes = append(task.heldMutexes[:i], task.heldMutexes[i+1:]...)
			return
		}
	}
}

// HoldsMutex reports whether the task currently owns the given mutex.
func (task *TaskControlBlock) HoldsMutex(mutex *Mutex) bool {
	for _, m := range task.heldMutexes {
		if m == mutex {
			return true
		}
	}
	return false
}

func (task *TaskControlBlock) isIdle() bool {
	return task != nil && task.scheduler != nil && task == task.scheduler.idleTask
}

const noDeadline = math.MaxUint64
