// Core scheduler: dispatch decision, context switch, preemption test.

package rtos_internal

//  Scheduling Model
//  ================
//
// The scheduler is a deterministic, tick-driven simulator of fixed-priority
// preemptive dispatch over exactly one virtual CPU. No goroutines are spawned
// and no real preemption takes place: the scheduler decides which task
// control block is *logically* current and all state changes are sequential
// within a tick.
//
// The dispatch decision (Schedule) picks the ready-queue head, or the idle
// task when the queue is empty, and switches context only when the candidate
// has strictly higher priority than the running task. Equal priority never
// preempts, which combined with the FIFO tie-break of the ready queue yields
// run-to-completion among equals.
//
// The test harness (or the demo scenarios) drives progress by interleaving
// TickHandler and Schedule calls; see sim_time.go.

import (
	"fmt"
	"math"
)

const MAX_ALL_TASKS = 64

type SchedPolicy int

const (
	SchedPolicyFixedPriority SchedPolicy = iota
	SchedPolicyRateMonotonic
)

var schedPolicyMap = map[SchedPolicy]string{
	SchedPolicyFixedPriority: "fixed_priority",
	SchedPolicyRateMonotonic: "rate_monotonic",
}

func (policy SchedPolicy) String() string {
	return schedPolicyMap[policy]
}

// SchedPolicyFromName maps a config policy name to the policy; it returns an
// error for unknown names.
func SchedPolicyFromName(name string) (SchedPolicy, error) {
	for policy, policyName := range schedPolicyMap {
		if name == policyName {
			return policy, nil
		}
	}
	return SchedPolicyFixedPriority, fmt.Errorf("unknown scheduling policy %q", name)
}

var schedulerLog = NewCompLogger("scheduler")

type Scheduler struct {
	policy                     SchedPolicy
	priorityInheritanceEnabled bool

	currentTask *TaskControlBlock
	idleTask    *TaskControlBlock

	// Ready queue (sorted by priority, index 0 = highest):
	readyQueue readyQueue

	// All tasks in the system, idle included:
	allTasks []*TaskControlBlock

	// Timing:
	systemTicks     uint64
	contextSwitches uint64

	// Unique ID counter:
	nextId int

	// Where scheduling events are published:
	sink EventSink
}

// NewScheduler creates a scheduler with the given policy configuration and a
// freshly attached timeline as its event sink. Multiple independent
// schedulers may coexist.
func NewScheduler(schedulerCfg *SchedulerConfig, timelineCfg *TimelineConfig) (*Scheduler, error) {
	if schedulerCfg == nil {
		schedulerCfg = DefaultSchedulerConfig()
	}
	policy, err := SchedPolicyFromName(schedulerCfg.Policy)
	if err != nil {
		return nil, err
	}
	scheduler := NewSchedulerWithPolicy(policy, schedulerCfg.PriorityInheritance, NewTimeline(timelineCfg))
	return scheduler, nil
}

// NewSchedulerWithPolicy creates a scheduler with explicit policy settings;
// this is the constructor the canned scenarios and the tests use. A nil sink
// disables event publication.
func NewSchedulerWithPolicy(policy SchedPolicy, priorityInheritance bool, sink EventSink) *Scheduler {
	scheduler := &Scheduler{
		policy:                     policy,
		priorityInheritanceEnabled: priorityInheritance,
		allTasks:                   make([]*TaskControlBlock, 0, MAX_ALL_TASKS),
		sink:                       sink,
	}

	// The idle task is special-cased: it never sits in the ready queue and it
	// never runs out of work.
	scheduler.idleTask = scheduler.CreateTask("Idle", idleTaskFunc, nil, PRIORITY_IDLE, 0, 0, 0)
	if scheduler.idleTask != nil {
		scheduler.readyQueue.remove(scheduler.idleTask)
		scheduler.idleTask.remainingWork = math.MaxUint64
	}

	schedulerLog.Debugf(
		"policy=%s, priority_inheritance=%v", policy, priorityInheritance,
	)

	return scheduler
}

func idleTaskFunc(arg any) {
	// Idle loop, runs when nothing else can.
}

func (scheduler *Scheduler) emit(
	kind EventKind,
	task *TaskControlBlock,
	state VisualState,
	format string,
	args ...any,
) {
	if scheduler == nil || scheduler.sink == nil {
		return
	}
	annotation := ""
	if format != "" {
		annotation = fmt.Sprintf(format, args...)
	}
	scheduler.sink.RecordEvent(&Event{
		Tick:       scheduler.systemTicks,
		Task:       task,
		State:      state,
		Kind:       kind,
		Annotation: annotation,
	})
}

// Accessors:

func (scheduler *Scheduler) Policy() SchedPolicy { return scheduler.policy }

func (scheduler *Scheduler) PriorityInheritanceEnabled() bool {
	return scheduler.priorityInheritanceEnabled
}

func (scheduler *Scheduler) CurrentTask() *TaskControlBlock { return scheduler.currentTask }

func (scheduler *Scheduler) IdleTask() *TaskControlBlock { return scheduler.idleTask }

func (scheduler *Scheduler) Ticks() uint64 { return scheduler.systemTicks }

func (scheduler *Scheduler) ContextSwitches() uint64 { return scheduler.contextSwitches }

// AllTasks returns the registered tasks, idle included. The returned slice
// is owned by the scheduler, callers should not modify it.
func (scheduler *Scheduler) AllTasks() []*TaskControlBlock { return scheduler.allTasks }

// ReadyTasks returns the current ready queue content, head first; it is a
// copy safe to hold across operations.
func (scheduler *Scheduler) ReadyTasks() []*TaskControlBlock {
	tasks := make([]*TaskControlBlock, len(scheduler.readyQueue.tasks))
	copy(tasks, scheduler.readyQueue.tasks)
	return tasks
}

// Timeline returns the attached timeline, or nil if the sink is absent or
// not a timeline.
func (scheduler *Scheduler) Timeline() *Timeline {
	if timeline, ok := scheduler.sink.(*Timeline); ok {
		return timeline
	}
	return nil
}

// SetEventSink replaces the event sink, e.g. to observe the kernel directly.
func (scheduler *Scheduler) SetEventSink(sink EventSink) {
	scheduler.sink = sink
}

// NextTask returns the task the dispatcher would pick: the ready-queue head,
// or the idle task when the queue is empty.
func (scheduler *Scheduler) NextTask() *TaskControlBlock {
	if next := scheduler.readyQueue.peek(); next != nil {
		return next
	}
	return scheduler.idleTask
}

// ContextSwitch transitions `from` out of the CPU (back to Ready, counted as
// a preemption) and installs `to` as the running task.
func (scheduler *Scheduler) ContextSwitch(from, to *TaskControlBlock) {
	if scheduler == nil || to == nil || from == to {
		return
	}

	// Transition the outgoing task. The idle task is special-cased: it is
	// never placed into the ready queue.
	if from != nil && from.state == TaskStateRunning {
		from.state = TaskStateReady
		from.readySince = scheduler.systemTicks
		if !from.isIdle() {
			scheduler.readyQueue.insert(from)
			from.preemptions++
		}
		scheduler.emit(EventStateChange, from, VisReady, "")
	}

	// Transition the incoming task:
	scheduler.readyQueue.remove(to)
	to.state = TaskStateRunning
	scheduler.currentTask = to
	scheduler.contextSwitches++
	scheduler.emit(EventStateChange, to, VisRunning, "")
}

// Schedule runs the dispatch decision: pick the next task and switch context
// if it wins. Preemption requires strictly higher priority.
func (scheduler *Scheduler) Schedule() {
	if scheduler == nil {
		return
	}

	next := scheduler.NextTask()
	curr := scheduler.currentTask

	if next == curr {
		return
	}

	if curr != nil && curr.state == TaskStateRunning {
		if next.priority >= curr.priority {
			// Current still wins (lower number = higher priority):
			return
		}
		scheduler.emit(EventPreempted, curr, VisNone,
			"%s preempted by %s (P%d > P%d)",
			curr.name, next.name, next.priority, curr.priority)
	}

	scheduler.ContextSwitch(curr, next)
}

// NeedsPreemption reports whether a strictly higher-priority task than the
// current one sits at the head of the ready queue.
func (scheduler *Scheduler) NeedsPreemption() bool {
	if scheduler == nil || scheduler.currentTask == nil {
		return true
	}
	next := scheduler.readyQueue.peek()
	if next == nil {
		return false
	}
	return next.priority < scheduler.currentTask.priority
}

// Close releases all tasks owned by the scheduler: the ready queue, the task
// list and the current and idle task references are cleared; the task states
// are left unchanged. Mutexes and semaphores are owned by their creators, not
// the scheduler.
func (scheduler *Scheduler) Close() {
	if scheduler == nil {
		return
	}
	scheduler.readyQueue.clear()
	scheduler.currentTask = nil
	scheduler.idleTask = nil
	scheduler.allTasks = scheduler.allTasks[:0]
}
