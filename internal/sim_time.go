// Virtual time: tick handler, periodic release, deadline check, cooperative
// work simulation.

package rtos_internal

// Within a tick, the ordering guarantee is: execution counter update, then
// periodic release check, then deadline check. Preemption is detected after
// time advance, so a task released this tick preempts at the next dispatch
// call.

// TickHandler advances virtual time by one tick: it charges the tick to the
// running task, releases any due periodic tasks and records any deadline
// overruns.
func (scheduler *Scheduler) TickHandler() {
	if scheduler == nil {
		return
	}

	scheduler.systemTicks++

	// Update the current task's execution counters:
	curr := scheduler.currentTask
	if curr != nil && curr.state == TaskStateRunning && !curr.isIdle() {
		curr.execTime++
		curr.totalExecTime++
		if curr.remainingWork > 0 {
			curr.remainingWork--
		}
		if curr.execTime > curr.wcetObserved {
			curr.wcetObserved = curr.execTime
		}
	}

	scheduler.CheckPeriodicReleases()
	scheduler.CheckDeadlines()
}

// CheckPeriodicReleases releases every suspended periodic task whose release
// time is exactly now: new invocation, fresh deadline, back to Ready.
func (scheduler *Scheduler) CheckPeriodicReleases() {
	if scheduler == nil {
		return
	}

	for _, task := range scheduler.allTasks {
		if task == nil || task.isIdle() || task.period == 0 {
			continue
		}

		if task.state == TaskStateSuspended && scheduler.systemTicks == task.nextRelease {
			task.nextRelease = scheduler.systemTicks + task.period
			task.absoluteDeadline = scheduler.systemTicks + task.relativeDeadline
			task.execTime = 0
			task.invocations++

			task.SetState(TaskStateReady)

			scheduler.emit(EventReleased, task, VisNone,
				"%s released (period=%d, deadline=%d)",
				task.name, task.period, task.absoluteDeadline)
		}
	}
}

// CheckDeadlines records a deadline miss for every runnable task past its
// absolute deadline with work left. The deadline is then pushed out so the
// miss fires once per invocation.
func (scheduler *Scheduler) CheckDeadlines() {
	if scheduler == nil {
		return
	}

	for _, task := range scheduler.allTasks {
		if task == nil || task.isIdle() {
			continue
		}
		if task.period == 0 && task.relativeDeadline == 0 {
			continue
		}

		if (task.state == TaskStateRunning || task.state == TaskStateReady) &&
			task.absoluteDeadline > 0 &&
			scheduler.systemTicks > task.absoluteDeadline &&
			task.remainingWork > 0 {
			task.deadlineMisses++
			scheduler.emit(EventDeadlineMiss, task, VisNone,
				"DEADLINE MISS: %s deadline=%d actual=%d late=%d",
				task.name, task.absoluteDeadline, scheduler.systemTicks,
				scheduler.systemTicks-task.absoluteDeadline)
			// Suppress repeated firing until the next release:
			task.absoluteDeadline = noDeadline
		}
	}
}

// AdvanceTime runs the tick handler and the dispatch decision n times.
func (scheduler *Scheduler) AdvanceTime(ticks uint64) {
	for i := uint64(0); i < ticks; i++ {
		scheduler.TickHandler()
		scheduler.Schedule()
	}
}

// SimulateWork models cooperative execution of a logical unit of work by the
// task. It is a re-entrant step function, not a coroutine: it returns early
// when the task loses the CPU or a higher-priority task becomes ready, and
// the fixture's loop is expected to re-enter it once the task runs again.
func (scheduler *Scheduler) SimulateWork(task *TaskControlBlock, workTicks uint64) {
	if scheduler == nil || task == nil {
		return
	}

	task.remainingWork = workTicks

	for i := uint64(0); i < workTicks; i++ {
		// If we were preempted, wait until we are running again:
		if scheduler.currentTask != task {
			return
		}

		scheduler.TickHandler()

		if scheduler.NeedsPreemption() {
			scheduler.Schedule()
			return
		}
	}
}
