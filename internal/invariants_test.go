// Shared test helpers: kernel invariant checks and an event collecting sink.

package rtos_internal

import (
	"bytes"
	"fmt"
)

// The invariants that must hold at every operation boundary; several unit
// tests run this check after their scripted steps, and some of the scenario
// driven tests run it after every tick.
func checkSchedulerInvariants(scheduler *Scheduler, mutexes []*Mutex) error {
	errBuf := &bytes.Buffer{}

	// At most one task is Running at any observation point:
	numRunning := 0
	for _, task := range scheduler.allTasks {
		if task.state == TaskStateRunning {
			numRunning++
		}
	}
	if numRunning > 1 {
		fmt.Fprintf(errBuf, "\n%d tasks Running, want at most 1", numRunning)
	}

	// Ready queue sorted ascending by priority, and membership iff Ready:
	readyTasks := scheduler.readyQueue.tasks
	for i := 1; i < len(readyTasks); i++ {
		if readyTasks[i-1].priority > readyTasks[i].priority {
			fmt.Fprintf(errBuf,
				"\nready queue out of order at #%d: %q(P%d) before %q(P%d)",
				i, readyTasks[i-1].name, readyTasks[i-1].priority,
				readyTasks[i].name, readyTasks[i].priority)
		}
	}
	inReadyQueue := make(map[*TaskControlBlock]bool)
	for _, task := range readyTasks {
		inReadyQueue[task] = true
		if task.state != TaskStateReady {
			fmt.Fprintf(errBuf, "\ntask %q in ready queue with state %s", task.name, task.state)
		}
	}
	for _, task := range scheduler.allTasks {
		if task.isIdle() {
			continue
		}
		if task.state == TaskStateReady && !inReadyQueue[task] {
			fmt.Fprintf(errBuf, "\ntask %q Ready but not in ready queue", task.name)
		}
	}

	// Priority vs baseline and the inherited flag:
	for _, task := range scheduler.allTasks {
		if task.priority > task.originalPriority {
			fmt.Fprintf(errBuf,
				"\ntask %q: priority P%d weaker than baseline P%d",
				task.name, task.priority, task.originalPriority)
		}
		if task.priorityInherited != (task.priority < task.originalPriority) {
			fmt.Fprintf(errBuf,
				"\ntask %q: inherited=%v inconsistent with P%d vs baseline P%d",
				task.name, task.priorityInherited, task.priority, task.originalPriority)
		}
		if task.blockedOn != nil && task.state != TaskStateBlocked {
			fmt.Fprintf(errBuf,
				"\ntask %q: blocked_on=%q but state %s",
				task.name, task.blockedOn.name, task.state)
		}
	}

	// Mutex ownership and wait queues:
	for _, mutex := range mutexes {
		if mutex.owner != nil && !mutex.owner.HoldsMutex(mutex) {
			fmt.Fprintf(errBuf,
				"\nmutex %q: owner %q does not track it as held",
				mutex.name, mutex.owner.name)
		}
		waiters := mutex.waiters.tasks
		for i, waiter := range waiters {
			if i > 0 && waiters[i-1].priority > waiter.priority {
				fmt.Fprintf(errBuf, "\nmutex %q: wait queue out of order at #%d", mutex.name, i)
			}
			if waiter.blockedOn != mutex {
				fmt.Fprintf(errBuf,
					"\nmutex %q: waiter %q blocked_on mismatch", mutex.name, waiter.name)
			}
			if waiter.state != TaskStateBlocked {
				fmt.Fprintf(errBuf,
					"\nmutex %q: waiter %q state %s, want Blocked",
					mutex.name, waiter.name, waiter.state)
			}
		}
	}
	for _, task := range scheduler.allTasks {
		for _, mutex := range task.heldMutexes {
			if mutex.owner != task {
				fmt.Fprintf(errBuf,
					"\ntask %q: holds %q owned by someone else", task.name, mutex.name)
			}
		}
	}

	if errBuf.Len() > 0 {
		return fmt.Errorf("%s", errBuf)
	}
	return nil
}

// Event collecting sink for tests that observe the kernel directly:
type testEventSink struct {
	events []Event
}

func (sink *testEventSink) RecordEvent(event *Event) {
	sink.events = append(sink.events, *event)
}

func (sink *testEventSink) countKind(kind EventKind) int {
	n := 0
	for i := range sink.events {
		if sink.events[i].Kind == kind {
			n++
		}
	}
	return n
}

func (sink *testEventSink) lastOfKind(kind EventKind) *Event {
	for i := len(sink.events) - 1; i >= 0; i-- {
		if sink.events[i].Kind == kind {
			return &sink.events[i]
		}
	}
	return nil
}
