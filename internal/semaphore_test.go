// Tests for semaphore.go

package rtos_internal

import (
	"testing"

	rtos_testutils "github.com/Ha-an1/RTOS/testutils"
)

func TestSemaphoreWaitSignalCounts(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, false, nil)
	defer scheduler.Close()

	task := scheduler.CreateTask("Task", taskFuncNoop, nil, 1, 0, 0, 10)
	scheduler.Schedule()

	semaphore := NewSemaphore(scheduler, "S", 2, 5)

	semaphore.Wait(task)
	semaphore.Wait(task)
	if semaphore.count != 0 {
		t.Fatalf("count after 2 waits: want 0, got %d", semaphore.count)
	}
	if task.state != TaskStateRunning {
		t.Fatalf("task blocked with available units: state %s", task.state)
	}

	semaphore.Signal(task)
	semaphore.Signal(task)
	semaphore.Signal(task)
	if semaphore.count != 3 {
		t.Fatalf("count after 3 signals: want 3, got %d", semaphore.count)
	}
}

func TestSemaphoreSignalSaturatesAtMaxCount(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, false, nil)
	defer scheduler.Close()

	semaphore := NewSemaphore(scheduler, "S", 2, 2)
	semaphore.Signal(nil)
	semaphore.Signal(nil)
	if semaphore.count != 2 {
		t.Fatalf("count: want saturated at 2, got %d", semaphore.count)
	}
}

func TestSemaphoreWaitBlocksOnZero(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, false, nil)
	defer scheduler.Close()

	taskA := scheduler.CreateTask("A", taskFuncNoop, nil, 1, 0, 0, 10)
	taskB := scheduler.CreateTask("B", taskFuncNoop, nil, 2, 0, 0, 10)
	scheduler.Schedule()

	semaphore := NewSemaphore(scheduler, "S", 0, 5)

	semaphore.Wait(taskA)
	if taskA.state != TaskStateBlocked {
		t.Fatalf("A state: want %s, got %s", TaskStateBlocked, taskA.state)
	}
	// B takes over once A blocks:
	if scheduler.currentTask != taskB {
		t.Fatalf("current: want B, got %q", scheduler.currentTask.name)
	}

	// The signal wakes A, which preempts B:
	semaphore.Signal(taskB)
	if taskA.state != TaskStateRunning {
		t.Fatalf("A state after signal: want %s, got %s", TaskStateRunning, taskA.state)
	}
	if semaphore.count != 0 {
		t.Fatalf("count after handoff signal: want 0, got %d", semaphore.count)
	}
	if err := checkSchedulerInvariants(scheduler, nil); err != nil {
		t.Fatal(err)
	}
}

func TestSemaphoreWakesHighestPriorityWaiter(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, false, nil)
	defer scheduler.Close()

	runner := scheduler.CreateTask("Runner", taskFuncNoop, nil, 0, 0, 0, 100)
	scheduler.Schedule()

	semaphore := NewSemaphore(scheduler, "S", 0, 5)

	taskLow := scheduler.CreateTask("Low", taskFuncNoop, nil, 9, 0, 0, 10)
	taskHigh := scheduler.CreateTask("High", taskFuncNoop, nil, 2, 0, 0, 10)
	taskMid := scheduler.CreateTask("Mid", taskFuncNoop, nil, 5, 0, 0, 10)

	semaphore.Wait(taskLow)
	semaphore.Wait(taskHigh)
	semaphore.Wait(taskMid)

	semaphore.Signal(runner)
	if taskHigh.state != TaskStateReady {
		t.Fatalf("High state: want %s, got %s", TaskStateReady, taskHigh.state)
	}
	if taskLow.state != TaskStateBlocked || taskMid.state != TaskStateBlocked {
		t.Fatal("wrong waiter woken")
	}
	semaphore.Signal(runner)
	if taskMid.state != TaskStateReady {
		t.Fatalf("Mid state: want %s, got %s", TaskStateReady, taskMid.state)
	}
	semaphore.Signal(runner)
	if taskLow.state != TaskStateReady {
		t.Fatalf("Low state: want %s, got %s", TaskStateReady, taskLow.state)
	}
	if err := checkSchedulerInvariants(scheduler, nil); err != nil {
		t.Fatal(err)
	}
}

// The producer/consumer conservation property: the sum of the two semaphore
// counts equals the buffer size at every observation.
func TestSemaphoreProducerConsumerBalance(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, false, nil)
	defer scheduler.Close()

	semFull := NewSemaphore(scheduler, "sem_full", 0, 5)
	semEmpty := NewSemaphore(scheduler, "sem_empty", 5, 5)

	producer := scheduler.CreateTask("Producer", taskFuncNoop, nil, 2, 0, 0, 50)
	consumer := scheduler.CreateTask("Consumer", taskFuncNoop, nil, 3, 0, 0, 50)
	scheduler.Schedule()

	itemsProduced, itemsConsumed := 0, 0
	for tick := 0; tick < 100; tick++ {
		scheduler.TickHandler()

		if scheduler.currentTask == producer && scheduler.systemTicks%3 == 0 &&
			semEmpty.count > 0 {
			semEmpty.Wait(producer)
			itemsProduced++
			semFull.Signal(producer)
		}
		if scheduler.currentTask == consumer && scheduler.systemTicks%4 == 0 &&
			semFull.count > 0 {
			semFull.Wait(consumer)
			itemsConsumed++
			semEmpty.Signal(consumer)
		}

		if semFull.count < 0 || semEmpty.count < 0 {
			t.Fatalf("tick %d: negative count: full=%d, empty=%d",
				tick, semFull.count, semEmpty.count)
		}
		if semFull.count+semEmpty.count != 5 {
			t.Fatalf("tick %d: full=%d + empty=%d != 5",
				tick, semFull.count, semEmpty.count)
		}

		curr := scheduler.currentTask
		if curr != nil && !curr.isIdle() && curr.remainingWork == 0 &&
			curr.state == TaskStateRunning {
			curr.Terminate()
		}
		scheduler.Schedule()
	}

	if itemsProduced == 0 || itemsConsumed == 0 {
		t.Fatalf("no traffic: produced=%d, consumed=%d", itemsProduced, itemsConsumed)
	}
}
