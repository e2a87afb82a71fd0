// Canned demonstration scenarios.

package rtos_internal

// Eight self-contained scenarios that exercise every feature of the
// scheduler, from basic priority dispatch to transitive priority inheritance
// and deadline miss detection. The demo CLI runs them by number; the test
// suite drives the same scenarios and checks their expectations
// programmatically.

import (
	"fmt"
	"io"
	"strings"
)

var scenarioLog = NewCompLogger("scenario")

type Scenario struct {
	Num  int
	Name string
	Run  func(w io.Writer, cfg *RtosConfig) bool
}

func taskFuncNoop(arg any) {}

func printSeparator(w io.Writer, title string) {
	sepLine := strings.Repeat("=", 65)
	fmt.Fprintf(w, "\n%s\n  TEST: %s\n%s\n", sepLine, title, sepLine)
}

func printResult(w io.Writer, pass bool, name string) {
	verdict := "FAIL"
	if pass {
		verdict = "PASS"
	}
	fmt.Fprintf(w, "\n  Result: %s %s\n\n", verdict, name)
}

// RenderTimeline writes the scheduler's timeline, when one is attached.
func (scheduler *Scheduler) RenderTimeline(w io.Writer) {
	if timeline := scheduler.Timeline(); timeline != nil {
		timeline.Render(w, scheduler.allTasks, scheduler.contextSwitches)
	}
}

// Terminate the running task once it has no work left. The canned scenarios
// use this as their reaping policy for aperiodic tasks.
func reapFinishedTask(scheduler *Scheduler) {
	curr := scheduler.currentTask
	if curr != nil && !curr.isIdle() &&
		curr.remainingWork == 0 && curr.state == TaskStateRunning {
		curr.Terminate()
	}
}

// For periodic tasks: park the finished invocation until its next release,
// terminate finished aperiodic tasks.
func parkOrReapFinishedTask(scheduler *Scheduler) {
	curr := scheduler.currentTask
	if curr != nil && !curr.isIdle() &&
		curr.remainingWork == 0 && curr.state == TaskStateRunning {
		if curr.period > 0 {
			curr.Suspend()
		} else {
			curr.Terminate()
		}
	}
}

func newScenarioScheduler(cfg *RtosConfig, policy SchedPolicy, priorityInheritance bool) *Scheduler {
	var timelineCfg *TimelineConfig
	if cfg != nil {
		timelineCfg = cfg.TimelineConfig
	}
	return NewSchedulerWithPolicy(policy, priorityInheritance, NewTimeline(timelineCfg))
}

//  Scenario 1: Basic Priority Scheduling
//  Three aperiodic tasks execute in strict priority order.

func scenarioBasicPriority(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Basic Priority Scheduling")

	scheduler := newScenarioScheduler(cfg, SchedPolicyFixedPriority, false)
	defer scheduler.Close()

	taskA := scheduler.CreateTask("TaskA", taskFuncNoop, nil, 1, 0, 0, 5)
	taskB := scheduler.CreateTask("TaskB", taskFuncNoop, nil, 2, 0, 0, 10)
	taskC := scheduler.CreateTask("TaskC", taskFuncNoop, nil, 3, 0, 0, 8)

	scheduler.Schedule()

	for t := 0; t < 30; t++ {
		scheduler.TickHandler()
		reapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	pass := taskA.state == TaskStateTerminated &&
		taskB.state == TaskStateTerminated &&
		taskC.state == TaskStateTerminated

	printResult(w, pass, "Basic Priority Scheduling")
	return pass
}

//  Scenario 2: Preemption
//  High-priority task arrives at t=5 and preempts low-priority.

func scenarioPreemption(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Preemption")

	scheduler := newScenarioScheduler(cfg, SchedPolicyFixedPriority, false)
	defer scheduler.Close()

	taskLow := scheduler.CreateTask("TaskLow", taskFuncNoop, nil, 10, 0, 0, 20)
	scheduler.Schedule()

	scheduler.AdvanceTime(5)

	taskHigh := scheduler.CreateTask("TaskHigh", taskFuncNoop, nil, 1, 0, 0, 10)
	scheduler.Schedule()

	for t := 0; t < 30; t++ {
		scheduler.TickHandler()
		reapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	fmt.Fprintf(w, "  TaskLow preemptions: %d\n", taskLow.preemptions)
	fmt.Fprintf(w, "  Context switches:    %d\n", scheduler.contextSwitches)

	pass := taskHigh.state == TaskStateTerminated &&
		taskLow.state == TaskStateTerminated &&
		taskLow.preemptions >= 1

	printResult(w, pass, "Preemption")
	return pass
}

//  Scenario 3: Priority Inversion WITH Priority Inheritance
//  The critical demo: PI bounds the inversion.

func scenarioPriorityInversionWithPi(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Priority Inversion WITH Priority Inheritance")

	scheduler := newScenarioScheduler(cfg, SchedPolicyFixedPriority, true)
	defer scheduler.Close()

	mutexA := NewMutex(scheduler, "MutexA")
	defer mutexA.Destroy()

	// t=0: TaskLow created, locks MutexA immediately:
	taskLow := scheduler.CreateTask("TaskLow", taskFuncNoop, nil, 10, 0, 0, 20)
	scheduler.Schedule()
	mutexA.Lock(taskLow)

	scheduler.AdvanceTime(2)

	// t=2: TaskMed created, preempts TaskLow:
	taskMed := scheduler.CreateTask("TaskMed", taskFuncNoop, nil, 5, 0, 0, 10)
	scheduler.Schedule()

	scheduler.AdvanceTime(3)

	// t=5: TaskHigh created, tries MutexA and blocks; TaskLow inherits
	// priority 1:
	taskHigh := scheduler.CreateTask("TaskHigh", taskFuncNoop, nil, 1, 0, 0, 8)
	scheduler.Schedule()
	mutexA.Lock(taskHigh)

	// TaskLow now runs boosted; release the mutex once it has put in 13
	// ticks of work:
	mutexReleased := false
	lowWorkDone := 0
	for t := 0; t < 15; t++ {
		scheduler.TickHandler()

		if scheduler.currentTask == taskLow {
			lowWorkDone++
		}
		if scheduler.currentTask == taskLow && !mutexReleased &&
			lowWorkDone >= 13 && mutexA.owner == taskLow {
			mutexA.Unlock(taskLow)
			mutexReleased = true
		}

		scheduler.Schedule()
	}

	for t := 0; t < 30; t++ {
		scheduler.TickHandler()
		reapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	fmt.Fprintf(w, "  TaskLow  priority boosts: %d\n", taskLow.priorityBoosts)
	fmt.Fprintf(w, "  TaskMed  preemptions: %d\n", taskMed.preemptions)

	pass := taskLow.priorityBoosts >= 1
	printResult(w, pass, "Priority Inversion WITH PI")
	return pass
}

//  Scenario 4: Priority Inversion WITHOUT Priority Inheritance
//  The problem PI solves: the medium task starves the high one.

func scenarioPriorityInversionWithoutPi(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Priority Inversion WITHOUT Priority Inheritance")

	scheduler := newScenarioScheduler(cfg, SchedPolicyFixedPriority, false)
	defer scheduler.Close()

	mutexA := NewMutex(scheduler, "MutexA")
	defer mutexA.Destroy()

	taskLow := scheduler.CreateTask("TaskLow", taskFuncNoop, nil, 10, 0, 0, 20)
	scheduler.Schedule()
	mutexA.Lock(taskLow)

	scheduler.AdvanceTime(2)

	taskMed := scheduler.CreateTask("TaskMed", taskFuncNoop, nil, 5, 0, 0, 10)
	scheduler.Schedule()

	scheduler.AdvanceTime(3)

	taskHigh := scheduler.CreateTask("TaskHigh", taskFuncNoop, nil, 1, 0, 0, 8)
	scheduler.Schedule()
	mutexA.Lock(taskHigh)

	// TaskMed keeps running because TaskLow stays at priority 10; TaskHigh
	// starves until TaskLow finally releases the mutex.
	mutexReleased := false
	lowWorkDone := 0
	for t := 0; t < 50; t++ {
		scheduler.TickHandler()

		if scheduler.currentTask == taskLow {
			lowWorkDone++
		}
		if scheduler.currentTask == taskLow && !mutexReleased &&
			lowWorkDone >= 13 && mutexA.owner == taskLow {
			mutexA.Unlock(taskLow)
			mutexReleased = true
		}

		reapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	fmt.Fprintf(w, "  TaskLow  priority boosts: %d (should be 0)\n", taskLow.priorityBoosts)
	fmt.Fprintf(w, "  TaskMed  preemptions: %d\n", taskMed.preemptions)

	pass := taskLow.priorityBoosts == 0
	printResult(w, pass, "Priority Inversion WITHOUT PI")
	return pass
}

//  Scenario 5: Transitive Priority Inheritance
//  Chain: High -> Low -> VeryLow through nested mutexes.

func scenarioTransitivePi(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Transitive Priority Inheritance")

	scheduler := newScenarioScheduler(cfg, SchedPolicyFixedPriority, true)
	defer scheduler.Close()

	mutexA := NewMutex(scheduler, "MutexA")
	mutexB := NewMutex(scheduler, "MutexB")
	defer mutexA.Destroy()
	defer mutexB.Destroy()

	// t=0: TaskVeryLow locks MutexA:
	taskVeryLow := scheduler.CreateTask("TaskVeryLow", taskFuncNoop, nil, 20, 0, 0, 30)
	scheduler.Schedule()
	mutexA.Lock(taskVeryLow)

	scheduler.AdvanceTime(1)

	// t=1: TaskLow locks MutexB; at t=2 it tries MutexA and blocks, and
	// TaskVeryLow inherits priority 15:
	taskLow := scheduler.CreateTask("TaskLow", taskFuncNoop, nil, 15, 0, 0, 20)
	scheduler.Schedule()
	mutexB.Lock(taskLow)

	scheduler.AdvanceTime(1)
	mutexA.Lock(taskLow)

	// t=3: TaskMed created, workload only:
	scheduler.TickHandler()
	taskMed := scheduler.CreateTask("TaskMed", taskFuncNoop, nil, 10, 0, 0, 15)
	_ = taskMed
	scheduler.Schedule()

	scheduler.AdvanceTime(1)

	// t=4: TaskHigh tries MutexB and blocks; transitively TaskLow and then
	// TaskVeryLow are boosted to priority 1:
	taskHigh := scheduler.CreateTask("TaskHigh", taskFuncNoop, nil, 1, 0, 0, 10)
	scheduler.Schedule()
	mutexB.Lock(taskHigh)

	mutexAReleasedByVeryLow := false
	mutexBReleasedByLow := false
	mutexAReleasedByLow := false

	for t := 0; t < 50; t++ {
		scheduler.TickHandler()

		// VeryLow releases MutexA after some work:
		if scheduler.currentTask == taskVeryLow && !mutexAReleasedByVeryLow &&
			taskVeryLow.remainingWork <= 15 && mutexA.owner == taskVeryLow {
			mutexA.Unlock(taskVeryLow)
			mutexAReleasedByVeryLow = true
		}

		// Low releases MutexB after getting MutexA and doing work:
		if scheduler.currentTask == taskLow && !mutexBReleasedByLow &&
			taskLow.remainingWork <= 10 && mutexB.owner == taskLow {
			mutexB.Unlock(taskLow)
			mutexBReleasedByLow = true
		}

		if scheduler.currentTask == taskLow && !mutexAReleasedByLow &&
			taskLow.remainingWork <= 8 && mutexA.owner == taskLow {
			mutexA.Unlock(taskLow)
			mutexAReleasedByLow = true
		}

		reapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	fmt.Fprintf(w, "  TaskVeryLow boosts: %d\n", taskVeryLow.priorityBoosts)
	fmt.Fprintf(w, "  TaskLow     boosts: %d\n", taskLow.priorityBoosts)
	fmt.Fprintf(w, "  Transitive chain: High(P1) -> Low -> VeryLow\n")

	pass := taskVeryLow.priorityBoosts >= 1 && taskLow.priorityBoosts >= 1
	printResult(w, pass, "Transitive Priority Inheritance")
	return pass
}

//  Scenario 6: Rate Monotonic Scheduling
//  Automatic priority assignment + schedulability analysis.

func scenarioRms(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Rate Monotonic Scheduling")

	scheduler := newScenarioScheduler(cfg, SchedPolicyRateMonotonic, false)
	defer scheduler.Close()

	task1 := scheduler.CreateTask("T1_p10", taskFuncNoop, nil, 0, 10, 10, 3)
	task2 := scheduler.CreateTask("T2_p15", taskFuncNoop, nil, 0, 15, 15, 4)
	task3 := scheduler.CreateTask("T3_p20", taskFuncNoop, nil, 0, 20, 20, 5)

	scheduler.RmsRecalculatePriorities()

	scheduler.RmsReport(w)

	fmt.Fprintf(w, "  Assigned priorities:\n")
	fmt.Fprintf(w, "    T1 (period=10): P%d\n", task1.priority)
	fmt.Fprintf(w, "    T2 (period=15): P%d\n", task2.priority)
	fmt.Fprintf(w, "    T3 (period=20): P%d\n", task3.priority)

	scheduler.Schedule()

	// Run one hyperperiod (LCM of 10, 15, 20 = 60):
	for t := 0; t < 60; t++ {
		scheduler.TickHandler()
		parkOrReapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	totalMisses := 0
	for _, task := range scheduler.allTasks {
		if task == nil || task.isIdle() || task.period == 0 {
			continue
		}
		totalMisses += int(task.deadlineMisses)
		fmt.Fprintf(w, "  %s: invocations=%d, misses=%d\n",
			task.name, task.invocations, task.deadlineMisses)
	}

	pass := task1.priority < task2.priority && task2.priority < task3.priority
	fmt.Fprintf(w, "  Priority assignment correct: %v\n", pass)
	fmt.Fprintf(w, "  Total deadline misses: %d\n", totalMisses)

	printResult(w, pass, "Rate Monotonic Scheduling")
	return pass
}

//  Scenario 7: Semaphore Producer-Consumer

func scenarioSemaphore(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Semaphore Producer-Consumer")

	scheduler := newScenarioScheduler(cfg, SchedPolicyFixedPriority, false)
	defer scheduler.Close()

	semFull := NewSemaphore(scheduler, "sem_full", 0, 5)
	semEmpty := NewSemaphore(scheduler, "sem_empty", 5, 5)

	producer := scheduler.CreateTask("Producer", taskFuncNoop, nil, 2, 0, 0, 50)
	consumer := scheduler.CreateTask("Consumer", taskFuncNoop, nil, 3, 0, 0, 50)

	scheduler.Schedule()

	itemsProduced := 0
	itemsConsumed := 0

	for t := 0; t < 100; t++ {
		scheduler.TickHandler()

		// Producer: every 3 ticks, produce an item:
		if scheduler.currentTask == producer && scheduler.systemTicks%3 == 0 {
			if semEmpty.count > 0 {
				semEmpty.Wait(producer)
				itemsProduced++
				semFull.Signal(producer)
			}
		}

		// Consumer: every 4 ticks, consume an item:
		if scheduler.currentTask == consumer && scheduler.systemTicks%4 == 0 {
			if semFull.count > 0 {
				semFull.Wait(consumer)
				itemsConsumed++
				semEmpty.Signal(consumer)
			}
		}

		reapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	fmt.Fprintf(w, "  Items produced: %d\n", itemsProduced)
	fmt.Fprintf(w, "  Items consumed: %d\n", itemsConsumed)
	fmt.Fprintf(w, "  sem_full count:  %d\n", semFull.count)
	fmt.Fprintf(w, "  sem_empty count: %d\n", semEmpty.count)

	pass := itemsProduced > 0 && itemsConsumed > 0 &&
		semFull.count >= 0 && semEmpty.count >= 0 &&
		semFull.count+semEmpty.count == 5

	printResult(w, pass, "Semaphore Producer-Consumer")
	return pass
}

//  Scenario 8: Deadline Miss Detection

func scenarioDeadlineMiss(w io.Writer, cfg *RtosConfig) bool {
	printSeparator(w, "Deadline Miss Detection")

	scheduler := newScenarioScheduler(cfg, SchedPolicyFixedPriority, false)
	defer scheduler.Close()

	// Tight deadline that will be missed while the hog runs:
	taskTight := scheduler.CreateTask("TaskTight", taskFuncNoop, nil, 2, 0, 10, 15)
	// Ample deadline:
	taskRelax := scheduler.CreateTask("TaskRelax", taskFuncNoop, nil, 3, 0, 50, 8)
	// Higher priority task that hogs the CPU:
	taskHog := scheduler.CreateTask("TaskHog", taskFuncNoop, nil, 1, 0, 100, 12)

	scheduler.Schedule()

	for t := 0; t < 50; t++ {
		scheduler.TickHandler()
		reapFinishedTask(scheduler)
		scheduler.Schedule()
	}

	scheduler.RenderTimeline(w)

	fmt.Fprintf(w, "  TaskHog   deadline misses: %d\n", taskHog.deadlineMisses)
	fmt.Fprintf(w, "  TaskTight deadline misses: %d\n", taskTight.deadlineMisses)
	fmt.Fprintf(w, "  TaskRelax deadline misses: %d\n", taskRelax.deadlineMisses)

	pass := taskTight.deadlineMisses >= 1
	printResult(w, pass, "Deadline Miss Detection")
	return pass
}

var Scenarios = []*Scenario{
	{1, "Basic Priority Scheduling", scenarioBasicPriority},
	{2, "Preemption", scenarioPreemption},
	{3, "Priority Inversion WITH PI", scenarioPriorityInversionWithPi},
	{4, "Priority Inversion WITHOUT PI", scenarioPriorityInversionWithoutPi},
	{5, "Transitive Priority Inheritance", scenarioTransitivePi},
	{6, "Rate Monotonic Scheduling", scenarioRms},
	{7, "Semaphore Producer-Consumer", scenarioSemaphore},
	{8, "Deadline Miss Detection", scenarioDeadlineMiss},
}

// LookupScenario maps a CLI argument ("1".."8") to its scenario, nil for
// unknown arguments.
func LookupScenario(arg string) *Scenario {
	for _, scenario := range Scenarios {
		if fmt.Sprintf("%d", scenario.Num) == arg {
			return scenario
		}
	}
	return nil
}

// RunScenario executes one scenario, logging its outcome.
func RunScenario(scenario *Scenario, w io.Writer, cfg *RtosConfig) bool {
	scenarioLog.Infof("run scenario# %d: %s", scenario.Num, scenario.Name)
	pass := scenario.Run(w, cfg)
	if pass {
		scenarioLog.Infof("scenario# %d: PASS", scenario.Num)
	} else {
		scenarioLog.Warnf("scenario# %d: FAIL", scenario.Num)
	}
	return pass
}

// RunAllScenarios executes all scenarios in order; it reports whether all of
// them passed.
func RunAllScenarios(w io.Writer, cfg *RtosConfig) bool {
	allPass := true
	for _, scenario := range Scenarios {
		if !RunScenario(scenario, w, cfg) {
			allPass = false
		}
	}
	return allPass
}
