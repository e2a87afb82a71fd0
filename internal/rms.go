// Rate monotonic analysis: priority assignment and the Liu & Layland
// schedulability test.

package rtos_internal

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

type RmsVerdict int

const (
	// U <= n(2^(1/n)-1), guaranteed:
	RmsSchedulable RmsVerdict = iota
	// bound < U <= 1.0, run the simulation to verify:
	RmsPossiblySchedulable
	// U > 1.0:
	RmsNotSchedulable
)

var rmsVerdictMap = map[RmsVerdict]string{
	RmsSchedulable:         "SCHEDULABLE",
	RmsPossiblySchedulable: "POSSIBLY schedulable",
	RmsNotSchedulable:      "NOT SCHEDULABLE",
}

func (verdict RmsVerdict) String() string {
	return rmsVerdictMap[verdict]
}

// The outcome of the Liu & Layland utilization test.
type RmsAnalysis struct {
	NumTasks    int
	Utilization float64
	Bound       float64
	Verdict     RmsVerdict
}

var rmsLog = NewCompLogger("rms")

// rmsPeriodicTasks collects the live periodic tasks, i.e. the population the
// rate monotonic analysis applies to.
func (scheduler *Scheduler) rmsPeriodicTasks() []*TaskControlBlock {
	tasks := make([]*TaskControlBlock, 0, len(scheduler.allTasks))
	for _, task := range scheduler.allTasks {
		if task == nil || task.isIdle() || task.period == 0 {
			continue
		}
		if task.state == TaskStateTerminated {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// RmsRecalculatePriorities assigns rank priorities by period, shortest
// period first (rank 0 = highest priority), and rebuilds the ready queue to
// reflect the new ordering. Aperiodic tasks are unaffected.
func (scheduler *Scheduler) RmsRecalculatePriorities() {
	if scheduler == nil {
		return
	}

	periodic := scheduler.rmsPeriodicTasks()

	// Stable sort so that equal periods keep their creation order:
	sort.SliceStable(periodic, func(i, j int) bool {
		return periodic[i].period < periodic[j].period
	})

	for rank, task := range periodic {
		task.priority = rank
		task.originalPriority = rank
	}

	rmsLog.Debugf("assigned ranks to %d periodic task(s)", len(periodic))

	// Rebuild the ready queue with the new ordering:
	scheduler.readyQueue.clear()
	for _, task := range scheduler.allTasks {
		if task != nil && task.state == TaskStateReady && !task.isIdle() {
			scheduler.readyQueue.insert(task)
		}
	}
}

// RmsUtilization computes the total CPU utilization sum(Ci/Ti) over the
// periodic tasks, with the remaining work at call time standing in for the
// WCET.
func (scheduler *Scheduler) RmsUtilization() float64 {
	if scheduler == nil {
		return 0
	}
	u := 0.0
	for _, task := range scheduler.allTasks {
		if task == nil || task.isIdle() || task.period == 0 {
			continue
		}
		u += float64(task.remainingWork) / float64(task.period)
	}
	return u
}

// RmsSchedulabilityTest runs the Liu & Layland utilization test over the
// periodic task set.
func (scheduler *Scheduler) RmsSchedulabilityTest() *RmsAnalysis {
	if scheduler == nil {
		return nil
	}

	n := 0
	for _, task := range scheduler.allTasks {
		if task != nil && !task.isIdle() && task.period > 0 {
			n++
		}
	}

	analysis := &RmsAnalysis{NumTasks: n}
	if n == 0 {
		return analysis
	}

	analysis.Utilization = scheduler.RmsUtilization()
	analysis.Bound = float64(n) * (math.Pow(2, 1/float64(n)) - 1)

	switch u := analysis.Utilization; {
	case u <= analysis.Bound:
		analysis.Verdict = RmsSchedulable
	case u <= 1.0:
		analysis.Verdict = RmsPossiblySchedulable
	default:
		analysis.Verdict = RmsNotSchedulable
	}

	return analysis
}

// RmsReport writes the per-task analysis table followed by the
// schedulability verdict.
func (scheduler *Scheduler) RmsReport(w io.Writer) {
	if scheduler == nil {
		return
	}

	sepLine := strings.Repeat("=", 64)
	fmt.Fprintf(w, "\n%s\n", sepLine)
	fmt.Fprintf(w, "         RATE MONOTONIC SCHEDULING ANALYSIS\n")
	fmt.Fprintf(w, "%s\n\n", sepLine)

	fmt.Fprintf(w, "  %-15s %8s %8s %8s %10s\n", "Task", "Period", "WCET", "Priority", "Util")
	fmt.Fprintf(w, "  %-15s %8s %8s %8s %10s\n", "----", "------", "----", "--------", "----")

	for _, task := range scheduler.allTasks {
		if task == nil || task.isIdle() || task.period == 0 {
			continue
		}
		util := float64(task.remainingWork) / float64(task.period)
		fmt.Fprintf(w, "  %-15s %8d %8d %8d %9.3f\n",
			task.name, task.period, task.remainingWork, task.priority, util)
	}

	analysis := scheduler.RmsSchedulabilityTest()
	fmt.Fprintf(w, "\n")
	if analysis.NumTasks == 0 {
		fmt.Fprintf(w, "  No periodic tasks to analyze.\n\n")
		return
	}
	fmt.Fprintf(w, "  Number of periodic tasks : %d\n", analysis.NumTasks)
	fmt.Fprintf(w, "  Total utilization (U)    : %.3f\n", analysis.Utilization)
	fmt.Fprintf(w, "  RMS bound n(2^(1/n)-1)   : %.3f\n", analysis.Bound)
	switch analysis.Verdict {
	case RmsSchedulable:
		fmt.Fprintf(w, "  Verdict: SCHEDULABLE (U <= bound, guaranteed)\n")
	case RmsPossiblySchedulable:
		fmt.Fprintf(w, "  Verdict: POSSIBLY schedulable (bound < U <= 1.0)\n")
		fmt.Fprintf(w, "           Run simulation to verify.\n")
	default:
		fmt.Fprintf(w, "  Verdict: NOT SCHEDULABLE (U > 1.0)\n")
	}
	fmt.Fprintf(w, "\n")
}
