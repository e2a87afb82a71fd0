// Tests for rms.go

package rtos_internal

import (
	"bytes"
	"math"
	"strings"
	"testing"

	rtos_testutils "github.com/Ha-an1/RTOS/testutils"
)

func TestRmsRecalculatePriorities(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyRateMonotonic, false, nil)
	defer scheduler.Close()

	// Creation order deliberately differs from period order:
	task20 := scheduler.CreateTask("T_p20", taskFuncNoop, nil, 0, 20, 0, 5)
	task10 := scheduler.CreateTask("T_p10", taskFuncNoop, nil, 0, 10, 0, 3)
	task15 := scheduler.CreateTask("T_p15", taskFuncNoop, nil, 0, 15, 0, 4)
	aperiodic := scheduler.CreateTask("Aperiodic", taskFuncNoop, nil, 30, 0, 0, 2)

	scheduler.RmsRecalculatePriorities()

	if task10.priority != 0 || task10.originalPriority != 0 {
		t.Errorf("T_p10: want P0, got P%d", task10.priority)
	}
	if task15.priority != 1 {
		t.Errorf("T_p15: want P1, got P%d", task15.priority)
	}
	if task20.priority != 2 {
		t.Errorf("T_p20: want P2, got P%d", task20.priority)
	}
	// Aperiodic tasks are not ranked:
	if aperiodic.priority != 30 {
		t.Errorf("aperiodic: want P30, got P%d", aperiodic.priority)
	}

	// The ready queue reflects the new order:
	if head := scheduler.readyQueue.peek(); head != task10 {
		t.Errorf("ready queue head: want T_p10, got %q", head.name)
	}
	if err := checkSchedulerInvariants(scheduler, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRmsRecalculateEqualPeriodsKeepCreationOrder(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyRateMonotonic, false, nil)
	defer scheduler.Close()

	taskA := scheduler.CreateTask("A", taskFuncNoop, nil, 0, 10, 0, 1)
	taskB := scheduler.CreateTask("B", taskFuncNoop, nil, 0, 10, 0, 1)

	scheduler.RmsRecalculatePriorities()

	if taskA.priority != 0 || taskB.priority != 1 {
		t.Errorf("equal periods: want A=P0, B=P1, got A=P%d, B=P%d",
			taskA.priority, taskB.priority)
	}
}

func TestRmsSchedulabilityTest(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	type RmsVerdictTestCase struct {
		// period, wcet per task:
		periods     []uint64
		wcets       []uint64
		wantVerdict RmsVerdict
		wantU       float64
	}

	for _, tc := range []*RmsVerdictTestCase{
		{
			// U = 0.3, bound for n=1 is 1.0:
			periods:     []uint64{10},
			wcets:       []uint64{3},
			wantVerdict: RmsSchedulable,
			wantU:       0.3,
		},
		{
			// U = 3/10 + 4/15 + 5/20 = 0.8166..., bound(3) = 0.7797...:
			periods:     []uint64{10, 15, 20},
			wcets:       []uint64{3, 4, 5},
			wantVerdict: RmsPossiblySchedulable,
			wantU:       3./10 + 4./15 + 5./20,
		},
		{
			// U = 1.3:
			periods:     []uint64{10, 10},
			wcets:       []uint64{6, 7},
			wantVerdict: RmsNotSchedulable,
			wantU:       1.3,
		},
	} {
		t.Run("", func(t *testing.T) {
			scheduler := NewSchedulerWithPolicy(SchedPolicyRateMonotonic, false, nil)
			defer scheduler.Close()

			for i := range tc.periods {
				scheduler.CreateTask("T", taskFuncNoop, nil, 0, tc.periods[i], 0, tc.wcets[i])
			}
			scheduler.RmsRecalculatePriorities()

			analysis := scheduler.RmsSchedulabilityTest()
			if analysis.NumTasks != len(tc.periods) {
				t.Fatalf("num tasks: want %d, got %d", len(tc.periods), analysis.NumTasks)
			}
			if math.Abs(analysis.Utilization-tc.wantU) > 1e-9 {
				t.Errorf("U: want %.6f, got %.6f", tc.wantU, analysis.Utilization)
			}
			wantBound := float64(analysis.NumTasks) *
				(math.Pow(2, 1/float64(analysis.NumTasks)) - 1)
			if math.Abs(analysis.Bound-wantBound) > 1e-9 {
				t.Errorf("bound: want %.6f, got %.6f", wantBound, analysis.Bound)
			}
			if analysis.Verdict != tc.wantVerdict {
				t.Errorf("verdict: want %s, got %s", tc.wantVerdict, analysis.Verdict)
			}
		})
	}
}

func TestRmsSchedulabilityTestNoPeriodicTasks(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyRateMonotonic, false, nil)
	defer scheduler.Close()

	scheduler.CreateTask("Aperiodic", taskFuncNoop, nil, 5, 0, 0, 10)

	analysis := scheduler.RmsSchedulabilityTest()
	if analysis.NumTasks != 0 {
		t.Fatalf("num tasks: want 0, got %d", analysis.NumTasks)
	}
}

func TestRmsReport(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	scheduler := NewSchedulerWithPolicy(SchedPolicyRateMonotonic, false, nil)
	defer scheduler.Close()

	scheduler.CreateTask("T1_p10", taskFuncNoop, nil, 0, 10, 10, 3)
	scheduler.CreateTask("T2_p15", taskFuncNoop, nil, 0, 15, 15, 4)
	scheduler.CreateTask("T3_p20", taskFuncNoop, nil, 0, 20, 20, 5)
	scheduler.RmsRecalculatePriorities()

	buf := &bytes.Buffer{}
	scheduler.RmsReport(buf)
	report := buf.String()

	for _, want := range []string{
		"RATE MONOTONIC SCHEDULING ANALYSIS",
		"T1_p10",
		"Total utilization (U)    : 0.817",
		"RMS bound n(2^(1/n)-1)   : 0.780",
		"Verdict: POSSIBLY schedulable",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
