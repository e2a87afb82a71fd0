// Tests for timeline.go

package rtos_internal

import (
	"bytes"
	"strings"
	"testing"

	rtos_testutils "github.com/Ha-an1/RTOS/testutils"
)

func TestTimelineTaskRows(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	timeline := NewTimeline(nil)
	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, false, timeline)
	defer scheduler.Close()

	taskA := scheduler.CreateTask("TaskA", taskFuncNoop, nil, 1, 0, 0, 3)
	taskB := scheduler.CreateTask("TaskB", taskFuncNoop, nil, 2, 0, 0, 2)
	scheduler.Schedule()

	for tick := 0; tick < 6; tick++ {
		scheduler.TickHandler()
		curr := scheduler.currentTask
		if curr != nil && !curr.isIdle() && curr.remainingWork == 0 &&
			curr.state == TaskStateRunning {
			curr.Terminate()
		}
		scheduler.Schedule()
	}

	span := int(timeline.endTime-timeline.startTime) + 1
	if span != 6 {
		t.Fatalf("span: want 6, got %d", span)
	}

	// A runs ticks 0..2 then terminates; B waits Ready, runs 3..4:
	if row := timeline.taskRow(taskA, timeline.startTime, span); row != "###___" {
		t.Errorf("TaskA row: want \"###___\", got %q", row)
	}
	if row := timeline.taskRow(taskB, timeline.startTime, span); row != "---##_" {
		t.Errorf("TaskB row: want \"---##_\", got %q", row)
	}
}

func TestTimelineRender(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	timeline := NewTimeline(nil)
	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, true, timeline)
	defer scheduler.Close()

	taskLow := scheduler.CreateTask("TaskLow", taskFuncNoop, nil, 10, 0, 0, 20)
	scheduler.Schedule()
	mutex := NewMutex(scheduler, "MutexA")
	mutex.Lock(taskLow)
	scheduler.AdvanceTime(2)

	taskHigh := scheduler.CreateTask("TaskHigh", taskFuncNoop, nil, 1, 0, 0, 8)
	scheduler.Schedule()
	mutex.Lock(taskHigh)

	buf := &bytes.Buffer{}
	scheduler.RenderTimeline(buf)
	render := buf.String()

	for _, want := range []string{
		"RTOS SCHEDULER TIMELINE VISUALIZATION",
		"Time (ticks):",
		"Legend: # = RUNNING  - = READY  . = BLOCKED  _ = SUSPENDED/NOT_RELEASED",
		"Events Log:",
		"TaskLow locks MutexA",
		"TaskHigh tries to lock MutexA (blocked by TaskLow)",
		"PRIORITY INHERITANCE: TaskLow (P10) inherits from TaskHigh (P1) via MutexA",
		"Priority inheritance triggered: 1 time(s)",
		"No deadline misses",
	} {
		if !strings.Contains(render, want) {
			t.Errorf("render missing %q:\n%s", want, render)
		}
	}
	// The idle task has no Gantt row (it does show in the events log):
	if strings.Contains(render, "\nIdle") {
		t.Error("render contains an idle task row")
	}
}

func TestTimelineRenderEmpty(t *testing.T) {
	timeline := NewTimeline(nil)
	buf := &bytes.Buffer{}
	timeline.Render(buf, nil, 0)
	if !strings.Contains(buf.String(), "(no timeline data)") {
		t.Errorf("empty render: got %q", buf.String())
	}
}

func TestTimelineEventsLogDisabled(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	timeline := NewTimeline(&TimelineConfig{
		MaxRenderSpan: TIMELINE_CONFIG_MAX_RENDER_SPAN_DEFAULT,
		MaxEntries:    TIMELINE_CONFIG_MAX_ENTRIES_DEFAULT,
		EventsLog:     false,
	})
	scheduler := NewSchedulerWithPolicy(SchedPolicyFixedPriority, false, timeline)
	defer scheduler.Close()

	scheduler.CreateTask("Task", taskFuncNoop, nil, 1, 0, 0, 2)
	scheduler.Schedule()
	scheduler.AdvanceTime(2)

	buf := &bytes.Buffer{}
	scheduler.RenderTimeline(buf)
	if strings.Contains(buf.String(), "Events Log:") {
		t.Error("events log rendered despite being disabled")
	}
}

func TestTimelineMaxEntries(t *testing.T) {
	tlc := rtos_testutils.NewTestLogCollect(t, RootLogger, nil)
	defer tlc.RestoreLog()

	timeline := NewTimeline(&TimelineConfig{
		MaxRenderSpan: TIMELINE_CONFIG_MAX_RENDER_SPAN_DEFAULT,
		MaxEntries:    4,
		EventsLog:     true,
	})
	for i := 0; i < 10; i++ {
		timeline.RecordEvent(&Event{Tick: uint64(i), Kind: EventStateChange, State: VisReady})
	}
	if timeline.NumEvents() != 4 {
		t.Fatalf("entries: want 4, got %d", timeline.NumEvents())
	}
}
