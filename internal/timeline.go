// Scheduling event sink and ASCII timeline renderer.

package rtos_internal

//  Event Flow
//  ==========
//
//             +------------------+
//             |  Scheduler core  |
//             |  mutex/sem/time  |
//             +------------------+
//                       |
//                       | typed events
//                       v
//             +------------------+
//             |    Event Sink    |
//             +------------------+
//                       |
//                       v
//             +------------------+
//             |     Timeline     |
//             +------------------+
//                       |
//                       | render
//                       v
//        Gantt chart + events log + analysis
//
// Every state change inside the kernel is published as a typed event to the
// event sink. The timeline is the stock sink implementation: it records the
// events and renders them as an ASCII Gantt chart (one character per tick)
// followed by a chronological events log and an analysis summary. Tests may
// install their own sink to observe the kernel directly.

import (
	"fmt"
	"io"
	"strings"
)

const (
	TIMELINE_CONFIG_MAX_RENDER_SPAN_DEFAULT = 500
	TIMELINE_CONFIG_MAX_ENTRIES_DEFAULT     = 65536
	TIMELINE_CONFIG_EVENTS_LOG_DEFAULT      = true

	TIMELINE_INITIAL_CAP = 1024

	// Time axis labels are placed every so many ticks:
	TIMELINE_AXIS_LABEL_INTERVAL = 5
)

// Visual state used for rendering, a projection of TaskState onto the Gantt
// chart character set:
type VisualState int

const (
	VisRunning VisualState = iota
	VisReady
	VisBlocked
	VisSuspended
	// Pure annotation, no state change:
	VisNone
)

var visualStateCharMap = map[VisualState]byte{
	VisRunning:   '#',
	VisReady:     '-',
	VisBlocked:   '.',
	VisSuspended: '_',
	VisNone:      '_',
}

type EventKind int

const (
	EventCreated EventKind = iota
	EventStateChange
	EventReleased
	EventPreempted
	EventMutexLock
	EventMutexUnlock
	// Handoff to a waiter at unlock:
	EventMutexAcquire
	EventContention
	EventPriorityInherit
	EventPriorityBoost
	EventPriorityRestore
	EventDeadlineMiss
)

var eventKindMap = map[EventKind]string{
	EventCreated:         "Created",
	EventStateChange:     "StateChange",
	EventReleased:        "Released",
	EventPreempted:       "Preempted",
	EventMutexLock:       "MutexLock",
	EventMutexUnlock:     "MutexUnlock",
	EventMutexAcquire:    "MutexAcquire",
	EventContention:      "Contention",
	EventPriorityInherit: "PriorityInherit",
	EventPriorityBoost:   "PriorityBoost",
	EventPriorityRestore: "PriorityRestore",
	EventDeadlineMiss:    "DeadlineMiss",
}

func (kind EventKind) String() string {
	return eventKindMap[kind]
}

// A single scheduling event. Task may be nil for scheduler-wide events; the
// annotation is free form and it feeds the events log.
type Event struct {
	Tick       uint64
	Task       *TaskControlBlock
	State      VisualState
	Kind       EventKind
	Annotation string
}

// The kernel publishes its events to a sink; the timeline below is the stock
// implementation but tests may provide their own.
type EventSink interface {
	RecordEvent(event *Event)
}

type TimelineConfig struct {
	// The widest Gantt chart that will be rendered, in ticks; longer runs are
	// clamped:
	MaxRenderSpan int `yaml:"max_render_span"`
	// The maximum number of recorded events; once reached, new events are
	// dropped with a diagnostic:
	MaxEntries int `yaml:"max_entries"`
	// Whether to render the chronological events log:
	EventsLog bool `yaml:"events_log"`
}

func DefaultTimelineConfig() *TimelineConfig {
	return &TimelineConfig{
		MaxRenderSpan: TIMELINE_CONFIG_MAX_RENDER_SPAN_DEFAULT,
		MaxEntries:    TIMELINE_CONFIG_MAX_ENTRIES_DEFAULT,
		EventsLog:     TIMELINE_CONFIG_EVENTS_LOG_DEFAULT,
	}
}

var timelineLog = NewCompLogger("timeline")

type Timeline struct {
	entries       []Event
	startTime     uint64
	endTime       uint64
	maxRenderSpan int
	maxEntries    int
	eventsLog     bool
	overflowed    bool
}

func NewTimeline(timelineCfg *TimelineConfig) *Timeline {
	if timelineCfg == nil {
		timelineCfg = DefaultTimelineConfig()
	}
	maxEntries := timelineCfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = TIMELINE_CONFIG_MAX_ENTRIES_DEFAULT
	}
	initialCap := TIMELINE_INITIAL_CAP
	if initialCap > maxEntries {
		initialCap = maxEntries
	}
	return &Timeline{
		entries:       make([]Event, 0, initialCap),
		startTime:     ^uint64(0),
		endTime:       0,
		maxRenderSpan: timelineCfg.MaxRenderSpan,
		maxEntries:    maxEntries,
		eventsLog:     timelineCfg.EventsLog,
	}
}

// EventSink interface:
func (timeline *Timeline) RecordEvent(event *Event) {
	if timeline == nil || event == nil {
		return
	}
	if len(timeline.entries) >= timeline.maxEntries {
		if !timeline.overflowed {
			timelineLog.Warnf(
				"timeline full (%d entries), dropping events", timeline.maxEntries,
			)
			timeline.overflowed = true
		}
		return
	}
	timeline.entries = append(timeline.entries, *event)
	if event.Tick < timeline.startTime {
		timeline.startTime = event.Tick
	}
	if event.Tick > timeline.endTime {
		timeline.endTime = event.Tick
	}
}

func (timeline *Timeline) NumEvents() int {
	return len(timeline.entries)
}

// Events returns the recorded events, in chronological (i.e. recording)
// order. The returned slice is owned by the timeline, callers should not
// modify it.
func (timeline *Timeline) Events() []Event {
	return timeline.entries
}

func (timeline *Timeline) countKind(kind EventKind) int {
	n := 0
	for i := range timeline.entries {
		if timeline.entries[i].Kind == kind {
			n++
		}
	}
	return n
}

// Build the Gantt chart row for one task: one character per tick, derived
// from the task's state-bearing events (VisNone entries are annotation only
// and do not alter the row).
func (timeline *Timeline) taskRow(task *TaskControlBlock, tStart uint64, span int) string {
	row := make([]byte, span)
	for i := range row {
		row[i] = visualStateCharMap[VisSuspended]
	}

	curState := VisSuspended
	curPos := -1

	for i := range timeline.entries {
		entry := &timeline.entries[i]
		if entry.Task != task || entry.State == VisNone {
			continue
		}
		pos := int(entry.Tick - tStart)
		if pos < 0 || pos >= span {
			continue
		}
		// Fill the previous state up to this point:
		if curPos >= 0 {
			ch := visualStateCharMap[curState]
			for p := curPos; p < pos; p++ {
				row[p] = ch
			}
		}
		curState = entry.State
		curPos = pos
	}

	// Fill the remainder with the last state:
	if curPos >= 0 {
		ch := visualStateCharMap[curState]
		for p := curPos; p < span; p++ {
			row[p] = ch
		}
	}

	return string(row)
}

// Render the timeline: time axis, one Gantt row per task (idle excluded),
// legend, events log and analysis. The context switch count is provided by
// the caller since the timeline has no back-reference to the scheduler.
func (timeline *Timeline) Render(w io.Writer, allTasks []*TaskControlBlock, contextSwitches uint64) {
	if timeline == nil || len(timeline.entries) == 0 {
		fmt.Fprintf(w, "  (no timeline data)\n")
		return
	}

	tStart := timeline.startTime
	tEnd := timeline.endTime + 1
	span := int(tEnd - tStart)

	maxSpan := timeline.maxRenderSpan
	if maxSpan <= 0 {
		maxSpan = TIMELINE_CONFIG_MAX_RENDER_SPAN_DEFAULT
	}
	if span > maxSpan {
		span = maxSpan
	}
	if span <= 0 {
		span = 1
	}

	sepLine := strings.Repeat("=", 65)
	fmt.Fprintf(w, "\n%s\n", sepLine)
	fmt.Fprintf(w, "           RTOS SCHEDULER TIMELINE VISUALIZATION\n")
	fmt.Fprintf(w, "%s\n\n", sepLine)

	// Time axis, tick labels every TIMELINE_AXIS_LABEL_INTERVAL:
	fmt.Fprintf(w, "Time (ticks): ")
	for t := 0; t < span; t++ {
		tick := tStart + uint64(t)
		if tick%TIMELINE_AXIS_LABEL_INTERVAL == 0 {
			num := fmt.Sprintf("%-4d", tick)
			fmt.Fprintf(w, "%s", num)
			t += len(num) - 1
		} else {
			fmt.Fprintf(w, " ")
		}
	}
	fmt.Fprintf(w, "\n              ")
	for t := 0; t < span; t++ {
		if (tStart+uint64(t))%TIMELINE_AXIS_LABEL_INTERVAL == 0 {
			fmt.Fprintf(w, "|")
		} else {
			fmt.Fprintf(w, " ")
		}
	}
	fmt.Fprintf(w, "\n\n")

	// Task rows, idle excluded:
	for _, task := range allTasks {
		if task == nil || task.originalPriority == PRIORITY_IDLE {
			continue
		}
		fmt.Fprintf(w, "%-11s(P%-3d) %s\n",
			task.name, task.originalPriority, timeline.taskRow(task, tStart, span))
	}

	fmt.Fprintf(w, "\nLegend: # = RUNNING  - = READY  . = BLOCKED  _ = SUSPENDED/NOT_RELEASED\n")

	if timeline.eventsLog {
		fmt.Fprintf(w, "\nEvents Log:\n")
		for i := range timeline.entries {
			entry := &timeline.entries[i]
			if entry.Annotation != "" {
				fmt.Fprintf(w, "  [t=%-4d] %s\n", entry.Tick, entry.Annotation)
			}
		}
	}

	fmt.Fprintf(w, "\nAnalysis:\n")
	if piCount := timeline.countKind(EventPriorityInherit); piCount > 0 {
		fmt.Fprintf(w, "  * Priority inheritance triggered: %d time(s)\n", piCount)
	} else {
		fmt.Fprintf(w, "  * No priority inheritance events\n")
	}
	if dlMisses := timeline.countKind(EventDeadlineMiss); dlMisses > 0 {
		fmt.Fprintf(w, "  * Deadline misses detected: %d\n", dlMisses)
	} else {
		fmt.Fprintf(w, "  * No deadline misses\n")
	}
	fmt.Fprintf(w, "  * Context switches: %d\n\n", contextSwitches)
}
