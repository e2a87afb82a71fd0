// The public face of the simulator for the users of this package

package rtos

import (
	"io"

	"github.com/sirupsen/logrus"

	rtos_internal "github.com/Ha-an1/RTOS/internal"
)

// Kernel types:
type Scheduler = rtos_internal.Scheduler
type TaskControlBlock = rtos_internal.TaskControlBlock
type TaskState = rtos_internal.TaskState
type TaskFunc = rtos_internal.TaskFunc
type SchedPolicy = rtos_internal.SchedPolicy
type Mutex = rtos_internal.Mutex
type Semaphore = rtos_internal.Semaphore
type RmsAnalysis = rtos_internal.RmsAnalysis
type RmsVerdict = rtos_internal.RmsVerdict

// Event sink types:
type Event = rtos_internal.Event
type EventKind = rtos_internal.EventKind
type EventSink = rtos_internal.EventSink
type Timeline = rtos_internal.Timeline
type VisualState = rtos_internal.VisualState

// Config types:
type RtosConfig = rtos_internal.RtosConfig
type SchedulerConfig = rtos_internal.SchedulerConfig
type TimelineConfig = rtos_internal.TimelineConfig
type LoggerConfig = rtos_internal.LoggerConfig

const (
	PriorityHighest = rtos_internal.PRIORITY_HIGHEST
	PriorityIdle    = rtos_internal.PRIORITY_IDLE
)

const (
	TaskStateReady      = rtos_internal.TaskStateReady
	TaskStateRunning    = rtos_internal.TaskStateRunning
	TaskStateBlocked    = rtos_internal.TaskStateBlocked
	TaskStateSuspended  = rtos_internal.TaskStateSuspended
	TaskStateTerminated = rtos_internal.TaskStateTerminated
)

const (
	SchedPolicyFixedPriority = rtos_internal.SchedPolicyFixedPriority
	SchedPolicyRateMonotonic = rtos_internal.SchedPolicyRateMonotonic
)

const (
	RmsSchedulable         = rtos_internal.RmsSchedulable
	RmsPossiblySchedulable = rtos_internal.RmsPossiblySchedulable
	RmsNotSchedulable      = rtos_internal.RmsNotSchedulable
)

// NewScheduler creates a scheduler from config, with a timeline attached as
// its event sink.
func NewScheduler(schedulerCfg *SchedulerConfig, timelineCfg *TimelineConfig) (*Scheduler, error) {
	return rtos_internal.NewScheduler(schedulerCfg, timelineCfg)
}

// NewSchedulerWithPolicy creates a scheduler with explicit policy settings
// and event sink; a nil sink disables event publication.
func NewSchedulerWithPolicy(policy SchedPolicy, priorityInheritance bool, sink EventSink) *Scheduler {
	return rtos_internal.NewSchedulerWithPolicy(policy, priorityInheritance, sink)
}

func NewMutex(scheduler *Scheduler, name string) *Mutex {
	return rtos_internal.NewMutex(scheduler, name)
}

func NewSemaphore(scheduler *Scheduler, name string, initial, maxCount int) *Semaphore {
	return rtos_internal.NewSemaphore(scheduler, name, initial, maxCount)
}

func NewTimeline(timelineCfg *TimelineConfig) *Timeline {
	return rtos_internal.NewTimeline(timelineCfg)
}

// LoadConfig loads the rtos_config section from a YAML file; the buf
// argument is pre-populated only for testing.
func LoadConfig(cfgFile string, buf []byte) (*RtosConfig, error) {
	return rtos_internal.LoadConfig(cfgFile, buf)
}

func DefaultRtosConfig() *RtosConfig { return rtos_internal.DefaultRtosConfig() }

// Set the logger based on config:
func SetLogger(logCfg *LoggerConfig) error { return rtos_internal.SetLogger(logCfg) }

// The root logger. Needed only for tests where the logger is captured (see
// testutils/log_collector.go), its actual type is obscured. The usual
// pattern:
//
//	func TestSomethingWithLogger(t *testing.T) {
//		tlc := rtos_testutils.NewTestLogCollect(t, rtos.GetRootLogger(), nil)
//		defer tlc.RestoreLog()
//		// Everything logged via the RTOS logger is collected by tlc and
//		// displayed JIT if the test fails or runs in verbose mode.
//	}
func GetRootLogger() any { return rtos_internal.RootLogger }

// Create new component logger w/ comp=compName field:
func NewCompLogger(comp string) *logrus.Entry {
	return rtos_internal.NewCompLogger(comp)
}

// Update build info: version (semver) and git info. This function should be
// called *before* the runner is invoked, typically from an init() function.
func UpdateBuildInfo(version, gitInfo string) {
	rtos_internal.Version = version
	rtos_internal.GitInfo = gitInfo
}

// The canned demonstration scenarios:
type Scenario = rtos_internal.Scenario

func Scenarios() []*Scenario { return rtos_internal.Scenarios }

func RunScenario(scenario *Scenario, w io.Writer, cfg *RtosConfig) bool {
	return rtos_internal.RunScenario(scenario, w, cfg)
}

func RunAllScenarios(w io.Writer, cfg *RtosConfig) bool {
	return rtos_internal.RunAllScenarios(w, cfg)
}

// Run is the demo CLI entry point; its return value should be used as the
// process exit status.
func Run() int { return rtos_internal.Run() }
