// The runner is the entry point for the demo CLI.
//
// It is responsible for loading the configuration, setting up the logger,
// logging the host banner and dispatching to the selected scenario. The
// scenario number is the single positional argument: `1`..`8` runs one
// scenario, `all` runs every one of them in order. The command line flags
// only tune the environment (config file, logging); they never change the
// scenario semantics.

package rtos_internal

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bgp59/logrusx"
)

const (
	CONFIG_FLAG_NAME    = "config"
	CONFIG_FILE_DEFAULT = "rtos-sim-config.yaml"
)

var (
	// Build info, normally set via init() by the user of this package:
	Version string
	GitInfo string
)

// Command line args; they should be defined at package scope since the flags
// are parsed in main.
var (
	versionArg = flag.Bool(
		"version",
		false,
		FormatFlagUsage(
			`Print the version and exit`,
		),
	)

	configFileArg = flag.String(
		CONFIG_FLAG_NAME,
		"",
		FormatFlagUsage(
			`Config file to load; if empty, built-in defaults are used`,
		),
	)
)

func init() {
	logrusx.EnableLoggerArgs()
}

var runnerLog = NewCompLogger("runner")

func printUsage(w io.Writer, prog string) {
	sepLine := "================================================================"
	fmt.Fprintf(w, "\n%s\n", sepLine)
	fmt.Fprintf(w, "  RTOS Task Scheduler — Priority Inheritance Demo\n")
	fmt.Fprintf(w, "%s\n\n", sepLine)
	fmt.Fprintf(w, "Usage: %s [scenario]\n\n", prog)
	fmt.Fprintf(w, "  Scenarios:\n")
	for _, scenario := range Scenarios {
		fmt.Fprintf(w, "    %d   - %s\n", scenario.Num, scenario.Name)
	}
	fmt.Fprintf(w, "    all - Run all scenarios\n\n")
	fmt.Fprintf(w, "  Example:\n")
	fmt.Fprintf(w, "    %s 3      # Run the priority inheritance demo\n", prog)
	fmt.Fprintf(w, "    %s all    # Run everything\n\n", prog)
}

// Run is the main entry point of the demo CLI; its return value should be
// used as the process exit status.
func Run() int {
	if !flag.Parsed() {
		flag.Parse()
	}

	if *versionArg {
		fmt.Fprintf(os.Stderr, "Version: %s, GitInfo: %s\n", Version, GitInfo)
		return 0
	}

	var (
		rtosConfig *RtosConfig
		err        error
	)
	if configFile := *configFileArg; configFile != "" {
		rtosConfig, err = LoadConfig(configFile, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			return 1
		}
	} else {
		rtosConfig = DefaultRtosConfig()
	}
	logrusx.ApplySetLoggerArgs(rtosConfig.LoggerConfig)

	err = SetLogger(rtosConfig.LoggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting the logger: %v\n", err)
		return 1
	}

	LogHostInfo()

	prog := os.Args[0]
	if flag.NArg() < 1 {
		printUsage(os.Stdout, prog)
		return 0
	}

	arg := flag.Arg(0)
	if arg == "all" {
		RunAllScenarios(os.Stdout, rtosConfig)
		return 0
	}
	scenario := LookupScenario(arg)
	if scenario == nil {
		fmt.Fprintf(os.Stderr, "Unknown scenario: %s\n", arg)
		printUsage(os.Stderr, prog)
		return 1
	}
	RunScenario(scenario, os.Stdout, rtosConfig)

	runnerLog.Debugf("scenario %s done", arg)
	return 0
}
