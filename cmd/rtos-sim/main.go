// Demo CLI for the simulated RTOS scheduler.
//
// Usage:
//
//	rtos-sim [1-8|all]

package main

import (
	"os"

	rtos "github.com/Ha-an1/RTOS"
)

// Populated at build time via -ldflags:
var (
	Version = "dev"
	GitInfo = "unknown"
)

func init() {
	rtos.UpdateBuildInfo(Version, GitInfo)
}

func main() {
	os.Exit(rtos.Run())
}
