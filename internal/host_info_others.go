//go:build !unix

package rtos_internal

import (
	"fmt"
	"runtime"
	"time"
)

func getOsInfo() (map[string]string, error) {
	osInfo := make(map[string]string)
	osInfo["name"] = runtime.GOOS
	osInfo["machine"] = runtime.GOARCH
	return osInfo, nil
}

func getOsBootTime() (time.Time, error) {
	return time.Now(), fmt.Errorf("boot time not available for %s", runtime.GOOS)
}

func getSysClktck() (int64, error) {
	return 0, fmt.Errorf("clktck not available for %s", runtime.GOOS)
}
