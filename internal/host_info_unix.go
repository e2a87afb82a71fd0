//go:build unix

package rtos_internal

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mackerelio/go-osstat/uptime"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"
)

func getOsInfo() (map[string]string, error) {
	zeroSuffixBufToString := func(buf []byte) string {
		i := bytes.IndexByte(buf, 0)
		if i < 0 {
			i = len(buf)
		}
		return string(buf[:i])
	}

	uname := unix.Utsname{}
	err := unix.Uname(&uname)
	if err != nil {
		return nil, fmt.Errorf("unix.Uname(): %v", err)
	}

	osInfo := make(map[string]string)
	osInfo["name"] = zeroSuffixBufToString(uname.Sysname[:])
	osInfo["release"] = zeroSuffixBufToString(uname.Release[:])
	osInfo["machine"] = zeroSuffixBufToString(uname.Machine[:])
	return osInfo, nil
}

func getOsBootTime() (time.Time, error) {
	up, err := uptime.Get()
	if err != nil {
		return time.Now(), fmt.Errorf("uptime.Get(): %v", err)
	}
	return time.Now().Add(-up), nil
}

func getSysClktck() (int64, error) {
	return sysconf.Sysconf(sysconf.SC_CLK_TCK)
}
