// Host info logged by the demo CLI at startup. The simulator itself runs in
// virtual time; the host clock-tick rate is reported only to contrast the
// real-time ticks of the host with the virtual ticks of the simulation.

package rtos_internal

import "time"

var (
	HostBootTime = time.Now()
	HostClktck   int64
	HostOsInfo   = make(map[string]string)
)

var hostInfoLog = NewCompLogger("host_info")

func init() {
	bootTime, err := getOsBootTime()
	if err != nil {
		hostInfoLog.Warnf("getOsBootTime(): %v", err)
	} else {
		HostBootTime = bootTime
	}

	clktck, err := getSysClktck()
	if err != nil {
		hostInfoLog.Warnf("getSysClktck(): %v", err)
	} else {
		HostClktck = clktck
	}

	osInfo, err := getOsInfo()
	if err != nil {
		hostInfoLog.Warnf("getOsInfo(): %v", err)
	} else {
		HostOsInfo = osInfo
	}
}

// LogHostInfo logs the host banner once, at CLI startup.
func LogHostInfo() {
	hostInfoLog.Infof(
		"host: os=%s, release=%s, machine=%s, clktck=%d/sec, boot_time=%s",
		HostOsInfo["name"], HostOsInfo["release"], HostOsInfo["machine"],
		HostClktck, HostBootTime.Format(time.RFC3339),
	)
}
