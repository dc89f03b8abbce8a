//go:build darwin

package osdetect

import (
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

func detectPlatform(info *SystemInfo) {
	info.Platform = PlatformDarwin
	info.Name = "Mac OS X"

	if v, err := unix.Sysctl("kern.osproductversion"); err == nil && v != "" {
		info.Version = v
		return
	}
	// kern.osproductversion is missing before 10.13
	if out, err := exec.Command("sw_vers", "-productVersion").Output(); err == nil {
		info.Version = strings.TrimSpace(string(out))
	}
}
