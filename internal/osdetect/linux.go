//go:build linux

package osdetect

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

func detectPlatform(info *SystemInfo) {
	info.Platform = PlatformLinux
	info.Name = "Linux"

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.Version = unix.ByteSliceToString(uts.Release[:])
	}

	info.Distro = parseOSRelease("/etc/os-release")
}

// parseOSRelease returns PRETTY_NAME from an os-release file, or NAME and
// VERSION_ID when there is no pretty name.
func parseOSRelease(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	data := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if parts := strings.SplitN(scanner.Text(), "=", 2); len(parts) == 2 {
			data[parts[0]] = strings.Trim(parts[1], `"'`)
		}
	}

	if pretty := data["PRETTY_NAME"]; pretty != "" {
		return pretty
	}
	return strings.TrimSpace(data["NAME"] + " " + data["VERSION_ID"])
}
