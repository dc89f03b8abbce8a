//go:build windows

package osdetect

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func detectPlatform(info *SystemInfo) {
	info.Platform = PlatformWindows
	info.Name = "Windows"

	v := windows.RtlGetVersion()
	info.Version = fmt.Sprintf("%d.%d", v.MajorVersion, v.MinorVersion)
}
