// Package osdetect describes the operating system for CLIENT messages
package osdetect

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// Platform represents the operating system type
type Platform string

const (
	PlatformDarwin  Platform = "darwin"
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// SystemInfo contains detected system information
type SystemInfo struct {
	Platform Platform
	// Name is the operating system name, like "Linux" or "Mac OS X"
	Name string
	// Version is the kernel or product version
	Version string
	// Distro is the pretty name of a Linux distribution, if known
	Distro string
	Arch   string
}

// String returns the name and version, like "Linux 6.1.0"
func (s SystemInfo) String() string {
	out := s.Name
	if s.Version != "" {
		out += " " + s.Version
	}
	return sanitize(out)
}

// Long adds the distribution and architecture to String
func (s SystemInfo) Long() string {
	out := s.String()
	if s.Distro != "" {
		out = fmt.Sprintf("%s, %s", out, sanitize(s.Distro))
	}
	return fmt.Sprintf("%s (%s)", out, s.Arch)
}

// Detect detects the current system information
func Detect() SystemInfo {
	info := SystemInfo{
		Platform: PlatformUnknown,
		Name:     runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
	detectPlatform(&info)
	return info
}

var (
	once        sync.Once
	description string
)

// Describe returns the cached String of Detect
func Describe() string {
	once.Do(func() {
		description = Detect().String()
	})
	return description
}

// sanitize drops characters used as delimiters by the chat protocol
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '[', ']', '{', '}', '<', '>', '/', '\\', '!', '#', ':':
			return -1
		}
		if r < ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
