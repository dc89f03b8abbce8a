//go:build !linux && !darwin && !windows

package osdetect

func detectPlatform(info *SystemInfo) {}
