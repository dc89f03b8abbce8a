// Package ui renders chat output for the terminal
package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ANSI styles
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

// Frame characters for the header and file offer boxes
const (
	BoxTopLeft     = "╭"
	BoxTopRight    = "╮"
	BoxBottomLeft  = "╰"
	BoxBottomRight = "╯"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

var (
	isTTY        = term.IsTerminal(int(os.Stdout.Fd()))
	colorEnabled = isTTY && os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
)

// SetNoColor turns colors off. Colors that are off because stdout is not
// a terminal stay off.
func SetNoColor(disable bool) {
	if disable {
		colorEnabled = false
	}
}

// Color wraps text in an ANSI style
func Color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + Reset
}

// ColorRGB colors text with a packed 0xAARRGGBB int, the color format of
// chat messages. Alpha is ignored.
func ColorRGB(rgb int, text string) string {
	if !colorEnabled {
		return text
	}
	r, g, b := (rgb>>16)&0xff, (rgb>>8)&0xff, rgb&0xff
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s%s", r, g, b, text, Reset)
}

// RGB packs a color the way chat messages carry it, with full alpha
func RGB(r, g, b int) int {
	return int(int32(uint32(0xff)<<24 | uint32(r&0xff)<<16 | uint32(g&0xff)<<8 | uint32(b&0xff)))
}
