package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const timeFormat = "15:04:05"

// RenderHeader displays the welcome panel
func RenderHeader(version, nick, iface string) string {
	width := 60

	var sb strings.Builder

	titleText := fmt.Sprintf(" lanchat v%s ", version)
	titleLen := utf8.RuneCountInString(titleText)
	leftDashes := 3
	rightDashes := width - 2 - leftDashes - titleLen
	if rightDashes < 0 {
		rightDashes = 0
	}

	sb.WriteString(Color(Cyan, BoxTopLeft))
	sb.WriteString(Color(Cyan, strings.Repeat(BoxHorizontal, leftDashes)))
	sb.WriteString(Color(Cyan+Bold, titleText))
	sb.WriteString(Color(Cyan, strings.Repeat(BoxHorizontal, rightDashes)))
	sb.WriteString(Color(Cyan, BoxTopRight))
	sb.WriteString("\n")

	sb.WriteString(formatCenteredLine("", width))
	sb.WriteString(formatCenteredLine(Color(Bold, fmt.Sprintf("Welcome %s!", nick)), width))
	sb.WriteString(formatCenteredLine("", width))
	if iface != "" {
		sb.WriteString(formatCenteredLine(Color(Dim, "Network interface: "+iface), width))
		sb.WriteString(formatCenteredLine("", width))
	}

	sb.WriteString(Color(Cyan, BoxBottomLeft+strings.Repeat(BoxHorizontal, width-2)+BoxBottomRight))
	sb.WriteString("\n")

	return sb.String()
}

// formatCenteredLine creates a centered line within the box
func formatCenteredLine(text string, width int) string {
	var sb strings.Builder

	visibleLen := visibleLength(text)
	padding := (width - 2 - visibleLen) / 2
	rightPadding := width - 2 - padding - visibleLen
	if padding < 0 {
		padding = 0
	}
	if rightPadding < 0 {
		rightPadding = 0
	}

	sb.WriteString(Color(Cyan, BoxVertical))
	sb.WriteString(strings.Repeat(" ", padding))
	sb.WriteString(text)
	sb.WriteString(strings.Repeat(" ", rightPadding))
	sb.WriteString(Color(Cyan, BoxVertical))
	sb.WriteString("\n")

	return sb.String()
}

// visibleLength returns the visible length of a string, ignoring ANSI codes
func visibleLength(s string) int {
	inEscape := false
	visible := 0
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		visible++
	}
	return visible
}

func stamp(t time.Time) string {
	return Color(Dim, "["+t.Format(timeFormat)+"]")
}

// RenderChatMessage formats a message written by nick in the given color
func RenderChatMessage(t time.Time, nick, text string, color int) string {
	return fmt.Sprintf("%s %s %s", stamp(t), Color(Bold, "<"+nick+">"), ColorRGB(color, text))
}

// RenderPrivateMessage formats a private message between us and nick
func RenderPrivateMessage(t time.Time, nick, text string, color int) string {
	return fmt.Sprintf("%s %s %s", stamp(t), Color(Bold+Magenta, "*"+nick+"*"), ColorRGB(color, text))
}

// RenderSystem formats a system message
func RenderSystem(t time.Time, text string) string {
	return fmt.Sprintf("%s %s", stamp(t), Color(Yellow, "*** "+text))
}

// RenderTopic formats the topic line
func RenderTopic(topic string) string {
	if topic == "" {
		return Color(Dim, "No topic")
	}
	return Color(Bold, "Topic: ") + topic
}

// UserLine is one entry of the user list
type UserLine struct {
	Nick    string
	Away    bool
	Writing bool
	Me      bool
}

// RenderUserList formats the user list, one user per line
func RenderUserList(users []UserLine) string {
	var sb strings.Builder
	sb.WriteString(Color(Bold, fmt.Sprintf("Users (%d):", len(users))))
	sb.WriteString("\n")
	for _, u := range users {
		name := u.Nick
		switch {
		case u.Me:
			name = Color(Bold, name)
		case u.Away:
			name = Color(Dim, name+" (away)")
		}
		if u.Writing {
			name += Color(Green, " *")
		}
		sb.WriteString("  ")
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderHelpLines displays command hints
func RenderHelpLines() string {
	commands := [][2]string{
		{"/msg <nick> <text>", "send a private message"},
		{"/away [message]", "go away"},
		{"/back", "come back"},
		{"/nick <nick>", "change nick"},
		{"/topic [text]", "change or clear the topic"},
		{"/users", "list users"},
		{"/send <nick> <file>", "send a file"},
		{"/accept <id>", "accept a file offer"},
		{"/reject <id>", "reject a file offer"},
		{"/cancel <id>", "cancel a file transfer"},
		{"/transfers", "list file transfers"},
		{"/quit", "log off and exit"},
	}

	var sb strings.Builder
	sb.WriteString(Color(Dim, "  Commands:"))
	sb.WriteString("\n")
	for _, c := range commands {
		sb.WriteString(fmt.Sprintf("  %-22s %s\n", c[0], Color(Dim, c[1])))
	}
	sb.WriteString("\n")
	return sb.String()
}

// RenderError formats an error message
func RenderError(err error) string {
	return Color(Red, fmt.Sprintf("Error: %v", err))
}

// RenderDim formats text in dim style
func RenderDim(msg string) string {
	return Color(Dim, msg)
}
