package ui

import (
	"fmt"
	"strings"
)

// FileOfferCard describes a file someone wants to send us
type FileOfferCard struct {
	ID       int
	Nick     string
	FileName string
	Size     int64
	SaveAs   string
}

// RenderFileOffer displays a file offer with the commands to answer it
func RenderFileOffer(card FileOfferCard) string {
	width := 60

	var sb strings.Builder

	title := fmt.Sprintf(" File offer #%d ", card.ID)
	topPadding := width - 4 - len(title)
	if topPadding < 0 {
		topPadding = 0
	}
	sb.WriteString("\n")
	sb.WriteString(Color(Yellow, BoxTopLeft+strings.Repeat(BoxHorizontal, 2)+title+
		strings.Repeat(BoxHorizontal, topPadding)+BoxTopRight))
	sb.WriteString("\n")

	sb.WriteString(cardLine("From:", card.Nick, width))
	sb.WriteString(cardLine("File:", truncate(card.FileName, width-14), width))
	sb.WriteString(cardLine("Size:", FormatSize(card.Size), width))
	if card.SaveAs != "" {
		sb.WriteString(cardLine("Save as:", truncate(card.SaveAs, width-17), width))
	}

	sb.WriteString(Color(Yellow, BoxTeeRight+strings.Repeat(BoxHorizontal, width-2)+BoxTeeLeft))
	sb.WriteString("\n")
	hint := fmt.Sprintf("%s /accept %d   %s /reject %d", Color(Green, "[y]"), card.ID, Color(Red, "[n]"), card.ID)
	sb.WriteString(Color(Yellow, BoxVertical))
	sb.WriteString(" ")
	sb.WriteString(hint)
	if pad := width - 3 - visibleLength(hint); pad > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
	}
	sb.WriteString(Color(Yellow, BoxVertical))
	sb.WriteString("\n")

	sb.WriteString(Color(Yellow, BoxBottomLeft+strings.Repeat(BoxHorizontal, width-2)+BoxBottomRight))
	sb.WriteString("\n")

	return sb.String()
}

func cardLine(label, value string, width int) string {
	var sb strings.Builder
	sb.WriteString(Color(Yellow, BoxVertical))
	sb.WriteString(fmt.Sprintf(" %s %s", Color(Dim, label), value))
	if pad := width - 4 - len(label) - visibleLength(value); pad > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
	}
	sb.WriteString(Color(Yellow, BoxVertical))
	sb.WriteString("\n")
	return sb.String()
}

// TransferLine is one entry of the transfer list
type TransferLine struct {
	ID       int
	Sending  bool
	Nick     string
	FileName string
	Percent  int
	Speed    int64
	State    string
}

// RenderTransfers formats the transfer list
func RenderTransfers(lines []TransferLine) string {
	if len(lines) == 0 {
		return Color(Dim, "No file transfers") + "\n"
	}

	var sb strings.Builder
	for _, l := range lines {
		dir := Color(Cyan, "->")
		if !l.Sending {
			dir = Color(Magenta, "<-")
		}
		sb.WriteString(fmt.Sprintf("  #%-3d %s %-10s %-24s %3d%% %10s/s  %s\n",
			l.ID, dir, l.Nick, truncate(l.FileName, 24), l.Percent, FormatSize(l.Speed), Color(Dim, l.State)))
	}
	return sb.String()
}

// FormatSize renders a byte count with a binary unit
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// truncate shortens a string if it exceeds maxLen
func truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
