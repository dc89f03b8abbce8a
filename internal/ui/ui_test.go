package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withColor(t *testing.T, enabled bool) {
	prev := colorEnabled
	colorEnabled = enabled
	t.Cleanup(func() { colorEnabled = prev })
}

func TestColorRGB(t *testing.T) {
	withColor(t, true)
	assert.Equal(t, "\033[38;2;255;0;16mhi"+Reset, ColorRGB(RGB(255, 0, 16), "hi"))

	withColor(t, false)
	assert.Equal(t, "hi", ColorRGB(RGB(255, 0, 16), "hi"))
}

func TestRGBPacksLikeChatColors(t *testing.T) {
	assert.Equal(t, -15987646, RGB(12, 12, 66))
	assert.Equal(t, -1, RGB(255, 255, 255))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.00 KiB", FormatSize(1024))
	assert.Equal(t, "1.50 MiB", FormatSize(1536*1024))
}

func TestRenderChatMessage(t *testing.T) {
	withColor(t, false)
	at := time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC)
	assert.Equal(t, "[13:04:05] <Alice> hello", RenderChatMessage(at, "Alice", "hello", 0))
	assert.Equal(t, "[13:04:05] *** Bob logged on", RenderSystem(at, "Bob logged on"))
}

func TestRenderFileOfferBoxWidth(t *testing.T) {
	withColor(t, true)
	out := RenderFileOffer(FileOfferCard{ID: 3, Nick: "Bob", FileName: "photo.jpg", Size: 2048})

	lines := strings.Split(strings.Trim(out, "\n"), "\n")
	for _, line := range lines {
		assert.Equal(t, 60, visibleLength(line), line)
	}
	assert.Contains(t, out, "/accept 3")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "blåbærs...", truncate("blåbærsyltetøy", 10))
}

func TestSpinnerClearsLineOnStop(t *testing.T) {
	withColor(t, false)
	var buf syncBuffer
	s := NewSpinner("Looking for a network...")
	s.out = &buf
	s.enabled = true
	s.interval = time.Millisecond

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Looking for a network...")
	}, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()

	assert.True(t, strings.HasSuffix(buf.String(), "\r"))
}

func TestSpinnerSilentWhenDisabled(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner("waiting")
	s.out = &buf
	s.enabled = false

	s.Start()
	s.Stop()
	assert.Empty(t, buf.String())
}

type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}
