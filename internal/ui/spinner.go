package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a waiting indicator on a single terminal line until the
// first chat output replaces it. Safe to start and stop from several
// goroutines.
type Spinner struct {
	out      io.Writer
	message  string
	interval time.Duration
	enabled  bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpinner creates a spinner writing to stdout. It stays silent when
// stdout is not a terminal.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		out:      os.Stdout,
		message:  message,
		interval: 80 * time.Millisecond,
		enabled:  isTTY,
	}
}

// Start shows the spinner until Stop is called
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

func (s *Spinner) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	started := time.Now()

	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			fmt.Fprint(s.out, "\r"+strings.Repeat(" ", len(s.message)+16)+"\r")
			return
		case <-ticker.C:
			line := Color(Cyan, spinnerFrames[frame%len(spinnerFrames)]) + " " + s.message
			if waited := time.Since(started); waited > 2*time.Second {
				line += fmt.Sprintf(" (%ds)", int(waited.Seconds()))
			}
			fmt.Fprint(s.out, "\r"+line)
		}
	}
}

// Stop clears the spinner line. Stopping a stopped spinner does nothing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
