// Package transfer streams files between two users over a direct TCP
// connection and keeps track of the transfers in progress.
package transfer

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/lanchat/lanchat/internal/metrics"
	"github.com/lanchat/lanchat/internal/model"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "transfer")

const (
	// FileTransferPort is the first port tried by a receiver
	FileTransferPort = 40756
	// PortAttempts is how many ports are tried after FileTransferPort
	PortAttempts = 50
	// ServerTimeout closes a receiver's server socket nobody connected to
	ServerTimeout = 15 * time.Second

	chunkSize      = 1024
	updateInterval = 250
)

// ErrNoFreePort is returned when no transfer port could be opened
var ErrNoFreePort = errors.New("no free file transfer port")

// Direction tells whether a transfer sends or receives
type Direction int

const (
	Send Direction = iota
	Receive
)

func (d Direction) String() string {
	if d == Send {
		return "send"
	}
	return "receive"
}

// State is the position of a transfer in its life cycle. States only move
// forward.
type State int

const (
	StateWaiting State = iota
	StateConnecting
	StateTransferring
	StateCompleted
	StateFailed
	// StateRejected is reached when a receiver declines the offer
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateConnecting:
		return "connecting"
	case StateTransferring:
		return "transferring"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Terminal reports whether no further transitions can happen
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// Listener follows the progress of one transfer. Exactly one of
// StatusCompleted or StatusFailed is delivered, also for rejected and
// canceled transfers.
type Listener interface {
	StatusWaiting()
	StatusConnecting()
	StatusTransferring()
	StatusCompleted()
	StatusFailed()
	TransferUpdate()
}

// FileTransfer is what senders and receivers have in common
type FileTransfer interface {
	ID() int
	User() *model.User
	FileName() string
	FileSize() int64
	FileHash() int
	Transferred() int64
	Percent() int
	Speed() int64
	Direction() Direction
	State() State
	IsCanceled() bool
	IsTransferred() bool
	Cancel()
	RegisterListener(l Listener)
}

type nopListener struct{}

func (nopListener) StatusWaiting()      {}
func (nopListener) StatusConnecting()   {}
func (nopListener) StatusTransferring() {}
func (nopListener) StatusCompleted()    {}
func (nopListener) StatusFailed()       {}
func (nopListener) TransferUpdate()     {}

// progress holds the state shared by senders and receivers
type progress struct {
	id        int
	user      *model.User
	size      int64
	hash      int
	direction Direction
	counter   *metrics.ByteCounter

	mu          sync.Mutex
	state       State
	listener    Listener
	canceled    bool
	transferred int64
	percent     int
	closers     []io.Closer
}

func newProgress(id int, user *model.User, size int64, hash int, dir Direction) *progress {
	return &progress{
		id:        id,
		user:      user,
		size:      size,
		hash:      hash,
		direction: dir,
		counter:   metrics.NewByteCounter(),
		listener:  nopListener{},
	}
}

// ID returns the transfer id
func (p *progress) ID() int { return p.id }

// User returns the other end of the transfer
func (p *progress) User() *model.User { return p.user }

// FileSize returns the size of the file in bytes
func (p *progress) FileSize() int64 { return p.size }

// FileHash returns the hash identifying the file in protocol messages
func (p *progress) FileHash() int { return p.hash }

// Direction returns the direction of the transfer
func (p *progress) Direction() Direction { return p.direction }

// Speed returns the current speed in bytes per second
func (p *progress) Speed() int64 { return p.counter.BytesPerSec() }

// Transferred returns the bytes transferred so far
func (p *progress) Transferred() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transferred
}

// Percent returns how much of the file is transferred
func (p *progress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

// State returns the current state
func (p *progress) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsCanceled returns true after Cancel
func (p *progress) IsCanceled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canceled
}

// IsTransferred returns true if the whole file was transferred
func (p *progress) IsTransferred() bool {
	return p.State() == StateCompleted
}

// RegisterListener sets the listener and reports the waiting state to it
func (p *progress) RegisterListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	p.mu.Lock()
	p.listener = l
	p.mu.Unlock()
	l.StatusWaiting()
}

func (p *progress) currentListener() Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listener
}

// moveTo changes the state and notifies the listener. Moves backwards and
// moves out of a terminal state are ignored, which makes the terminal
// notification happen once.
func (p *progress) moveTo(s State) bool {
	p.mu.Lock()
	if p.state.Terminal() || s <= p.state {
		p.mu.Unlock()
		return false
	}
	p.state = s
	l := p.listener
	p.mu.Unlock()

	switch s {
	case StateConnecting:
		l.StatusConnecting()
	case StateTransferring:
		l.StatusTransferring()
	case StateCompleted:
		l.StatusCompleted()
	case StateFailed, StateRejected:
		l.StatusFailed()
	}
	return true
}

// track registers a resource closed by cancel. It is closed at once if the
// transfer is already canceled.
func (p *progress) track(c io.Closer) bool {
	p.mu.Lock()
	if p.canceled {
		p.mu.Unlock()
		c.Close()
		return false
	}
	p.closers = append(p.closers, c)
	p.mu.Unlock()
	return true
}

func (p *progress) closeAll() {
	p.mu.Lock()
	closers := p.closers
	p.closers = nil
	p.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.WithError(err).Debug("close transfer resource")
		}
	}
}

// markCanceled sets the cancel flag and reports whether it was already set
func (p *progress) markCanceled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.canceled
	p.canceled = true
	return was
}

// copyChunks copies src to dst in small chunks until EOF or cancel,
// updating the counters and notifying the listener when the percent grows
// or every updateInterval chunks.
func (p *progress) copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	lastPercent := 0
	chunks := 0

	p.mu.Lock()
	p.transferred = 0
	p.percent = 0
	p.mu.Unlock()
	p.counter.Prepare()

	for !p.IsCanceled() {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)

			p.mu.Lock()
			p.transferred = total
			if p.size > 0 {
				p.percent = int(total * 100 / p.size)
			} else {
				p.percent = 100
			}
			percent := p.percent
			p.mu.Unlock()

			p.counter.AddBytes(int64(n))
			chunks++

			if percent > lastPercent || chunks >= updateInterval {
				chunks = 0
				lastPercent = percent
				p.currentListener().TransferUpdate()
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
	return total, nil
}

// finish moves to Completed when the whole file went through, otherwise
// to Failed.
func (p *progress) finish(total int64, err error) bool {
	if err != nil && !p.IsCanceled() {
		log.WithError(err).WithField("id", p.id).Error("transfer file")
	}
	if err == nil && !p.IsCanceled() && total == p.size {
		return p.moveTo(StateCompleted)
	}
	p.moveTo(StateFailed)
	return false
}
