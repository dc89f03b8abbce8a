package transfer

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lanchat/lanchat/internal/model"
)

// Decision is the answer of the local user to a file offer
type Decision int

const (
	DecisionAccepted Decision = iota
	DecisionRejected
	// DecisionCanceled means the offer went away before anybody answered
	DecisionCanceled
)

func (d Decision) String() string {
	switch d {
	case DecisionAccepted:
		return "accepted"
	case DecisionRejected:
		return "rejected"
	}
	return "canceled"
}

// FileReceiver receives a file offered by another user
type FileReceiver struct {
	*progress
	originalName string

	mu       sync.Mutex
	file     string
	accepted bool
	rejected bool
	server   net.Listener

	decided   chan struct{}
	cancelCh  chan struct{}
	decideOne sync.Once
	cancelOne sync.Once

	basePort int
}

// NewFileReceiver creates a receiver for an offer of size bytes that will
// be saved as file.
func NewFileReceiver(user *model.User, file string, size int64, hash, id int) *FileReceiver {
	return &FileReceiver{
		progress:     newProgress(id, user, size, hash, Receive),
		originalName: filepath.Base(file),
		file:         file,
		decided:      make(chan struct{}),
		cancelCh:     make(chan struct{}),
		basePort:     FileTransferPort,
	}
}

// FileName returns the base name of the destination file
func (r *FileReceiver) FileName() string {
	return filepath.Base(r.File())
}

// OriginalFileName returns the file name used in the offer
func (r *FileReceiver) OriginalFileName() string { return r.originalName }

// File returns the destination path
func (r *FileReceiver) File() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file
}

// SetFile changes the destination path. Call it before Accept.
func (r *FileReceiver) SetFile(file string) {
	r.mu.Lock()
	r.file = file
	r.mu.Unlock()
}

// IsAccepted returns true after Accept
func (r *FileReceiver) IsAccepted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted
}

// IsRejected returns true after Reject
func (r *FileReceiver) IsRejected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejected
}

// Accept accepts the offer. Only the first decision counts.
func (r *FileReceiver) Accept() {
	r.decideOne.Do(func() {
		r.mu.Lock()
		r.accepted = true
		r.mu.Unlock()
		close(r.decided)
	})
}

// Reject declines the offer and ends the transfer in the rejected state
func (r *FileReceiver) Reject() {
	r.decideOne.Do(func() {
		r.mu.Lock()
		r.rejected = true
		r.mu.Unlock()
		close(r.decided)
		r.moveTo(StateRejected)
	})
}

// WaitForDecision blocks until the offer is accepted, rejected or
// canceled, or ctx is done.
func (r *FileReceiver) WaitForDecision(ctx context.Context) Decision {
	select {
	case <-r.decided:
	case <-r.cancelCh:
		return DecisionCanceled
	case <-ctx.Done():
		return DecisionCanceled
	}

	if r.IsCanceled() {
		return DecisionCanceled
	}
	if r.IsRejected() {
		return DecisionRejected
	}
	return DecisionAccepted
}

// StartServer opens the server socket the sender connects to and returns
// its port. The socket is closed if nobody connects within ServerTimeout.
func (r *FileReceiver) StartServer() (int, error) {
	var ln net.Listener
	port := r.basePort
	for i := 0; i < PortAttempts; i, port = i+1, port+1 {
		l, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
		if err == nil {
			ln = l
			break
		}
		log.WithError(err).Debugf("open file transfer port %d", port)
	}
	if ln == nil {
		return 0, fmt.Errorf("%w in %d-%d", ErrNoFreePort, r.basePort, r.basePort+PortAttempts-1)
	}
	if !r.track(ln) {
		return 0, fmt.Errorf("transfer %d canceled", r.id)
	}

	r.mu.Lock()
	r.server = ln
	r.mu.Unlock()

	time.AfterFunc(ServerTimeout, func() {
		if r.State() <= StateConnecting && r.Transferred() == 0 {
			ln.Close()
		}
	})

	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Transfer waits for the sender and receives the file. It returns true if
// exactly the offered number of bytes arrived. Only the first call
// transfers.
func (r *FileReceiver) Transfer() bool {
	if !r.moveTo(StateConnecting) {
		return false
	}
	defer r.closeAll()

	r.mu.Lock()
	ln := r.server
	r.mu.Unlock()

	if ln == nil || r.IsCanceled() {
		r.moveTo(StateFailed)
		return false
	}

	entry := log.WithField("id", r.id).WithField("file", r.File())

	conn, err := ln.Accept()
	ln.Close()
	if err != nil {
		if !r.IsCanceled() {
			entry.WithError(err).Error("wait for sender")
		}
		r.moveTo(StateFailed)
		return false
	}
	if !r.track(conn) {
		r.moveTo(StateFailed)
		return false
	}

	f, err := os.OpenFile(r.File(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		entry.WithError(err).Error("create file")
		r.moveTo(StateFailed)
		return false
	}
	if !r.track(f) {
		r.moveTo(StateFailed)
		return false
	}

	r.moveTo(StateTransferring)
	entry.Infof("receiving %d bytes", r.size)

	total, err := r.copyChunks(f, conn)
	if err == nil {
		err = f.Sync()
	}
	return r.finish(total, err)
}

// Cancel stops the transfer, closes the sockets and wakes up
// WaitForDecision. The failure is reported to the listener once.
func (r *FileReceiver) Cancel() {
	if r.markCanceled() {
		return
	}
	r.cancelOne.Do(func() { close(r.cancelCh) })
	r.closeAll()
	r.moveTo(StateFailed)
}
