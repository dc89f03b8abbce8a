package transfer

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lanchat/lanchat/internal/model"
)

const (
	dialAttempts = 10
	dialDelay    = 100 * time.Millisecond
	dialTimeout  = 2 * time.Second
)

// FileSender sends a file to a user who accepted the offer
type FileSender struct {
	*progress
	path    string
	name    string
	claimed atomic.Bool
}

// NewFileSender creates a sender for the file at path
func NewFileSender(user *model.User, path string, id int) (*FileSender, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}

	return &FileSender{
		progress: newProgress(id, user, info.Size(), FileHash(abs), Send),
		path:     abs,
		name:     info.Name(),
	}, nil
}

// FileName returns the base name of the file
func (s *FileSender) FileName() string { return s.name }

// Path returns the absolute path of the file
func (s *FileSender) Path() string { return s.path }

// IsWaiting returns true until Transfer is called
func (s *FileSender) IsWaiting() bool { return s.State() == StateWaiting }

// Claim reserves the sender for the first accept of the offer. Later
// accepts of the same offer get false.
func (s *FileSender) Claim() bool {
	return s.claimed.CompareAndSwap(false, true)
}

// Transfer connects to the receiver on port and sends the file. It blocks
// until the file is sent, the transfer fails or it is canceled, and
// returns true if the whole file was sent. Only the first call transfers;
// later calls return false and leave the running transfer alone.
func (s *FileSender) Transfer(port int) bool {
	if s.IsCanceled() || !s.moveTo(StateConnecting) {
		return false
	}
	defer s.closeAll()

	addr := net.JoinHostPort(s.user.IPAddress(), strconv.Itoa(port))
	entry := log.WithField("id", s.id).WithField("addr", addr)

	var conn net.Conn
	for attempt := 1; attempt <= dialAttempts && !s.IsCanceled(); attempt++ {
		c, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err == nil {
			conn = c
			break
		}
		entry.WithError(err).Warnf("connect to receiver, attempt %d", attempt)
		time.Sleep(dialDelay)
	}

	if conn == nil || !s.track(conn) {
		s.moveTo(StateFailed)
		return false
	}

	f, err := os.Open(s.path)
	if err != nil {
		entry.WithError(err).Error("open file")
		s.moveTo(StateFailed)
		return false
	}
	if !s.track(f) {
		s.moveTo(StateFailed)
		return false
	}

	s.moveTo(StateTransferring)
	entry.Infof("sending %s (%d bytes)", s.name, s.size)

	total, err := s.copyChunks(conn, f)
	return s.finish(total, err)
}

// Cancel stops the transfer and closes the connection. It reports the
// failure to the listener once, however many times it is called.
func (s *FileSender) Cancel() {
	if s.markCanceled() {
		return
	}
	s.closeAll()
	s.moveTo(StateFailed)
}
