package transfer

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/lanchat/lanchat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
	updates  int
}

func (r *statusRecorder) add(s string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
}

func (r *statusRecorder) StatusWaiting()      { r.add("waiting") }
func (r *statusRecorder) StatusConnecting()   { r.add("connecting") }
func (r *statusRecorder) StatusTransferring() { r.add("transferring") }
func (r *statusRecorder) StatusCompleted()    { r.add("completed") }
func (r *statusRecorder) StatusFailed()       { r.add("failed") }
func (r *statusRecorder) TransferUpdate() {
	r.mu.Lock()
	r.updates++
	r.mu.Unlock()
}

func (r *statusRecorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *statusRecorder) terminals() int {
	n := 0
	for _, s := range r.Statuses() {
		if s == "completed" || s == "failed" {
			n++
		}
	}
	return n
}

func localUser() *model.User {
	u := model.NewUser("Bob", 10000002)
	u.SetIPAddress("127.0.0.1")
	return u
}

func writeFile(t *testing.T, size int) (string, []byte) {
	t.Helper()
	data := bytes.Repeat([]byte("lanchat!"), size/8+1)[:size]
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func TestSendAndReceive(t *testing.T) {
	path, data := writeFile(t, 300*1024+17)

	sender, err := NewFileSender(localUser(), path, 1)
	require.NoError(t, err)
	assert.Equal(t, "payload.bin", sender.FileName())
	assert.Equal(t, int64(len(data)), sender.FileSize())
	assert.Equal(t, FileHash(sender.Path()), sender.FileHash())

	dest := filepath.Join(t.TempDir(), "copy.bin")
	receiver := NewFileReceiver(localUser(), dest, sender.FileSize(), sender.FileHash(), 2)
	receiver.basePort = 0

	sendRec, recvRec := &statusRecorder{}, &statusRecorder{}
	sender.RegisterListener(sendRec)
	receiver.RegisterListener(recvRec)
	assert.True(t, sender.IsWaiting())

	receiver.Accept()
	require.Equal(t, DecisionAccepted, receiver.WaitForDecision(context.Background()))

	port, err := receiver.StartServer()
	require.NoError(t, err)

	received := make(chan bool, 1)
	go func() { received <- receiver.Transfer() }()

	assert.True(t, sender.Transfer(port))
	assert.True(t, <-received)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	want := []string{"waiting", "connecting", "transferring", "completed"}
	assert.Equal(t, want, sendRec.Statuses())
	assert.Equal(t, want, recvRec.Statuses())
	assert.Equal(t, 100, sender.Percent())
	assert.Equal(t, int64(len(data)), receiver.Transferred())
	assert.True(t, sender.IsTransferred())
	assert.True(t, receiver.IsTransferred())
	assert.GreaterOrEqual(t, sendRec.updates, 100)

	// a finished transfer stays finished
	sender.Cancel()
	assert.Equal(t, StateCompleted, sender.State())
	assert.Equal(t, 1, sendRec.terminals())
}

func TestSenderGivesUpAfterTenAttempts(t *testing.T) {
	path, _ := writeFile(t, 10)
	sender, err := NewFileSender(localUser(), path, 1)
	require.NoError(t, err)
	rec := &statusRecorder{}
	sender.RegisterListener(rec)

	// grab a free port and close it again so nothing listens there
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	start := time.Now()
	assert.False(t, sender.Transfer(port))
	assert.GreaterOrEqual(t, time.Since(start), dialAttempts*dialDelay)

	assert.Equal(t, []string{"waiting", "connecting", "failed"}, rec.Statuses())
	assert.Equal(t, StateFailed, sender.State())
	assert.False(t, sender.IsCanceled())
}

func TestReceiverFailsOnShortRead(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "short.bin")
	receiver := NewFileReceiver(localUser(), dest, 4096, 7, 1)
	receiver.basePort = 0
	rec := &statusRecorder{}
	receiver.RegisterListener(rec)

	port, err := receiver.StartServer()
	require.NoError(t, err)

	go func() {
		conn, err := net.Dial("tcp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return
		}
		conn.Write(make([]byte, 1000))
		conn.Close()
	}()

	assert.False(t, receiver.Transfer())
	assert.Equal(t, []string{"waiting", "connecting", "transferring", "failed"}, rec.Statuses())
	assert.Equal(t, int64(1000), receiver.Transferred())
	assert.Equal(t, 24, receiver.Percent())
}

func TestSenderFailsWhenFileShrinks(t *testing.T) {
	path, _ := writeFile(t, 5000)
	sender, err := NewFileSender(localUser(), path, 1)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, 1000))
	rec := &statusRecorder{}
	sender.RegisterListener(rec)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		io.Copy(io.Discard, conn)
		conn.Close()
	}()

	assert.False(t, sender.Transfer(ln.Addr().(*net.TCPAddr).Port))
	assert.Equal(t, []string{"waiting", "connecting", "transferring", "failed"}, rec.Statuses())
}

func TestCancelDuringTransfer(t *testing.T) {
	path, _ := writeFile(t, 1024)
	sender, err := NewFileSender(localUser(), path, 1)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "never.bin")
	receiver := NewFileReceiver(localUser(), dest, 1<<30, 3, 2)
	receiver.basePort = 0
	rec := &statusRecorder{}
	receiver.RegisterListener(rec)

	port, err := receiver.StartServer()
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() { done <- receiver.Transfer() }()

	// keep the connection open without sending everything
	conn, err := net.Dial("tcp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(make([]byte, 2048))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return receiver.Transferred() == 2048 }, 2*time.Second, 10*time.Millisecond)

	receiver.Cancel()
	receiver.Cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("transfer did not stop after cancel")
	}

	assert.True(t, receiver.IsCanceled())
	assert.Equal(t, StateFailed, receiver.State())
	assert.Equal(t, 1, rec.terminals())

	// canceled before start never connects
	sender.Cancel()
	assert.False(t, sender.Transfer(port))
	assert.Equal(t, StateFailed, sender.State())
}

func TestSecondTransferLeavesRunningTransferAlone(t *testing.T) {
	path, data := writeFile(t, 8<<20)
	sender, err := NewFileSender(localUser(), path, 1)
	require.NoError(t, err)
	rec := &statusRecorder{}
	sender.RegisterListener(rec)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	release := make(chan struct{})
	received := make(chan int, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- -1
			return
		}
		defer conn.Close()
		<-release
		n, _ := io.Copy(io.Discard, conn)
		received <- int(n)
	}()

	first := make(chan bool, 1)
	go func() { first <- sender.Transfer(port) }()
	require.Eventually(t, func() bool { return sender.State() == StateTransferring }, 2*time.Second, 5*time.Millisecond)

	assert.False(t, sender.Transfer(port))
	close(release)

	assert.True(t, <-first)
	assert.Equal(t, len(data), <-received)
	assert.Equal(t, []string{"waiting", "connecting", "transferring", "completed"}, rec.Statuses())
}

func TestClaimOnlyOnce(t *testing.T) {
	path, _ := writeFile(t, 10)
	sender, err := NewFileSender(localUser(), path, 1)
	require.NoError(t, err)

	assert.True(t, sender.Claim())
	assert.False(t, sender.Claim())
	assert.True(t, sender.IsWaiting())
}

func TestRejectIsTerminal(t *testing.T) {
	receiver := NewFileReceiver(localUser(), filepath.Join(t.TempDir(), "x"), 10, 1, 1)
	rec := &statusRecorder{}
	receiver.RegisterListener(rec)

	receiver.Reject()
	receiver.Accept()

	assert.Equal(t, DecisionRejected, receiver.WaitForDecision(context.Background()))
	assert.True(t, receiver.IsRejected())
	assert.False(t, receiver.IsAccepted())
	assert.Equal(t, StateRejected, receiver.State())

	receiver.Cancel()
	assert.Equal(t, StateRejected, receiver.State())
	assert.Equal(t, []string{"waiting", "failed"}, rec.Statuses())
}

func TestWaitForDecisionCanceled(t *testing.T) {
	receiver := NewFileReceiver(localUser(), "x", 10, 1, 1)

	go func() {
		time.Sleep(20 * time.Millisecond)
		receiver.Cancel()
	}()
	assert.Equal(t, DecisionCanceled, receiver.WaitForDecision(context.Background()))

	other := NewFileReceiver(localUser(), "y", 10, 1, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, DecisionCanceled, other.WaitForDecision(ctx))
}

func TestUniqueFile(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "a.txt"), UniqueFile(dir, "a.txt"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_1.txt"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "a_2.txt"), UniqueFile(dir, "a.txt"))
	assert.Equal(t, filepath.Join(dir, "passwd"), UniqueFile(dir, "../../etc/passwd"))
}
