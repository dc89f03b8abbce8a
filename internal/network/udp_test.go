package network

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/netutil"
)

type received struct {
	mu       sync.Mutex
	messages []string
	ips      []string
}

func (r *received) MessageArrived(message, ip string) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.ips = append(r.ips, ip)
	r.mu.Unlock()
}

func (r *received) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type errorRecorder struct {
	errors []string
}

func (e *errorRecorder) ShowError(message string) { e.errors = append(e.errors, message) }

func TestUDPRoundTrip(t *testing.T) {
	me := model.NewMe("Alice", 12345678)
	receiver := NewUDPReceiver(me, &errorRecorder{})
	receiver.basePort = 0
	got := &received{}
	receiver.RegisterListener(got)

	require.True(t, receiver.Start())
	defer receiver.Stop()
	port := receiver.Port()
	assert.NotZero(t, port)
	assert.Equal(t, port, me.PrivateChatPort())

	sender := NewUDPSender(&errorRecorder{})
	assert.False(t, sender.Send("too early", "127.0.0.1", port))
	require.True(t, sender.Start())
	defer sender.Stop()

	require.True(t, sender.Send("12345678!PRIVMSG#Alice:(87654321)[0]hello  ", "127.0.0.1", port))
	require.Eventually(t, func() bool { return got.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	got.mu.Lock()
	assert.Equal(t, "12345678!PRIVMSG#Alice:(87654321)[0]hello", got.messages[0])
	assert.Equal(t, "127.0.0.1", got.ips[0])
	got.mu.Unlock()

	receiver.Stop()
	assert.False(t, receiver.IsConnected())
	assert.Zero(t, receiver.Port())
}

func TestUDPReceiverSkipsBusyPort(t *testing.T) {
	busy, err := net.ListenPacket("udp4", "0.0.0.0:0")
	require.NoError(t, err)
	defer busy.Close()
	busyPort := busy.LocalAddr().(*net.UDPAddr).Port

	me := model.NewMe("Alice", 12345678)
	errs := &errorRecorder{}
	receiver := NewUDPReceiver(me, errs)
	receiver.basePort = busyPort

	if !receiver.Start() {
		t.Skip("no free port after the busy one")
	}
	defer receiver.Stop()

	assert.Greater(t, me.PrivateChatPort(), busyPort)
	assert.Empty(t, errs.errors)
}

func TestSendToInvalidAddress(t *testing.T) {
	sender := NewUDPSender(nil)
	require.True(t, sender.Start())
	defer sender.Stop()

	assert.False(t, sender.Send("hello", "not an ip", 40656))
}

func TestDecodeMessage(t *testing.T) {
	assert.Equal(t, "hello", decodeMessage([]byte("  hello\x00\x00")))
	assert.Equal(t, "blåbær", decodeMessage([]byte("blåbær\n")))
	assert.Equal(t, "a�b", decodeMessage([]byte{'a', 0xff, 'b'}))
}

func TestServiceWithoutPrivateChat(t *testing.T) {
	s := NewService(Options{
		Me:     model.NewMe("Alice", 12345678),
		Utils:  netutil.New(&fakeLister{}),
		Prober: fakeProber{},
	})

	got := &received{}
	s.RegisterUDPListener(got)
	assert.False(t, s.SendUDPMsg("hello", "127.0.0.1", 40656))
	assert.False(t, s.SendMulticastMsg("hello"))
	assert.False(t, s.IsNetworkUp())
	assert.False(t, s.IsWorkerAlive())
	assert.NotNil(t, s.Worker())
}
