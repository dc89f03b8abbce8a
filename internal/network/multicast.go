package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/ipv4"
)

// MessageSender sends messages to a multicast group
type MessageSender struct {
	group *net.UDPAddr

	mu   sync.Mutex
	conn net.PacketConn
	pc   *ipv4.PacketConn
}

// NewMessageSender creates a sender for the group address and port
func NewMessageSender(group string, port int) *MessageSender {
	return &MessageSender{group: &net.UDPAddr{IP: net.ParseIP(group), Port: port}}
}

// Start opens the socket on iface. A nil iface lets the operating system
// choose. Returns true if the sender is connected.
func (s *MessageSender) Start(iface *net.Interface) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := log.WithField("group", s.group.String())
	if s.conn != nil {
		entry.Debug("sender already connected")
		return true
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		entry.WithError(err).Error("start multicast sender")
		return false
	}

	pc := ipv4.NewPacketConn(conn)
	if iface != nil {
		if err := pc.SetMulticastInterface(iface); err != nil {
			entry.WithError(err).Errorf("use interface %s", iface.Name)
			conn.Close()
			return false
		}
	}
	if err := pc.SetMulticastTTL(TTL); err != nil {
		entry.WithError(err).Warn("set multicast ttl")
	}
	if err := pc.SetTOS(IPTOSReliability); err != nil {
		entry.WithError(err).Debug("set type of service")
	}
	// our own LOGON and IDLE must come back to us
	if err := pc.SetMulticastLoopback(true); err != nil {
		entry.WithError(err).Warn("enable multicast loopback")
	}

	s.conn = conn
	s.pc = pc
	entry.WithField("iface", ifaceName(iface)).Debug("multicast sender connected")
	return true
}

// Stop closes the socket
func (s *MessageSender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		log.WithError(err).Debug("close multicast sender")
	}
	s.conn = nil
	s.pc = nil
	log.WithField("group", s.group.String()).Debug("multicast sender disconnected")
}

// IsConnected returns true between Start and Stop
func (s *MessageSender) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send sends the message to the group. Messages larger than PacketSize are
// sent anyway, but receivers may only get the first part.
func (s *MessageSender) Send(message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pc == nil {
		return false
	}

	data := []byte(message)
	if len(data) > PacketSize {
		log.WithField("size", len(data)).Warnf("message too large, receivers might not get all of it: %q", message)
	}

	if _, err := s.pc.WriteTo(data, nil, s.group); err != nil {
		log.WithError(err).WithField("message", message).Warn("send multicast message")
		return false
	}
	log.WithField("message", message).Debug("sent message")
	return true
}

// MessageReceiver reads messages from a multicast group and passes them
// to its listener.
type MessageReceiver struct {
	group *net.UDPAddr

	mu       sync.Mutex
	conn     net.PacketConn
	pc       *ipv4.PacketConn
	iface    *net.Interface
	listener ReceiverListener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewMessageReceiver creates a receiver for the group address and port
func NewMessageReceiver(group string, port int) *MessageReceiver {
	return &MessageReceiver{group: &net.UDPAddr{IP: net.ParseIP(group), Port: port}}
}

// RegisterListener sets who gets the received messages
func (r *MessageReceiver) RegisterListener(l ReceiverListener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Start binds the group port, joins the group on iface and starts the
// receive loop. A nil iface lets the operating system choose.
func (r *MessageReceiver) Start(iface *net.Interface) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := log.WithField("group", r.group.String())
	if r.conn != nil {
		entry.Debug("receiver already connected")
		return true
	}

	lc := net.ListenConfig{Control: reuseControl}
	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", r.group.Port))
	if err != nil {
		entry.WithError(err).Error("start multicast receiver")
		return false
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(iface, &net.UDPAddr{IP: r.group.IP}); err != nil {
		entry.WithError(err).Errorf("join group on %s", ifaceName(iface))
		conn.Close()
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.conn = conn
	r.pc = pc
	r.iface = iface
	r.cancel = cancel

	r.wg.Add(1)
	go r.listenLoop(ctx, conn)

	entry.WithField("iface", ifaceName(iface)).Debug("multicast receiver connected")
	return true
}

// Stop leaves the group, closes the socket and waits for the receive loop
func (r *MessageReceiver) Stop() {
	r.mu.Lock()
	if r.conn == nil {
		r.mu.Unlock()
		return
	}
	r.cancel()
	if err := r.pc.LeaveGroup(r.iface, &net.UDPAddr{IP: r.group.IP}); err != nil {
		log.WithError(err).Debug("leave multicast group")
	}
	r.conn.Close()
	r.conn = nil
	r.pc = nil
	r.mu.Unlock()

	r.wg.Wait()
	log.WithField("group", r.group.String()).Debug("multicast receiver disconnected")
}

// IsConnected returns true between Start and Stop
func (r *MessageReceiver) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

func (r *MessageReceiver) currentListener() ReceiverListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener
}

func (r *MessageReceiver) listenLoop(ctx context.Context, conn net.PacketConn) {
	defer r.wg.Done()
	readLoop(ctx, conn, r.currentListener, "multicast")
}

// readLoop reads datagrams until ctx is done, using short read deadlines
// so a stop is noticed quickly.
func readLoop(ctx context.Context, conn net.PacketConn, listener func() ReceiverListener, name string) {
	buf := make([]byte, PacketSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(1 * time.Second))

		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warnf("%s read error", name)
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		message := decodeMessage(buf[:n])
		ip := ""
		if udpAddr, ok := addr.(*net.UDPAddr); ok {
			ip = udpAddr.IP.String()
		}
		log.WithField("ip", ip).WithField("message", message).Debugf("%s message arrived", name)

		if l := listener(); l != nil {
			l.MessageArrived(message, ip)
		}
	}
}

// decodeMessage turns a datagram into text, replacing invalid UTF-8 and
// trimming control characters and spaces at both ends.
func decodeMessage(b []byte) string {
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
}

func ifaceName(iface *net.Interface) string {
	if iface == nil {
		return "default"
	}
	return iface.Name
}
