package network

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"

	"github.com/lanchat/lanchat/internal/model"
)

// UDPSender sends private messages directly to other clients
type UDPSender struct {
	errors ErrorHandler

	mu   sync.Mutex
	conn net.PacketConn
	pc   *ipv4.PacketConn
}

// NewUDPSender creates a sender reporting setup failures to errors
func NewUDPSender(errors ErrorHandler) *UDPSender {
	return &UDPSender{errors: errors}
}

// Start opens the socket
func (s *UDPSender) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		log.Debug("udp sender already connected")
		return true
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		log.WithError(err).Error("start udp sender")
		if s.errors != nil {
			s.errors.ShowError(fmt.Sprintf("Failed to initialize network:\n%v\n\nYou will not be able to send private messages!", err))
		}
		return false
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetTOS(IPTOSReliability); err != nil {
		log.WithError(err).Debug("set type of service")
	}

	s.conn = conn
	s.pc = pc
	log.Debug("udp sender connected")
	return true
}

// Stop closes the socket
func (s *UDPSender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return
	}
	s.conn.Close()
	s.conn = nil
	s.pc = nil
	log.Debug("udp sender disconnected")
}

// IsConnected returns true between Start and Stop
func (s *UDPSender) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send sends the message to ip:port
func (s *UDPSender) Send(message, ip string, port int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pc == nil {
		return false
	}

	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
	if addr.IP == nil {
		log.WithField("ip", ip).Error("send private message to invalid address")
		return false
	}

	data := []byte(message)
	if len(data) > PacketSize {
		log.WithField("size", len(data)).Warnf("message too large, receiver might not get all of it: %q", message)
	}

	if _, err := s.pc.WriteTo(data, nil, addr); err != nil {
		log.WithError(err).WithField("message", message).Error("send private message")
		return false
	}
	log.WithField("to", addr.String()).WithField("message", message).Debug("sent private message")
	return true
}

// UDPReceiver listens for private messages on the first free port from
// PrivateChatPort, and records that port on me so others can reach us.
type UDPReceiver struct {
	me       *model.User
	errors   ErrorHandler
	basePort int

	mu       sync.Mutex
	conn     net.PacketConn
	listener ReceiverListener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewUDPReceiver creates a receiver for me reporting setup failures to errors
func NewUDPReceiver(me *model.User, errors ErrorHandler) *UDPReceiver {
	return &UDPReceiver{me: me, errors: errors, basePort: PrivateChatPort}
}

// RegisterListener sets who gets the received messages
func (r *UDPReceiver) RegisterListener(l ReceiverListener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Port returns the bound port, or 0
func (r *UDPReceiver) Port() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return 0
	}
	return r.conn.LocalAddr().(*net.UDPAddr).Port
}

// Start binds the first free port and starts the receive loop
func (r *UDPReceiver) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		log.Debug("udp receiver already connected")
		return true
	}

	port := r.basePort
	for i := 0; i < PortAttempts; i++ {
		conn, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", port))
		if err != nil {
			log.WithError(err).WithField("port", port).Debug("udp port not available")
			r.me.SetPrivateChatPort(0)
			port++
			continue
		}

		if err := ipv4.NewPacketConn(conn).SetTOS(IPTOSReliability); err != nil {
			log.WithError(err).Debug("set type of service")
		}

		bound := conn.LocalAddr().(*net.UDPAddr).Port
		ctx, cancel := context.WithCancel(context.Background())
		r.conn = conn
		r.cancel = cancel
		r.me.SetPrivateChatPort(bound)

		r.wg.Add(1)
		go r.listenLoop(ctx, conn)

		log.WithField("port", bound).Debug("udp receiver connected")
		return true
	}

	msg := fmt.Sprintf("Failed to initialize udp network:\nNo available listening port between %d and %d.\n\nYou will not be able to receive private messages!",
		r.basePort, port-1)
	log.Error(msg)
	if r.errors != nil {
		r.errors.ShowError(msg)
	}
	return false
}

// Stop closes the socket and waits for the receive loop
func (r *UDPReceiver) Stop() {
	r.mu.Lock()
	if r.conn == nil {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.conn.Close()
	r.conn = nil
	r.mu.Unlock()

	r.wg.Wait()
	log.Debug("udp receiver disconnected")
}

// IsConnected returns true between Start and Stop
func (r *UDPReceiver) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

func (r *UDPReceiver) currentListener() ReceiverListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener
}

func (r *UDPReceiver) listenLoop(ctx context.Context, conn net.PacketConn) {
	defer r.wg.Done()
	readLoop(ctx, conn, r.currentListener, "udp")
}
