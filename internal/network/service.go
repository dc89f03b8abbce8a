package network

import (
	"net"

	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/netutil"
)

// Options configure a Service
type Options struct {
	// Me is the local user. Its private chat port is updated by the service.
	Me *model.User
	// PrivateChat enables the UDP transports
	PrivateChat bool
	// Interface returns the name of the interface chosen by the user, or ""
	Interface func() string
	// Utils enumerates the interfaces. Nil uses the system.
	Utils *netutil.Utils
	// Prober finds the operating system's interface. Nil sends a
	// multicast probe.
	Prober InterfaceProber
	// Errors shows transport failures to the user
	Errors ErrorHandler
}

// Service owns the chat transports and starts and stops them as the
// ConnectionWorker reports the network going up and down.
type Service struct {
	worker      *ConnectionWorker
	sender      *MessageSender
	receiver    *MessageReceiver
	udpSender   *UDPSender
	udpReceiver *UDPReceiver
	privateChat bool
}

// NewService creates the transports and registers with a new worker
func NewService(opts Options) *Service {
	log.Debug("initialize network")

	utils := opts.Utils
	if utils == nil {
		utils = netutil.New(nil)
	}
	prober := opts.Prober
	if prober == nil {
		code := 0
		if opts.Me != nil {
			code = opts.Me.Code()
		}
		prober = NewOSNetworkInfo(utils, code)
	}

	s := &Service{
		worker:      NewConnectionWorker(utils, opts.Interface, prober),
		sender:      NewMessageSender(ChatGroup, ChatPort),
		receiver:    NewMessageReceiver(ChatGroup, ChatPort),
		privateChat: opts.PrivateChat,
	}

	if s.privateChat {
		s.udpSender = NewUDPSender(opts.Errors)
		s.udpReceiver = NewUDPReceiver(opts.Me, opts.Errors)
	} else {
		log.Debug("private chat is disabled")
	}

	s.worker.RegisterListener(s)
	return s
}

// Connect starts the worker, which brings the transports up when it
// finds a usable interface.
func (s *Service) Connect() {
	s.worker.Start()
}

// Disconnect stops the worker and with it every transport
func (s *Service) Disconnect() {
	s.worker.Stop()
}

// Worker returns the connection worker
func (s *Service) Worker() *ConnectionWorker {
	return s.worker
}

// IsWorkerAlive reports whether the connection worker is running
func (s *Service) IsWorkerAlive() bool {
	return s.worker.IsAlive()
}

// IsNetworkUp reports whether the network is up
func (s *Service) IsNetworkUp() bool {
	return s.worker.IsNetworkUp()
}

// CheckNetwork asks the worker to check the network now
func (s *Service) CheckNetwork() {
	s.worker.CheckNetwork()
}

// RegisterConnectionListener adds a listener for network changes
func (s *Service) RegisterConnectionListener(l ConnectionListener) {
	s.worker.RegisterListener(l)
}

// RegisterMulticastListener sets who gets messages from the chat group
func (s *Service) RegisterMulticastListener(l ReceiverListener) {
	s.receiver.RegisterListener(l)
}

// RegisterUDPListener sets who gets private messages. Ignored when private
// chat is disabled.
func (s *Service) RegisterUDPListener(l ReceiverListener) {
	if s.privateChat {
		s.udpReceiver.RegisterListener(l)
	}
}

// SendMulticastMsg sends a message to everyone
func (s *Service) SendMulticastMsg(message string) bool {
	return s.sender.Send(message)
}

// SendUDPMsg sends a private message to ip:port. Always false when
// private chat is disabled.
func (s *Service) SendUDPMsg(message, ip string, port int) bool {
	if !s.privateChat {
		return false
	}
	return s.udpSender.Send(message, ip, port)
}

// BeforeNetworkCameUp implements ConnectionListener
func (s *Service) BeforeNetworkCameUp() {}

// NetworkCameUp starts the transports on the current interface
func (s *Service) NetworkCameUp(silent bool) {
	if s.privateChat {
		s.udpSender.Start()
		s.udpReceiver.Start()
	}

	var iface *net.Interface
	if current := s.worker.CurrentNetworkInterface(); current != nil {
		ni, err := current.NetInterface()
		if err != nil {
			log.WithError(err).Warnf("look up interface %s", current.Name)
		} else {
			iface = ni
		}
	}
	s.sender.Start(iface)
	s.receiver.Start(iface)
}

// NetworkWentDown stops every transport
func (s *Service) NetworkWentDown(silent bool) {
	if s.privateChat {
		s.udpSender.Stop()
		s.udpReceiver.Stop()
	}
	s.sender.Stop()
	s.receiver.Stop()
}
