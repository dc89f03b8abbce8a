package network

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanchat/lanchat/internal/netutil"
)

const (
	probeGroup    = "224.168.5.250"
	probePort     = 50050
	probeAttempts = 40
	probeWait     = 50 * time.Millisecond
)

// InterfaceProber finds the interface the operating system prefers for
// multicast.
type InterfaceProber interface {
	Interface() *netutil.Interface
}

// OSNetworkInfo detects the operating system's multicast interface by
// sending a probe to a separate group with no interface set, and looking
// up which local address the echo came from.
type OSNetworkInfo struct {
	utils *netutil.Utils
	code  int
}

// NewOSNetworkInfo creates a prober. code identifies this client in the probe.
func NewOSNetworkInfo(utils *netutil.Utils, code int) *OSNetworkInfo {
	if utils == nil {
		utils = netutil.New(nil)
	}
	return &OSNetworkInfo{utils: utils, code: code}
}

type probeListener struct {
	expected string

	mu sync.Mutex
	ip string
}

func (p *probeListener) MessageArrived(message, ipAddress string) {
	if message != p.expected {
		return
	}
	p.mu.Lock()
	if p.ip == "" {
		p.ip = ipAddress
	}
	p.mu.Unlock()
}

func (p *probeListener) address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ip
}

// Interface returns the detected interface, or nil if the probe never came back
func (o *OSNetworkInfo) Interface() *netutil.Interface {
	log.Debug("detect network interface used by operating system")

	message := fmt.Sprintf("getOperatingSystemNetworkInterface(%d-%s)", o.code, uuid.NewString())
	listener := &probeListener{expected: message}

	receiver := NewMessageReceiver(probeGroup, probePort)
	receiver.RegisterListener(listener)
	sender := NewMessageSender(probeGroup, probePort)

	receiver.Start(nil)
	sender.Start(nil)
	sender.Send(message)

	for i := 0; i < probeAttempts && listener.address() == ""; i++ {
		time.Sleep(probeWait)
	}

	sender.Stop()
	receiver.Stop()

	ip := listener.address()
	if ip == "" {
		log.Debug("no answer to interface probe")
		return nil
	}

	iface := o.utils.ByIP(net.ParseIP(ip))
	if iface == nil {
		log.WithField("ip", ip).Warn("no interface holds the probe address")
		return nil
	}
	log.WithField("ip", ip).Debugf("detected network interface used by operating system: %s", iface.Name)
	return iface
}
