// Package network keeps the chat connected to the LAN: it picks the
// network interface, runs the multicast and private UDP transports on it,
// and tells the rest of the application when the network comes and goes.
package network

import "github.com/sirupsen/logrus"

var log = logrus.WithField("component", "network")

const (
	// ChatGroup is the multicast group every client joins
	ChatGroup = "224.168.5.200"
	// ChatPort is the multicast port
	ChatPort = 40556
	// PrivateChatPort is the first port tried for private messages
	PrivateChatPort = 40656
	// PortAttempts is how many ports are tried for private messages
	PortAttempts = 50
	// PacketSize is the largest message read from the network
	PacketSize = 512
	// TTL of multicast packets
	TTL = 64
	// IPTOSReliability is the type of service set on outgoing packets
	IPTOSReliability = 0x04
)

// ConnectionListener is told when the network goes up and down. Silent
// changes are interface switches the user need not be bothered with.
type ConnectionListener interface {
	BeforeNetworkCameUp()
	NetworkCameUp(silent bool)
	NetworkWentDown(silent bool)
}

// ReceiverListener gets every message read from the network
type ReceiverListener interface {
	MessageArrived(message, ipAddress string)
}

// ErrorHandler shows errors the user must know about
type ErrorHandler interface {
	ShowError(message string)
}

// ReceiverFunc adapts a function to ReceiverListener
type ReceiverFunc func(message, ipAddress string)

// MessageArrived implements ReceiverListener
func (f ReceiverFunc) MessageArrived(message, ipAddress string) { f(message, ipAddress) }
