// Package netutil inspects the local network interfaces and decides which
// of them can carry the chat.
package netutil

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "netutil")

// Interface is a snapshot of a network interface
type Interface struct {
	Name         string
	Index        int
	Flags        net.Flags
	HardwareAddr net.HardwareAddr
	IPs          []net.IP
}

// Lister enumerates the network interfaces of the host
type Lister interface {
	Interfaces() ([]Interface, error)
}

// SystemLister reads the interfaces from the operating system
type SystemLister struct{}

// Interfaces implements Lister
func (SystemLister) Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		result = append(result, fromNet(iface))
	}
	return result, nil
}

func fromNet(iface net.Interface) Interface {
	out := Interface{
		Name:         iface.Name,
		Index:        iface.Index,
		Flags:        iface.Flags,
		HardwareAddr: iface.HardwareAddr,
	}

	addrs, err := iface.Addrs()
	if err != nil {
		log.WithError(err).Debugf("read addresses of %s", iface.Name)
		return out
	}
	for _, addr := range addrs {
		switch v := addr.(type) {
		case *net.IPNet:
			out.IPs = append(out.IPs, v.IP)
		case *net.IPAddr:
			out.IPs = append(out.IPs, v.IP)
		}
	}
	return out
}

var virtualPrefixes = []string{"vmnet", "vboxnet", "docker", "veth", "virbr", "br-", "utun"}

// IsVirtual reports whether the interface is an alias or belongs to a
// hypervisor or container bridge.
func (i *Interface) IsVirtual() bool {
	if strings.Contains(i.Name, ":") {
		return true
	}
	name := strings.ToLower(i.Name)
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// IPv4 returns the first IPv4 address, or nil
func (i *Interface) IPv4() net.IP {
	if i == nil {
		return nil
	}
	for _, ip := range i.IPs {
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

// IPv4Addresses returns every IPv4 address separated by spaces
func (i *Interface) IPv4Addresses() string {
	if i == nil {
		return ""
	}
	var parts []string
	for _, ip := range i.IPs {
		if v4 := ip.To4(); v4 != nil {
			parts = append(parts, v4.String())
		}
	}
	return strings.Join(parts, " ")
}

// NetInterface resolves the snapshot to the live interface
func (i *Interface) NetInterface() (*net.Interface, error) {
	iface, err := net.InterfaceByName(i.Name)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", i.Name, err)
	}
	return iface, nil
}

// Utils answers interface questions using a Lister
type Utils struct {
	lister Lister
}

// New creates Utils for the given lister. A nil lister uses the system.
func New(lister Lister) *Utils {
	if lister == nil {
		lister = SystemLister{}
	}
	return &Utils{lister: lister}
}

// IsUsable reports whether the interface can be used for multicast chat
func (u *Utils) IsUsable(iface *Interface) bool {
	if iface == nil {
		return false
	}
	f := iface.Flags
	return f&net.FlagUp != 0 &&
		f&net.FlagLoopback == 0 &&
		f&net.FlagPointToPoint == 0 &&
		f&net.FlagMulticast != 0 &&
		!iface.IsVirtual() &&
		u.HasIPv4(iface)
}

// HasIPv4 reports whether the interface has at least one IPv4 address
func (u *Utils) HasIPv4(iface *Interface) bool {
	return iface.IPv4() != nil
}

// SameInterface compares two interfaces by name
func (u *Utils) SameInterface(a, b *Interface) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Name == b.Name
}

// Interfaces enumerates all interfaces. Failures are logged and give
// an empty list.
func (u *Utils) Interfaces() []Interface {
	ifaces, err := u.lister.Interfaces()
	if err != nil {
		log.WithError(err).Warn("enumerate network interfaces")
		return nil
	}
	return ifaces
}

// FindFirstUsable returns the first usable interface, or nil
func (u *Utils) FindFirstUsable() *Interface {
	for _, iface := range u.Interfaces() {
		iface := iface
		if u.IsUsable(&iface) {
			return &iface
		}
	}
	return nil
}

// UsableInterfaces returns every usable interface
func (u *Utils) UsableInterfaces() []Interface {
	var usable []Interface
	for _, iface := range u.Interfaces() {
		iface := iface
		if u.IsUsable(&iface) {
			usable = append(usable, iface)
		}
	}
	return usable
}

// ByName looks up an interface by name, or nil
func (u *Utils) ByName(name string) *Interface {
	if name == "" {
		return nil
	}
	for _, iface := range u.Interfaces() {
		if iface.Name == name {
			iface := iface
			return &iface
		}
	}
	return nil
}

// ByIP returns the interface holding the ip address, or nil
func (u *Utils) ByIP(ip net.IP) *Interface {
	if ip == nil {
		return nil
	}
	for _, iface := range u.Interfaces() {
		for _, addr := range iface.IPs {
			if addr.Equal(ip) {
				iface := iface
				return &iface
			}
		}
	}
	return nil
}

// Updated returns a fresh snapshot of orig, or nil if it disappeared
func (u *Utils) Updated(orig *Interface) *Interface {
	if orig == nil {
		return nil
	}
	return u.ByName(orig.Name)
}

// Describe renders the interface details on several lines
func (u *Utils) Describe(iface *Interface) string {
	if iface == nil {
		return "Invalid network interface."
	}
	f := iface.Flags
	var b strings.Builder
	fmt.Fprintf(&b, "Device: %s\n", iface.Name)
	fmt.Fprintf(&b, "Is loopback: %t\n", f&net.FlagLoopback != 0)
	fmt.Fprintf(&b, "Is up: %t\n", f&net.FlagUp != 0)
	fmt.Fprintf(&b, "Is p2p: %t\n", f&net.FlagPointToPoint != 0)
	fmt.Fprintf(&b, "Is virtual: %t\n", iface.IsVirtual())
	fmt.Fprintf(&b, "Supports multicast: %t\n", f&net.FlagMulticast != 0)
	fmt.Fprintf(&b, "MAC address: %s\n", MACAddress(iface.HardwareAddr))
	fmt.Fprintf(&b, "IP addresses: %s", iface.IPv4Addresses())
	return b.String()
}

// MACAddress formats a hardware address as upper case hex pairs joined by '-'
func MACAddress(addr net.HardwareAddr) string {
	if len(addr) == 0 {
		return ""
	}
	parts := make([]string, len(addr))
	for i, b := range addr {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, "-")
}

// HostName returns the local host name, or "" if unknown
func HostName() string {
	name, err := os.Hostname()
	if err != nil {
		log.WithError(err).Warn("read host name")
		return ""
	}
	return name
}
