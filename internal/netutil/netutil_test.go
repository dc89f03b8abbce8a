package netutil

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	ifaces []Interface
	err    error
}

func (f fakeLister) Interfaces() ([]Interface, error) {
	return f.ifaces, f.err
}

const usableFlags = net.FlagUp | net.FlagBroadcast | net.FlagMulticast

func iface(name string, flags net.Flags, ips ...string) Interface {
	out := Interface{Name: name, Flags: flags}
	for _, ip := range ips {
		out.IPs = append(out.IPs, net.ParseIP(ip))
	}
	return out
}

func TestIsUsable(t *testing.T) {
	u := New(fakeLister{})

	cases := []struct {
		name  string
		iface *Interface
		want  bool
	}{
		{"nil", nil, false},
		{"ethernet", ptr(iface("eth0", usableFlags, "192.168.1.10")), true},
		{"down", ptr(iface("eth0", net.FlagMulticast, "192.168.1.10")), false},
		{"loopback", ptr(iface("lo", usableFlags|net.FlagLoopback, "127.0.0.1")), false},
		{"p2p", ptr(iface("tun0", usableFlags|net.FlagPointToPoint, "10.8.0.2")), false},
		{"no multicast", ptr(iface("eth1", net.FlagUp, "10.0.0.2")), false},
		{"ipv6 only", ptr(iface("eth2", usableFlags, "fe80::1")), false},
		{"vmware", ptr(iface("vmnet8", usableFlags, "172.16.0.1")), false},
		{"docker", ptr(iface("docker0", usableFlags, "172.17.0.1")), false},
		{"alias", ptr(iface("eth0:1", usableFlags, "192.168.1.11")), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, u.IsUsable(tc.iface))
		})
	}
}

func TestLookups(t *testing.T) {
	u := New(fakeLister{ifaces: []Interface{
		iface("lo", usableFlags|net.FlagLoopback, "127.0.0.1"),
		iface("eth0", usableFlags, "fe80::1", "192.168.1.10"),
		iface("wlan0", usableFlags, "10.0.0.7"),
	}})

	first := u.FindFirstUsable()
	require.NotNil(t, first)
	assert.Equal(t, "eth0", first.Name)
	assert.Equal(t, "192.168.1.10", first.IPv4().String())

	assert.Len(t, u.UsableInterfaces(), 2)

	byIP := u.ByIP(net.ParseIP("10.0.0.7"))
	require.NotNil(t, byIP)
	assert.Equal(t, "wlan0", byIP.Name)
	assert.Nil(t, u.ByIP(net.ParseIP("10.9.9.9")))

	assert.Nil(t, u.ByName(""))
	assert.Nil(t, u.ByName("eth9"))
	assert.True(t, u.SameInterface(u.ByName("eth0"), first))
	assert.False(t, u.SameInterface(first, nil))

	assert.Nil(t, u.Updated(&Interface{Name: "gone0"}))
	assert.Equal(t, "wlan0", u.Updated(&Interface{Name: "wlan0"}).Name)
}

func TestEnumerationFailureMeansNoInterface(t *testing.T) {
	u := New(fakeLister{err: errors.New("socket closed")})

	assert.Nil(t, u.FindFirstUsable())
	assert.Empty(t, u.UsableInterfaces())
	assert.Nil(t, u.ByName("eth0"))
}

func TestDescribe(t *testing.T) {
	u := New(fakeLister{})
	eth := iface("eth0", usableFlags, "192.168.1.10")
	eth.HardwareAddr = net.HardwareAddr{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e}

	desc := u.Describe(&eth)
	assert.Contains(t, desc, "Device: eth0")
	assert.Contains(t, desc, "MAC address: 00-1A-2B-3C-4D-5E")
	assert.Contains(t, desc, "IP addresses: 192.168.1.10")
	assert.Equal(t, "Invalid network interface.", u.Describe(nil))
}

func ptr(i Interface) *Interface { return &i }
