package osdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringDropsProtocolDelimiters(t *testing.T) {
	info := SystemInfo{Name: "Linux", Version: "6.1.0-13 (debian) [x]"}
	assert.Equal(t, "Linux 6.1.0-13 debian x", info.String())
}

func TestLong(t *testing.T) {
	info := SystemInfo{Name: "Linux", Version: "6.1", Distro: "Debian GNU/Linux 12 (bookworm)", Arch: "amd64"}
	assert.Equal(t, "Linux 6.1, Debian GNULinux 12 bookworm (amd64)", info.Long())
}

func TestDetect(t *testing.T) {
	info := Detect()
	assert.NotEmpty(t, info.Name)
	assert.NotEmpty(t, info.Arch)
	assert.Equal(t, info.String(), Describe())
}
