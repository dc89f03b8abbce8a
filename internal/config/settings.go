package config

import (
	"sync"

	"github.com/lanchat/lanchat/internal/model"
)

// Setting names a value that listeners can be told about
type Setting int

const (
	SettingOwnColor Setting = iota
	SettingSysColor
	SettingNetworkInterface
	SettingDownloadDir
)

// Settings holds the values the running session reads, starting from a
// Config. Safe for concurrent use.
type Settings struct {
	me *model.User

	mu               sync.RWMutex
	ownColor         int
	sysColor         int
	networkInterface string
	noPrivateChat    bool
	downloadDir      string
	awayMessage      string
	listeners        []func(Setting)
}

// NewSettings creates session settings for me from c
func NewSettings(me *model.User, c *Config) *Settings {
	if c == nil {
		c = Default()
	}
	return &Settings{
		me:               me,
		ownColor:         c.OwnColor,
		sysColor:         c.SysColor,
		networkInterface: c.NetworkInterface,
		noPrivateChat:    c.NoPrivateChat,
		downloadDir:      c.DownloadDir,
		awayMessage:      c.AwayMessage,
	}
}

// Me returns the local user
func (s *Settings) Me() *model.User {
	return s.me
}

// OnChange registers fn to be called after a setting changes
func (s *Settings) OnChange(fn func(Setting)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Settings) changed(setting Setting) {
	s.mu.RLock()
	listeners := make([]func(Setting), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(setting)
	}
}

func (s *Settings) OwnColor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownColor
}

func (s *Settings) SetOwnColor(color int) {
	s.mu.Lock()
	same := s.ownColor == color
	s.ownColor = color
	s.mu.Unlock()
	if !same {
		s.changed(SettingOwnColor)
	}
}

func (s *Settings) SysColor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sysColor
}

func (s *Settings) SetSysColor(color int) {
	s.mu.Lock()
	same := s.sysColor == color
	s.sysColor = color
	s.mu.Unlock()
	if !same {
		s.changed(SettingSysColor)
	}
}

// NetworkInterface returns the preferred interface name, or ""
func (s *Settings) NetworkInterface() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.networkInterface
}

func (s *Settings) SetNetworkInterface(name string) {
	s.mu.Lock()
	same := s.networkInterface == name
	s.networkInterface = name
	s.mu.Unlock()
	if !same {
		s.changed(SettingNetworkInterface)
	}
}

// IsNoPrivateChat reports whether private chat is disabled. It is read
// once when the network is created.
func (s *Settings) IsNoPrivateChat() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.noPrivateChat
}

func (s *Settings) DownloadDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.downloadDir
}

func (s *Settings) SetDownloadDir(dir string) {
	s.mu.Lock()
	same := s.downloadDir == dir
	s.downloadDir = dir
	s.mu.Unlock()
	if !same {
		s.changed(SettingDownloadDir)
	}
}

// AwayMessage is the default away message
func (s *Settings) AwayMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.awayMessage
}

// Apply copies the values of c that can change while running
func (s *Settings) Apply(c *Config) {
	s.SetOwnColor(c.OwnColor)
	s.SetSysColor(c.SysColor)
	s.SetNetworkInterface(c.NetworkInterface)
	if c.DownloadDir != "" {
		s.SetDownloadDir(c.DownloadDir)
	}
	s.mu.Lock()
	s.awayMessage = c.AwayMessage
	s.mu.Unlock()
}
