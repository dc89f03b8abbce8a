package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanchat/lanchat/internal/model"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ConfigFileName)

	c := Default()
	c.Nick = "Alice"
	c.NetworkInterface = "eth1"
	c.NoPrivateChat = true
	require.NoError(t, c.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvNick, "Bob")
	t.Setenv(EnvInterface, "wlan0")
	t.Setenv(EnvNoPrivateChat, "true")
	t.Setenv(EnvLogLevel, "debug")

	c := Default()
	c.ApplyEnv()
	assert.Equal(t, "Bob", c.Nick)
	assert.Equal(t, "wlan0", c.NetworkInterface)
	assert.True(t, c.NoPrivateChat)
	assert.Equal(t, "debug", c.LogLevel)

	t.Setenv(EnvNoPrivateChat, "maybe")
	c = Default()
	c.ApplyEnv()
	assert.False(t, c.NoPrivateChat)
}

func TestSettingsNotifiesChanges(t *testing.T) {
	s := NewSettings(model.NewMe("Alice", 1), Default())
	var changes []Setting
	s.OnChange(func(setting Setting) { changes = append(changes, setting) })

	s.SetNetworkInterface("eth0")
	s.SetNetworkInterface("eth0")
	s.SetOwnColor(42)

	assert.Equal(t, []Setting{SettingNetworkInterface, SettingOwnColor}, changes)
	assert.Equal(t, "eth0", s.NetworkInterface())
	assert.Equal(t, 42, s.OwnColor())
	assert.Equal(t, "Alice", s.Me().Nick())
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, Default().SaveFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { got <- c }) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	c := Default()
	c.NetworkInterface = "eth9"
	require.NoError(t, c.SaveFile(path))

	select {
	case reloaded := <-got:
		assert.Equal(t, "eth9", reloaded.NetworkInterface)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	require.NoError(t, ConfigureLogging("debug", nil))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.Error(t, ConfigureLogging("loud", nil))
}
