package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSSHClient_Defaults(t *testing.T) {
	c := NewSSHClient(SSHConfig{Host: "h"})
	assert.Equal(t, 22, c.config.Port)
	assert.Equal(t, 30*time.Second, c.config.Timeout)
	assert.Equal(t, 3, c.config.MaxRetries)
}

func TestConnect_NoCredentials(t *testing.T) {
	c := NewSSHClient(SSHConfig{Host: "127.0.0.1", User: "u"})
	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrSSHAuthentication)
}

func TestConnect_InvalidKey(t *testing.T) {
	c := NewSSHClient(SSHConfig{Host: "127.0.0.1", User: "u", PrivateKey: "garbage"})
	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrSSHAuthentication)
}

func TestConnect_Unreachable(t *testing.T) {
	c := NewSSHClient(SSHConfig{
		Host:       "127.0.0.1",
		Port:       1,
		User:       "u",
		Password:   "p",
		Timeout:    time.Second,
		MaxRetries: 1,
	})
	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrSSHConnection)
}

func TestCommandError_UnwrapsToCommandFailed(t *testing.T) {
	var err error = &CommandError{ExitCode: 2}
	assert.True(t, errors.Is(err, ErrSSHCommandFailed))
	assert.Equal(t, "exit status 2", err.Error())
}

func TestToSFTPPath(t *testing.T) {
	assert.Equal(t, "/C:/Users/me/Downloads/App.exe", toSFTPPath(`C:\Users\me\Downloads\App.exe`))
	assert.Equal(t, "/home/me/file", toSFTPPath("/home/me/file"))
	assert.Equal(t, "Downloads/easywinget/App.Foo", toSFTPPath(`Downloads\easywinget\App.Foo`))
}

func TestHasExt(t *testing.T) {
	exts := []string{".exe", ".msi"}
	assert.True(t, hasExt("Foo_1.0_X64.EXE", exts))
	assert.True(t, hasExt("setup.msi", exts))
	assert.False(t, hasExt("manifest.yaml", exts))
}
