package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var (
	ErrSSHConnection     = errors.New("ssh: connection failed")
	ErrSSHAuthentication = errors.New("ssh: authentication failed")
	ErrSSHCommandFailed  = errors.New("ssh: command execution failed")
)

type SSHConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	PrivateKey string
	Timeout    time.Duration
	MaxRetries int
}

// CommandError carries the exit status and output of a remote command that
// ran to completion but failed.
type CommandError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("exit status %d", e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return ErrSSHCommandFailed
}

type SSHClient struct {
	config SSHConfig
}

func NewSSHClient(cfg SSHConfig) *SSHClient {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &SSHClient{config: cfg}
}

func (c *SSHClient) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if c.config.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(c.config.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid private key", ErrSSHAuthentication)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if c.config.Password != "" {
		methods = append(methods, ssh.Password(c.config.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no credentials provided", ErrSSHAuthentication)
	}

	return methods, nil
}

// Connect dials the host, retrying with linear backoff until MaxRetries
// attempts have failed or ctx is done.
func (c *SSHClient) Connect(ctx context.Context) (*ssh.Client, error) {
	methods, err := c.authMethods()
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.config.Timeout,
	}

	addr := net.JoinHostPort(c.config.Host, fmt.Sprint(c.config.Port))
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		dialer := net.Dialer{Timeout: c.config.Timeout, KeepAlive: 30 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.SetDeadline(time.Now().Add(c.config.Timeout))
			cc, chans, reqs, hsErr := ssh.NewClientConn(conn, addr, sshConfig)
			if hsErr == nil {
				_ = conn.SetDeadline(time.Time{})
				return ssh.NewClient(cc, chans, reqs), nil
			}
			conn.Close()
			err = hsErr
		}
		lastErr = err

		if attempt < c.config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrSSHConnection, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("%w: %v (after %d attempts)", ErrSSHConnection, lastErr, c.config.MaxRetries)
}

// Execute runs cmd in a new session on client. A command that exits non-zero
// returns its stdout together with a *CommandError.
func (c *SSHClient) Execute(ctx context.Context, client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: failed to create session", ErrSSHConnection)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return stdout.String(), ctx.Err()
	case err := <-done:
		if err == nil {
			return stdout.String(), nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &CommandError{
				ExitCode: exitErr.ExitStatus(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return stdout.String(), fmt.Errorf("%w: %v", ErrSSHCommandFailed, err)
	}
}

// RunCommand opens a connection for a single command.
func (c *SSHClient) RunCommand(ctx context.Context, cmd string) (string, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	return c.Execute(ctx, client, cmd)
}

// FetchNewest copies the most recently modified file in remoteDir whose
// extension is in exts into localBase+ext over SFTP and returns that path.
func (c *SSHClient) FetchNewest(ctx context.Context, remoteDir string, exts []string, localBase string) (string, int64, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return "", 0, err
	}
	defer client.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer sftpClient.Close()

	dir := toSFTPPath(remoteDir)
	entries, err := sftpClient.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to list remote dir: %w", err)
	}

	var newest os.FileInfo
	for _, e := range entries {
		if !e.Mode().IsRegular() || !hasExt(e.Name(), exts) {
			continue
		}
		if newest == nil || e.ModTime().After(newest.ModTime()) {
			newest = e
		}
	}
	if newest == nil {
		return "", 0, fmt.Errorf("no installer found in %s", remoteDir)
	}

	src, err := sftpClient.Open(path.Join(dir, newest.Name()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open remote file: %w", err)
	}
	defer src.Close()

	localPath := localBase + strings.ToLower(path.Ext(newest.Name()))
	dst, err := os.Create(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create local file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(localPath)
		return "", written, fmt.Errorf("failed to download file: %w", err)
	}
	return localPath, written, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// toSFTPPath converts a Windows path such as C:\Users\x to the /C:/Users/x
// form that Win32-OpenSSH's sftp subsystem expects.
func toSFTPPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 2 && p[1] == ':' {
		return "/" + p
	}
	return p
}
