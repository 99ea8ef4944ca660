package main

import (
	"fmt"
	"os"

	"github.com/easywinget/backend/internal/config"
	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/infrastructure/remote"
	"github.com/easywinget/backend/internal/infrastructure/winget"
	"github.com/easywinget/backend/pkg/utils/crypto"
	"github.com/easywinget/backend/pkg/utils/sshkeygen"
)

func newBackend(cfg *config.Config, log *logger.Logger) (ports.PackageManager, error) {
	b := cfg.Backend
	switch b.Mode {
	case "ssh":
		password, err := crypto.OpenSecret(b.SSH.Password, cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt ssh password: %w", err)
		}

		keyPath := b.SSH.PrivateKeyPath
		if keyPath == "" && password == "" {
			keyPath, _, err = sshkeygen.DefaultPaths()
			if err != nil {
				return nil, err
			}
		}
		var privateKey string
		if keyPath != "" {
			raw, err := os.ReadFile(keyPath)
			if err != nil {
				return nil, fmt.Errorf("read ssh private key: %w", err)
			}
			privateKey = string(raw)
		}

		client := remote.NewSSHClient(remote.SSHConfig{
			Host:       b.SSH.Host,
			Port:       b.SSH.Port,
			User:       b.SSH.User,
			Password:   password,
			PrivateKey: privateKey,
			Timeout:    b.SSH.Timeout,
			MaxRetries: b.SSH.MaxRetries,
		})
		log.Infow("backend_ssh", "host", b.SSH.Host, "user", b.SSH.User)
		return winget.NewSSHBackend(winget.SSHBackendConfig{
			Host:               client,
			RemoteDownloadsDir: b.SSH.RemoteDownloadsDir,
			LocalDownloadsDir:  b.DownloadsDir,
			Logger:             log,
		}), nil

	case "http":
		token, err := crypto.OpenSecret(b.HTTP.Token, cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt backend token: %w", err)
		}
		log.Infow("backend_http", "base_url", b.HTTP.BaseURL)
		return winget.NewHTTPBackend(winget.HTTPBackendConfig{
			BaseURL: b.HTTP.BaseURL,
			Token:   token,
			Timeout: b.HTTP.Timeout,
		}), nil

	default:
		log.Infow("backend_local", "winget_path", b.WingetPath, "downloads_dir", b.DownloadsDir)
		return winget.NewLocalBackend(winget.LocalConfig{
			WingetPath:   b.WingetPath,
			DownloadsDir: b.DownloadsDir,
			Timeout:      b.CommandTimeout,
			Logger:       log,
		}), nil
	}
}
