package sshkeygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

const keyName = "easywinget_ed25519"

// DefaultPaths is where the SSH backend looks for its key when none is
// configured.
func DefaultPaths() (privateKeyPath, publicKeyPath string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("failed to get home directory: %w", err)
	}
	priv := filepath.Join(home, ".ssh", keyName)
	return priv, priv + ".pub", nil
}

// GenerateEd25519KeyPair writes a new key pair unless the private key already
// exists. created reports whether anything was written.
func GenerateEd25519KeyPair(privateKeyPath, publicKeyPath string) (created bool, err error) {
	if _, err := os.Stat(privateKeyPath); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(privateKeyPath), 0o700); err != nil {
		return false, fmt.Errorf("failed to create ssh directory: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return false, fmt.Errorf("failed to generate key pair: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "easywinget")
	if err != nil {
		return false, fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := os.WriteFile(privateKeyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return false, fmt.Errorf("failed to write private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return false, fmt.Errorf("failed to create public key: %w", err)
	}
	if err := os.WriteFile(publicKeyPath, ssh.MarshalAuthorizedKey(sshPub), 0o644); err != nil {
		return false, fmt.Errorf("failed to write public key: %w", err)
	}

	return true, nil
}
