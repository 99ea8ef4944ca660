package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

var (
	ErrInvalidKey        = errors.New("crypto: invalid encryption key")
	ErrEncryptionFailed  = errors.New("crypto: encryption failed")
	ErrDecryptionFailed  = errors.New("crypto: decryption failed")
	ErrInvalidCipherText = errors.New("crypto: invalid cipher text")
)

// SecretPrefix marks a config value as AES-GCM sealed.
const SecretPrefix = "enc:"

func newGCM(key string) (cipher.AEAD, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plainText with AES-256-GCM under a SHA-256 derived key.
func Encrypt(plainText, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			return "", err
		}
		return "", ErrEncryptionFailed
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryptionFailed
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func Decrypt(cipherText, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			return "", err
		}
		return "", ErrDecryptionFailed
	}

	data, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil || len(data) < gcm.NonceSize() {
		return "", ErrInvalidCipherText
	}

	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

// SealSecret returns value in its "enc:" config form.
func SealSecret(value, key string) (string, error) {
	sealed, err := Encrypt(value, key)
	if err != nil {
		return "", err
	}
	return SecretPrefix + sealed, nil
}

// OpenSecret decrypts an "enc:" value and passes anything else through.
func OpenSecret(value, key string) (string, error) {
	if !strings.HasPrefix(value, SecretPrefix) {
		return value, nil
	}
	return Decrypt(strings.TrimPrefix(value, SecretPrefix), key)
}
