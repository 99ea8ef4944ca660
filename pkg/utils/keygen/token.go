package keygen

import (
	"crypto/rand"
	"math/big"
)

const tokenCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateToken returns a random alphanumeric string of the given length,
// used for admin and backend API tokens.
func GenerateToken(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(tokenCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tokenCharset[n.Int64()]
	}
	return string(out), nil
}
