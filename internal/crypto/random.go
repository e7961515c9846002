package crypto

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
)

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()-_=+[]{}|;:,.<>?")

// GenerateString returns a random string of length n.
func GenerateString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("length must be positive")
	}
	b := make([]rune, n)
	buf := make([]byte, len(b))
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(buf[i])%len(letters)]
	}
	return string(b), nil
}

// Mask keeps the first four characters of a credential and hides the rest.
func Mask(value string) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= 4 {
		return value
	}
	return string(runes[:4]) + strings.Repeat("*", len(runes)-4)
}
