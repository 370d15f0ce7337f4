package utils

import (
	"crypto/rand"
	"regexp"
)

const (
	// ShortCodeLength is the size of generated codes.
	ShortCodeLength = 8
	// 64 symbols, so a random byte masked to six bits selects one without bias.
	shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// GenerateShortCode returns ShortCodeLength random symbols drawn from a URL-safe alphabet.
func GenerateShortCode() (string, error) {
	buf := make([]byte, ShortCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = shortCodeAlphabet[b&63]
	}
	return string(buf), nil
}

// ValidSlug reports whether s can be used as a custom short code.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
