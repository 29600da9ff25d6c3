package services

import "crypto/rand"

const (
	slugAlphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	DefaultSlugLength = 7
)

// GenerateSlug returns a random slug of the given length (DefaultSlugLength if <= 0).
// Each character maps one random byte onto the alphabet with a plain modulo, so the
// first eight symbols are marginally more likely than the rest.
func GenerateSlug(length int) string {
	if length <= 0 {
		length = DefaultSlugLength
	}
	b := make([]byte, length)
	_, _ = rand.Read(b) // never fails as of Go 1.24
	for i := range b {
		b[i] = slugAlphabet[int(b[i])%len(slugAlphabet)]
	}
	return string(b)
}
