package gradio

import "github.com/google/uuid"

const (
	sessionHashLen      = 10
	sessionHashAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewSessionHash returns a random 10-character alphanumeric identifier.
func NewSessionHash() string {
	u := uuid.New()
	// Bytes 6 and 8 carry version and variant bits; skip them.
	src := make([]byte, 0, len(u))
	for i, b := range u {
		if i == 6 || i == 8 {
			continue
		}
		src = append(src, b)
	}
	out := make([]byte, sessionHashLen)
	for i := range out {
		out[i] = sessionHashAlphabet[int(src[i])%len(sessionHashAlphabet)]
	}
	return string(out)
}
