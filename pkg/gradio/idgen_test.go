package gradio

import (
	"regexp"
	"testing"
)

func TestNewSessionHash(t *testing.T) {
	re := regexp.MustCompile(`^[a-zA-Z0-9]{10}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		h := NewSessionHash()
		if !re.MatchString(h) {
			t.Fatalf("bad hash %q", h)
		}
		if seen[h] {
			t.Fatalf("duplicate hash %q", h)
		}
		seen[h] = true
	}
}
