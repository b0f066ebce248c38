package gradio

import (
	"context"
	"testing"
	"time"

	"gradio/internal/fakeapp"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func startApp(t *testing.T, opts fakeapp.Options) *fakeapp.Server {
	t.Helper()
	s := fakeapp.Start(opts)
	t.Cleanup(s.Close)
	return s
}

// fastOptions points the registry at s and shortens wake-up polling.
func fastOptions(s *fakeapp.Server) Options {
	return Options{
		RegistryURL:     s.URL(),
		WakeInterval:    time.Millisecond,
		WakeMaxAttempts: 3,
	}
}

func newTestClient(t *testing.T, s *fakeapp.Server, opts Options) *Client {
	t.Helper()
	c, err := NewClient(testCtx(t), s.URL(), opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}
