package e2e

import (
	"context"
	"testing"
	"time"

	"gradio/internal/fakeapp"
	"gradio/pkg/gradio"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// startDemo serves the demo app, letting mutate adjust it first.
func startDemo(t *testing.T, mutate func(*fakeapp.Options)) *fakeapp.Server {
	t.Helper()
	opts := fakeapp.Demo()
	if mutate != nil {
		mutate(&opts)
	}
	s := fakeapp.Start(opts)
	t.Cleanup(s.Close)
	return s
}

// connect builds a client for ref against s, which also serves the registry.
func connect(t *testing.T, s *fakeapp.Server, ref string, opts gradio.Options) *gradio.Client {
	t.Helper()
	opts.RegistryURL = s.URL()
	if opts.WakeInterval == 0 {
		opts.WakeInterval = time.Millisecond
	}
	c, err := gradio.NewClient(testCtx(t), ref, opts)
	if err != nil {
		t.Fatalf("new client %s: %v", ref, err)
	}
	return c
}

func decodeString(t *testing.T, o gradio.Output) string {
	t.Helper()
	var s string
	if err := o.Decode(&s); err != nil {
		t.Fatalf("decode string output: %v", err)
	}
	return s
}
