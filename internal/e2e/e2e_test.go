package e2e

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gradio/internal/fakeapp"
	"gradio/pkg/gradio"
	"gradio/pkg/types"
)

// TestE2E_PrivateSleepingSpace walks the full connection path: token, login,
// wake-up polling and a prefixed api root, then one prediction.
func TestE2E_PrivateSleepingSpace(t *testing.T) {
	s := startDemo(t, func(o *fakeapp.Options) {
		o.Token = "hf_secret"
		o.Username, o.Password = "ada", "lovelace"
		o.Stages = []types.SpaceStage{types.StageSleeping, types.StageStarting, types.StageRunning}
		o.Config.APIPrefix = "/gradio_api"
	})
	pub := gradio.NewMemoryPublisher()
	c := connect(t, s, "owner/demo", gradio.Options{
		HFToken:         "hf_secret",
		Auth:            &gradio.Credentials{Username: "ada", Password: "lovelace"},
		WakeMaxAttempts: 5,
		Events:          pub,
	})
	if got, want := c.APIRoot(), s.URL()+"/gradio_api"; got != want {
		t.Fatalf("api root: got %q want %q", got, want)
	}
	if c.SpaceID() != "owner/demo" {
		t.Fatalf("space id: %q", c.SpaceID())
	}

	outs, err := c.Predict(testCtx(t), "/predict", []gradio.Input{gradio.Value("e2e")})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(outs) != 1 || decodeString(t, outs[0]) != "Hello e2e!!" {
		t.Fatalf("unexpected outputs: %+v", outs)
	}

	want := []string{
		gradio.EventResolveDone, gradio.EventLoginDone,
		gradio.EventWakeupPoll, gradio.EventWakeupPoll, gradio.EventWakeupPoll,
		gradio.EventNegotiateDone, gradio.EventQueueJoined, gradio.EventPredictionDone,
	}
	got := pub.Names()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events:\n got  %v\n want %v", got, want)
	}
	if s.StatusPolls() != 3 {
		t.Fatalf("status polls: %d", s.StatusPolls())
	}
}

// TestE2E_StreamingGenerator reads every intermediate update of a generator route.
func TestE2E_StreamingGenerator(t *testing.T) {
	s := startDemo(t, nil)
	c := connect(t, s, s.URL(), gradio.Options{})

	p, err := c.Submit(testCtx(t), "stream", []gradio.Input{gradio.Value("abc")})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer p.Close()

	var kinds []gradio.MessageKind
	var partial []string
	for {
		m, err := p.Next(testCtx(t))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		kinds = append(kinds, m.Kind)
		if m.Kind == gradio.MessageGenerating || m.Kind == gradio.MessageCompleted {
			partial = append(partial, decodeString(t, m.Outputs[0]))
		}
	}
	wantKinds := []gradio.MessageKind{
		gradio.MessageOpen, gradio.MessageProcessStarts,
		gradio.MessageGenerating, gradio.MessageGenerating, gradio.MessageCompleted,
	}
	if fmt.Sprint(kinds) != fmt.Sprint(wantKinds) {
		t.Fatalf("kinds: got %v want %v", kinds, wantKinds)
	}
	if fmt.Sprint(partial) != "[a ab abc]" {
		t.Fatalf("partials: %v", partial)
	}
}

// TestE2E_FileRoundTrip uploads bytes, gets a file back and saves it.
func TestE2E_FileRoundTrip(t *testing.T) {
	s := startDemo(t, nil)
	c := connect(t, s, s.URL(), gradio.Options{})
	payload := []byte("some audio bytes")

	outs, err := c.Predict(testCtx(t), "/file_info", []gradio.Input{gradio.FileBytes("voice.wav", payload)})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("outputs: %d", len(outs))
	}
	var size int
	if err := outs[0].Decode(&size); err != nil || size != len(payload) {
		t.Fatalf("size: %d err=%v", size, err)
	}
	f, err := outs[1].AsFile()
	if err != nil {
		t.Fatalf("as file: %v", err)
	}
	if gradio.SuggestExtension(f) != "wav" {
		t.Fatalf("extension: %q", gradio.SuggestExtension(f))
	}
	got, err := c.Download(testCtx(t), f)
	if err != nil || string(got) != string(payload) {
		t.Fatalf("download: %q err=%v", got, err)
	}
	dst := filepath.Join(t.TempDir(), "nested", "copy.wav")
	if _, err := c.SaveFile(testCtx(t), f, dst); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil || string(b) != string(payload) {
		t.Fatalf("saved: %q err=%v", b, err)
	}
	if ups := s.Uploads(); len(ups) != 1 || ups[0].Name != "voice.wav" {
		t.Fatalf("uploads: %+v", ups)
	}
}

// TestE2E_ParallelPredictions shares one client across goroutines.
func TestE2E_ParallelPredictions(t *testing.T) {
	s := startDemo(t, nil)
	c := connect(t, s, s.URL(), gradio.Options{})
	ctx := testCtx(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs, err := c.Predict(ctx, "/add", []gradio.Input{gradio.Value(i), gradio.Value(100)})
			if err != nil {
				errs <- err
				return
			}
			var sum float64
			if err := outs[0].Decode(&sum); err != nil {
				errs <- err
				return
			}
			if sum != float64(i+100) {
				errs <- fmt.Errorf("job %d: sum %v", i, sum)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	seen := map[string]bool{}
	for _, j := range s.Joins() {
		if seen[j.SessionHash] {
			t.Fatalf("session hash reused: %s", j.SessionHash)
		}
		seen[j.SessionHash] = true
	}
	if len(seen) != n {
		t.Fatalf("joins: %d", len(seen))
	}
}

// TestE2E_CancelHeldJob cancels a job the app never finishes.
func TestE2E_CancelHeldJob(t *testing.T) {
	s := startDemo(t, func(o *fakeapp.Options) {
		o.Handlers[0] = func(fakeapp.Job) []fakeapp.Frame {
			return []fakeapp.Frame{fakeapp.Starts(), {Hold: true}}
		}
	})
	c := connect(t, s, s.URL(), gradio.Options{})

	p, err := c.Submit(testCtx(t), "/predict", []gradio.Input{gradio.Value("x")})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := p.Next(testCtx(t)); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}
	if err := p.Cancel(testCtx(t)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := p.Next(testCtx(t)); !errors.Is(err, gradio.ErrStreamClosed) {
		t.Fatalf("next after cancel: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(s.Resets()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("reset never reached the app")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if cs := s.Cancels(); len(cs) != 1 || cs[0].EventID != p.EventID() {
		t.Fatalf("cancels: %+v", cs)
	}
}

// TestE2E_RemoteFailureSurfaces checks the error shape of a failing route.
func TestE2E_RemoteFailureSurfaces(t *testing.T) {
	s := startDemo(t, nil)
	c := connect(t, s, s.URL(), gradio.Options{})
	_, err := c.Predict(testCtx(t), "/fail", nil)
	if !gradio.IsRemoteExecution(err) {
		t.Fatalf("expected remote execution error, got %v", err)
	}
	var ge *gradio.Error
	if !errors.As(err, &ge) || ge.Message != "boom" {
		t.Fatalf("unexpected error: %#v", err)
	}
}
