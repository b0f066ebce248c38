package gradio

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradio/internal/fakeapp"
	"gradio/pkg/types"
)

func TestNewClient_NegotiatesPlainURL(t *testing.T) {
	s := startApp(t, fakeapp.Demo())
	pub := NewMemoryPublisher()
	opts := fastOptions(s)
	opts.Events = pub
	c := newTestClient(t, s, opts)

	assert.Equal(t, s.URL(), c.APIRoot())
	assert.Equal(t, "sse_v3", c.Config().Protocol)
	assert.Len(t, c.Config().Dependencies, 6)
	assert.Contains(t, c.APIInfo().NamedEndpoints, "/predict")
	assert.Empty(t, c.SpaceID())
	assert.Len(t, c.SessionHash(), 10)
	assert.Equal(t, []string{EventResolveDone, EventNegotiateDone}, pub.Names())
	assert.Zero(t, s.StatusPolls(), "plain urls are never polled")

	ep, err := c.Endpoint("add")
	require.NoError(t, err)
	assert.Len(t, ep.Parameters, 2)
	_, err = c.Endpoint("/missing")
	assert.True(t, IsRouteNotFound(err))
}

func TestNewClient_AppliesAPIPrefix(t *testing.T) {
	opts := fakeapp.Demo()
	opts.Config.APIPrefix = "/gradio_api"
	s := startApp(t, opts)
	c := newTestClient(t, s, fastOptions(s))
	assert.Equal(t, s.URL()+"/gradio_api", c.APIRoot())

	out, err := c.Predict(testCtx(t), "/predict", []Input{Value("Ada")})
	require.NoError(t, err)
	var greeting string
	require.NoError(t, out[0].Decode(&greeting))
	assert.Equal(t, "Hello Ada!!", greeting)
}

func TestNewClient_FetchFailuresAreDistinct(t *testing.T) {
	cases := map[string]Kind{"config": KindConfigFetch, "info": KindCapabilityFetch}
	for endpoint, kind := range cases {
		opts := fakeapp.Demo()
		opts.Fail = map[string]int{endpoint: http.StatusInternalServerError}
		s := startApp(t, opts)
		_, err := NewClient(testCtx(t), s.URL(), fastOptions(s))
		require.Error(t, err)
		assert.Equal(t, kind, KindOf(err), "endpoint %s", endpoint)
		code, ok := StatusCode(err)
		assert.True(t, ok)
		assert.Equal(t, http.StatusInternalServerError, code)
	}
}

func TestNewClient_MalformedInfo(t *testing.T) {
	opts := fakeapp.Demo()
	opts.InfoBody = `{"named_endpoints": [`
	s := startApp(t, opts)
	_, err := NewClient(testCtx(t), s.URL(), fastOptions(s))
	require.True(t, IsKind(err, KindCapabilityFetch), "got %v", err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, opts.InfoBody, string(e.Raw))
}

func TestNewClient_WarnsOnUnvalidatedProtocol(t *testing.T) {
	opts := fakeapp.Demo()
	opts.Config.Protocol = "ws"
	s := startApp(t, opts)
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	o := fastOptions(s)
	o.Logger = &l
	c := newTestClient(t, s, o)
	assert.Equal(t, "ws", c.Config().Protocol)
	assert.Equal(t, 1, strings.Count(buf.String(), "not validated"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestNewClient_SpaceRefResolvesAndWakes(t *testing.T) {
	opts := fakeapp.Demo()
	opts.Stages = []types.SpaceStage{types.StageSleeping, types.StageStarting, types.StageRunning}
	s := startApp(t, opts)
	pub := NewMemoryPublisher()
	o := fastOptions(s)
	o.WakeMaxAttempts = 5
	o.Events = pub
	c, err := NewClient(testCtx(t), "gradio/demo", o)
	require.NoError(t, err)
	assert.Equal(t, s.URL(), c.APIRoot())
	assert.Equal(t, "gradio/demo", c.SpaceID())
	assert.Equal(t, 3, s.StatusPolls())
	assert.Equal(t, []string{EventResolveDone, EventWakeupPoll, EventWakeupPoll, EventWakeupPoll, EventNegotiateDone}, pub.Names())
}

func TestNewClient_RunningSpaceNeedsOnePoll(t *testing.T) {
	s := startApp(t, fakeapp.Demo())
	o := fastOptions(s)
	o.WakeInterval = time.Hour
	_, err := NewClient(testCtx(t), "gradio/demo", o)
	require.NoError(t, err)
	assert.Equal(t, 1, s.StatusPolls())
}

func TestNewClient_WakeUpFailures(t *testing.T) {
	cases := []struct {
		name   string
		stages []types.SpaceStage
		cause  error
		polls  int
	}{
		{"paused", []types.SpaceStage{types.StagePaused}, ErrSpacePaused, 1},
		{"timeout", []types.SpaceStage{types.StageBuilding}, ErrWakeTimeout, 3},
		{"unknown", []types.SpaceStage{types.StageSleeping, "RUNTIME_ERROR"}, ErrUnknownStage, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := fakeapp.Demo()
			opts.Stages = c.stages
			s := startApp(t, opts)
			_, err := NewClient(testCtx(t), "gradio/demo", fastOptions(s))
			require.Error(t, err)
			assert.True(t, IsSpaceUnavailable(err), "got %v", err)
			assert.True(t, errors.Is(err, c.cause), "got %v", err)
			assert.Equal(t, c.polls, s.StatusPolls())
		})
	}
}

func TestNewClient_RegistryFailures(t *testing.T) {
	opts := fakeapp.Demo()
	opts.Fail = map[string]int{"registry/host": http.StatusNotFound}
	s := startApp(t, opts)
	_, err := NewClient(testCtx(t), "gradio/missing", fastOptions(s))
	assert.True(t, IsKind(err, KindResolution), "got %v", err)

	opts = fakeapp.Demo()
	opts.Fail = map[string]int{"registry/status": http.StatusInternalServerError}
	s = startApp(t, opts)
	_, err = NewClient(testCtx(t), "gradio/demo", fastOptions(s))
	assert.True(t, IsSpaceUnavailable(err), "got %v", err)
}

func TestNewClient_WakeUpHonorsContext(t *testing.T) {
	opts := fakeapp.Demo()
	opts.Stages = []types.SpaceStage{types.StageSleeping}
	s := startApp(t, opts)
	o := fastOptions(s)
	o.WakeInterval = time.Hour
	o.WakeMaxAttempts = 10
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(ctx, "gradio/demo", o)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_Login(t *testing.T) {
	opts := fakeapp.Demo()
	opts.Username, opts.Password = "ada", "secret"
	s := startApp(t, opts)

	o := fastOptions(s)
	_, err := NewClient(testCtx(t), s.URL(), o)
	assert.True(t, IsKind(err, KindConfigFetch), "unauthenticated config fetch should fail, got %v", err)

	o.Auth = &Credentials{Username: "ada", Password: "wrong"}
	_, err = NewClient(testCtx(t), s.URL(), o)
	assert.True(t, IsKind(err, KindAuthentication), "got %v", err)

	o.Auth = &Credentials{Username: "ada", Password: "secret"}
	c := newTestClient(t, s, o)
	out, err := c.Predict(testCtx(t), "/predict", []Input{Value("Ada")})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestNewClient_TokenAndUserAgent(t *testing.T) {
	opts := fakeapp.Demo()
	opts.Token = "hf_secret"
	s := startApp(t, opts)

	_, err := NewClient(testCtx(t), s.URL(), fastOptions(s))
	assert.True(t, IsKind(err, KindConfigFetch))

	o := fastOptions(s)
	o.HFToken = "hf_secret"
	o.UserAgent = "gradio-test/1"
	newTestClient(t, s, o)
	auths := s.AuthorizationHeaders()
	assert.Equal(t, "Bearer hf_secret", auths[len(auths)-1])
	uas := s.UserAgents()
	assert.Equal(t, "gradio-test/1", uas[len(uas)-1])
}

func TestNewClient_CustomHTTPClientKeepsTransport(t *testing.T) {
	s := startApp(t, fakeapp.Demo())
	var calls int
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return http.DefaultTransport.RoundTrip(r)
	})
	o := fastOptions(s)
	o.HTTPClient = &http.Client{Transport: base}
	c := newTestClient(t, s, o)
	assert.Equal(t, 2, calls)
	assert.NotNil(t, c.HTTPClient().Jar)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
