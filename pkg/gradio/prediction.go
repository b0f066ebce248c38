package gradio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gradio/pkg/types"
)

// cancelNotifyTimeout bounds the background cancel and reset calls.
const cancelNotifyTimeout = 10 * time.Second

type sseResult struct {
	ev  sseEvent
	err error
}

// Prediction is one in-flight queue job. Next yields its messages in order;
// Cancel or Close release the stream. Next must not be called concurrently,
// Cancel and Close may be called from any goroutine.
type Prediction struct {
	client      *Client
	log         zerolog.Logger
	route       string
	fnIndex     int64
	sessionHash string
	eventID     string

	body     io.ReadCloser
	stop     context.CancelFunc
	results  chan sseResult
	done     chan struct{}
	openSent bool
	finished bool

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// Submit resolves route, fills declared defaults, uploads file inputs, joins
// the queue and opens the event stream for the job.
func (c *Client) Submit(ctx context.Context, route string, inputs []Input) (*Prediction, error) {
	idx, err := fnIndex(c.config.Dependencies, route)
	if err != nil {
		return nil, err
	}
	inputs, err = c.prepareInputs(route, inputs)
	if err != nil {
		return nil, err
	}
	data, err := c.marshalInputs(ctx, inputs)
	if err != nil {
		return nil, err
	}

	hash := c.opts.IDGenerator()
	var jr types.JoinResponse
	req := types.JoinRequest{FnIndex: idx, Data: data, SessionHash: hash}
	if err := c.postJSON(ctx, "queue/join", c.apiRoot+"/queue/join", req, &jr); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(KindQueueJoin, "queue/join", "/"+routeName(route), err)
	}
	if jr.EventID == "" {
		return nil, newError(KindQueueJoin, "queue/join", "response carried no event id", nil)
	}
	c.events.Publish(Event{Name: EventQueueJoined, APIRoot: c.apiRoot, Fields: map[string]any{
		"route": "/" + routeName(route), "fn_index": idx, "event_id": jr.EventID,
	}})

	// The stream outlives ctx; it ends on a terminal message, Cancel or Close.
	streamCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	unlink := context.AfterFunc(ctx, stop)
	q := url.Values{"session_hash": {hash}}
	resp, err := c.do(streamCtx, "queue/data", http.MethodGet, c.apiRoot+"/queue/data?"+q.Encode(), nil, "")
	unlink()
	if err != nil {
		stop()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(KindStream, "queue/data", "could not open event stream", err)
	}

	p := &Prediction{
		client:      c,
		log:         c.log.With().Str("event_id", jr.EventID).Logger(),
		route:       "/" + routeName(route),
		fnIndex:     idx,
		sessionHash: hash,
		eventID:     jr.EventID,
		body:        resp.Body,
		stop:        stop,
		results:     make(chan sseResult),
		done:        make(chan struct{}),
	}
	go p.pump()
	p.log.Debug().Str("route", p.route).Int64("fn_index", idx).Msg("queue joined")
	return p, nil
}

// pump reads the stream until it ends or the prediction is closed.
func (p *Prediction) pump() {
	defer close(p.results)
	r := newSSEReader(p.body)
	for {
		ev, err := r.Next()
		select {
		case p.results <- sseResult{ev: ev, err: err}:
		case <-p.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// EventID is the server-assigned job identifier.
func (p *Prediction) EventID() string { return p.eventID }

// SessionHash is the identifier scoping this job's queue traffic.
func (p *Prediction) SessionHash() string { return p.sessionHash }

// FnIndex is the function index the job was submitted to.
func (p *Prediction) FnIndex() int64 { return p.fnIndex }

func (p *Prediction) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Next returns the next message for this job. The first call always yields
// an Open message. Heartbeats and messages for other jobs are skipped. After
// a terminal message or the end of the stream Next returns io.EOF; after
// Cancel or Close it returns a Stream error wrapping ErrStreamClosed.
func (p *Prediction) Next(ctx context.Context) (Message, error) {
	if p.isClosed() {
		return Message{}, newError(KindStream, "queue/data", "", ErrStreamClosed)
	}
	if !p.openSent {
		p.openSent = true
		streamMessagesTotal.WithLabelValues(MessageOpen.String()).Inc()
		return Message{Kind: MessageOpen, EventID: p.eventID}, nil
	}
	if p.finished {
		return Message{}, io.EOF
	}
	for {
		var res sseResult
		var ok bool
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case res, ok = <-p.results:
		}
		if !ok || p.isClosed() {
			if p.isClosed() {
				return Message{}, newError(KindStream, "queue/data", "", ErrStreamClosed)
			}
			p.finish()
			return Message{}, io.EOF
		}
		if res.err != nil {
			p.finish()
			if errors.Is(res.err, io.EOF) {
				return Message{}, io.EOF
			}
			return Message{}, newError(KindStream, "queue/data", "stream read failed", res.err)
		}
		if res.ev.Data == "" {
			continue
		}
		m, err := decodeMessage([]byte(res.ev.Data))
		if err != nil {
			p.log.Warn().Err(err).Msg("malformed stream message")
			return Message{}, err
		}
		streamMessagesTotal.WithLabelValues(m.Kind.String()).Inc()
		switch {
		case m.Kind == MessageHeartbeat:
			continue
		case m.Kind == messageCloseStream:
			p.finish()
			return Message{}, io.EOF
		case m.EventID != "" && m.EventID != p.eventID:
			p.log.Debug().Str("other_event", m.EventID).Str("kind", m.Kind.String()).Msg("skipping message for another job")
			continue
		}
		if m.Kind.Terminal() {
			p.finish()
		}
		return m, nil
	}
}

// finish marks the job over and releases the stream.
func (p *Prediction) finish() {
	p.finished = true
	p.release()
}

func (p *Prediction) release() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.stop()
		_ = p.body.Close()
	})
}

// Close stops reading the stream without notifying the server.
func (p *Prediction) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.release()
	return nil
}

// Cancel closes the stream and asks the server, in the background, to cancel
// and reset the job. Server failures are logged, never returned.
func (p *Prediction) Cancel(ctx context.Context) error {
	_ = p.Close()
	c := p.client
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelNotifyTimeout)
	go func() {
		defer cancel()
		creq := types.CancelRequest{EventID: p.eventID, SessionHash: p.sessionHash, FnIndex: p.fnIndex}
		cancelErr := c.postJSON(nctx, "cancel", c.apiRoot+"/cancel", creq, nil)
		if cancelErr != nil {
			p.log.Warn().Err(cancelErr).Msg("cancel request failed")
		}
		resetErr := c.postJSON(nctx, "reset", c.apiRoot+"/reset", types.ResetRequest{EventID: p.eventID}, nil)
		if resetErr != nil {
			p.log.Warn().Err(resetErr).Msg("reset request failed")
		}
		c.events.Publish(Event{Name: EventCancelDone, APIRoot: c.apiRoot, Fields: map[string]any{
			"event_id": p.eventID,
			"ok":       cancelErr == nil && resetErr == nil,
		}})
	}()
	return nil
}

// Wait drains the stream and returns the outputs of the completed job. The
// stream is released when Wait returns.
func (p *Prediction) Wait(ctx context.Context) ([]Output, error) {
	defer p.Close()
	for {
		m, err := p.Next(ctx)
		if errors.Is(err, io.EOF) {
			predictionsTotal.WithLabelValues("protocol_error").Inc()
			return nil, protocolError("queue/data", "stream ended unexpectedly", nil, nil)
		}
		if err != nil {
			predictionsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		switch m.Kind {
		case MessageCompleted:
			predictionsTotal.WithLabelValues("success").Inc()
			p.publishDone("success")
			return m.Outputs, nil
		case MessageFailed, MessageUnexpectedError:
			predictionsTotal.WithLabelValues("remote_error").Inc()
			p.publishDone("remote_error")
			msg := m.Error
			if msg == "" {
				msg = "unknown error"
			}
			return nil, &Error{Kind: KindRemoteExecution, Op: p.route, Message: msg, Raw: m.Raw}
		}
	}
}

func (p *Prediction) publishDone(outcome string) {
	p.client.events.Publish(Event{Name: EventPredictionDone, APIRoot: p.client.apiRoot, Fields: map[string]any{
		"event_id": p.eventID, "route": p.route, "outcome": outcome,
	}})
}

// Predict submits a job and blocks until its outputs arrive.
func (c *Client) Predict(ctx context.Context, route string, inputs []Input) ([]Output, error) {
	p, err := c.Submit(ctx, route, inputs)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}
