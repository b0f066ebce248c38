package gradio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// newHTTPClient builds the client used for every request. Cookies set by the
// login call are kept in the jar and replayed on later requests.
func newHTTPClient(opts Options) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	var base http.RoundTripper
	var cli http.Client
	if opts.HTTPClient != nil {
		cli = *opts.HTTPClient
		base = cli.Transport
		if cli.Jar != nil {
			jar = nil
		}
	} else {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeout=0: the queue stream stays open for the whole job; deadlines come from contexts.
		cli.Timeout = 0
	}
	if base == nil {
		base = http.DefaultTransport
	}
	if jar != nil {
		cli.Jar = jar
	}
	cli.Transport = &headerTransport{base: base, token: opts.HFToken, userAgent: opts.UserAgent}
	return &cli, nil
}

// headerTransport stamps the bearer token and user agent on every request.
type headerTransport struct {
	base      http.RoundTripper
	token     string
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.token != "" && r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+t.token)
	}
	if t.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(r)
}

// httpStatusError is a non-success answer from the app.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *httpStatusError
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.Code, true
}

// do issues one request labelled endpoint for logs and metrics. A non-2xx
// status is returned as *httpStatusError with the body drained.
func (c *Client) do(ctx context.Context, endpoint, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observeRequest(endpoint, 0, start)
		c.log.Debug().Str("endpoint", endpoint).Str("method", method).Err(err).Msg("request failed")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	observeRequest(endpoint, resp.StatusCode, start)
	c.log.Debug().Str("endpoint", endpoint).Str("method", method).Int("status", resp.StatusCode).
		Dur("dur", time.Since(start)).Msg("request")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) error {
	resp, err := c.do(ctx, endpoint, http.MethodGet, url, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(resp.Body, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint, url string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, endpoint, http.MethodPost, url, bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeBody(resp.Body, out)
}

// decodeError marks a success response whose body could not be decoded.
type decodeError struct {
	err error
	raw []byte
}

func (e *decodeError) Error() string { return "decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func decodeBody(r io.Reader, out any) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &decodeError{err: err, raw: b}
	}
	return nil
}
