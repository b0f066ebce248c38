// Package registry talks to the hosting registry's public API: it resolves an
// owner/name space reference to the host serving it and reports the space's
// runtime stage.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"gradio/pkg/types"
)

// DefaultBaseURL is the public registry API.
const DefaultBaseURL = "https://huggingface.co"

var spaceRefPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+/[a-zA-Z0-9_\-.]+$`)

// IsSpaceRef reports whether ref has the owner/name form.
func IsSpaceRef(ref string) bool { return spaceRefPattern.MatchString(ref) }

// Client queries the registry API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a registry client. An empty baseURL selects DefaultBaseURL;
// a nil httpClient selects http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// BaseURL returns the registry root in use.
func (c *Client) BaseURL() string { return c.baseURL }

// Host looks up the URL serving spaceID.
func (c *Client) Host(ctx context.Context, spaceID string) (types.HubHost, error) {
	var h types.HubHost
	if err := c.getJSON(ctx, "/api/spaces/"+spaceID+"/host", &h); err != nil {
		return types.HubHost{}, err
	}
	if strings.TrimSpace(h.Host) == "" {
		return types.HubHost{}, malformedError{path: "host", msg: "empty host"}
	}
	return h, nil
}

// Status returns the runtime status of spaceID.
func (c *Client) Status(ctx context.Context, spaceID string) (types.SpaceStatus, error) {
	var st types.SpaceStatus
	if err := c.getJSON(ctx, "/api/spaces/"+spaceID, &st); err != nil {
		return types.SpaceStatus{}, err
	}
	if st.Runtime.Stage == "" {
		return types.SpaceStatus{}, malformedError{path: "status", msg: "missing runtime stage"}
	}
	return st, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError{path: path, code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return malformedError{path: path, msg: err.Error()}
	}
	return nil
}

// statusError is a non-success HTTP answer from the registry.
type statusError struct {
	path string
	code int
	body string
}

func (e statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("registry %s: http %d", e.path, e.code)
	}
	return fmt.Sprintf("registry %s: http %d: %s", e.path, e.code, e.body)
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se statusError
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.code, true
}

// malformedError signals a success response the client could not interpret.
type malformedError struct {
	path string
	msg  string
}

func (e malformedError) Error() string {
	return "registry " + e.path + ": malformed response: " + e.msg
}

// IsMalformed reports whether err is a malformed registry response.
func IsMalformed(err error) bool {
	var me malformedError
	return errors.As(err, &me)
}
