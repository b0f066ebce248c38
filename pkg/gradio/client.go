package gradio

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"gradio/internal/registry"
	"gradio/pkg/types"
)

// Client is a negotiated connection to one application. It is immutable after
// NewClient returns and safe for concurrent use; each Submit opens its own
// queue session.
type Client struct {
	opts        Options
	http        *http.Client
	hub         *registry.Client
	log         zerolog.Logger
	events      EventPublisher
	ref         AppRef
	root        string
	apiRoot     string
	sessionHash string
	config      types.AppConfig
	info        types.APIInfo
}

// NewClient resolves appRef, logs in when credentials are given, wakes a
// sleeping space and negotiates the app's configuration and api schema.
func NewClient(ctx context.Context, appRef string, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	hc, err := newHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:        opts,
		http:        hc,
		hub:         registry.New(opts.RegistryURL, hc),
		log:         opts.Logger.With().Str("component", "gradio").Logger(),
		events:      opts.Events,
		ref:         ParseAppRef(appRef),
		sessionHash: opts.IDGenerator(),
	}

	root, err := c.resolve(ctx, c.ref)
	if err != nil {
		return nil, err
	}
	c.root = root
	c.events.Publish(Event{Name: EventResolveDone, APIRoot: root, Fields: map[string]any{"kind": c.ref.Kind.String()}})
	c.log.Info().Str("ref", c.ref.Raw).Str("root", root).Msg("resolved")

	if opts.Auth != nil {
		if err := c.login(ctx, *opts.Auth); err != nil {
			return nil, err
		}
	}
	// Hosted URLs carry no owner; only registry identifiers can be polled.
	if c.ref.Kind == RefSpace {
		if err := c.wakeUp(ctx, c.ref.SpaceID()); err != nil {
			return nil, err
		}
	}
	if err := c.negotiate(ctx, root); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) login(ctx context.Context, cred Credentials) error {
	form := url.Values{"username": {cred.Username}, "password": {cred.Password}}
	resp, err := c.do(ctx, "login", http.MethodPost, c.root+"/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(KindAuthentication, "login", "login rejected for "+cred.Username, err)
	}
	resp.Body.Close()
	c.events.Publish(Event{Name: EventLoginDone, APIRoot: c.root})
	return nil
}

// SessionHash returns the identifier generated for this client instance.
func (c *Client) SessionHash() string { return c.sessionHash }

// APIRoot returns the root every call is made against, prefix included.
func (c *Client) APIRoot() string { return c.apiRoot }

// SpaceID returns the space identifier for registry or hosted references, or "".
func (c *Client) SpaceID() string { return c.ref.SpaceID() }

// Config returns the negotiated app configuration.
func (c *Client) Config() types.AppConfig { return c.config }

// APIInfo returns the negotiated capability schema.
func (c *Client) APIInfo() types.APIInfo { return c.info }

// HTTPClient returns the transport used by the client, cookies and token included.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Endpoint returns the schema of a named route. The leading separator is optional.
func (c *Client) Endpoint(route string) (types.EndpointInfo, error) {
	name := routeName(route)
	if ep, ok := c.info.NamedEndpoints["/"+name]; ok && name != "" {
		return ep, nil
	}
	return types.EndpointInfo{}, newError(KindRouteNotFound, "endpoint", "/"+name, nil)
}
