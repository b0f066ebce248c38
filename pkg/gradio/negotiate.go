package gradio

import (
	"context"
	"errors"
	"strings"

	"gradio/pkg/types"
)

// validatedProtocols are the stream protocol revisions this client was tested against.
var validatedProtocols = map[string]bool{
	"sse_v2":   true,
	"sse_v2.1": true,
	"sse_v3":   true,
}

// negotiate fetches the configuration and capability schema from root and
// fixes the api root used for every later call.
func (c *Client) negotiate(ctx context.Context, root string) error {
	var cfg types.AppConfig
	if err := c.getJSON(ctx, "config", root+"/config", &cfg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(KindConfigFetch, "config", "could not fetch app config", err)
	}
	apiRoot := root
	if p := strings.Trim(cfg.APIPrefix, "/"); p != "" {
		apiRoot = root + "/" + p
	}

	var info types.APIInfo
	if err := c.getJSON(ctx, "info", apiRoot+"/info", &info); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var de *decodeError
		if errors.As(err, &de) {
			return &Error{Kind: KindCapabilityFetch, Op: "info", Message: "malformed api info", Raw: de.raw, Err: err}
		}
		return newError(KindCapabilityFetch, "info", "could not fetch api info", err)
	}

	if !validatedProtocols[cfg.Protocol] {
		c.log.Warn().Str("protocol", cfg.Protocol).Str("version", cfg.Version).
			Msg("app speaks a protocol revision this client was not validated against")
	}
	c.config = cfg
	c.info = info
	c.apiRoot = apiRoot
	c.events.Publish(Event{Name: EventNegotiateDone, APIRoot: apiRoot, Fields: map[string]any{
		"protocol": cfg.Protocol,
		"routes":   len(cfg.Dependencies),
	}})
	c.log.Info().Str("api_root", apiRoot).Str("protocol", cfg.Protocol).Msg("negotiated")
	return nil
}
