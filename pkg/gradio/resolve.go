package gradio

import (
	"context"
	"regexp"
	"strings"

	"gradio/internal/registry"
)

// RefKind classifies an application reference.
type RefKind int

const (
	// RefURL is a plain base URL used as-is.
	RefURL RefKind = iota
	// RefSpace is an owner/name registry identifier.
	RefSpace
	// RefHosted is a URL on the hosting provider's space domain.
	RefHosted
)

func (k RefKind) String() string {
	switch k {
	case RefSpace:
		return "space"
	case RefHosted:
		return "hosted"
	default:
		return "url"
	}
}

var hostedSuffix = regexp.MustCompile(`(?i)\.hf\.space$`)

// AppRef is a classified application reference.
type AppRef struct {
	Raw  string
	Kind RefKind
}

// ParseAppRef classifies ref. Trailing slashes are ignored.
func ParseAppRef(ref string) AppRef {
	ref = strings.TrimRight(strings.TrimSpace(ref), "/")
	switch {
	case registry.IsSpaceRef(ref):
		return AppRef{Raw: ref, Kind: RefSpace}
	case hostedSuffix.MatchString(ref):
		return AppRef{Raw: ref, Kind: RefHosted}
	default:
		return AppRef{Raw: ref, Kind: RefURL}
	}
}

// SpaceID returns the space identifier implied by the reference: the
// owner/name itself, or the host's first label for a hosted URL.
func (r AppRef) SpaceID() string {
	switch r.Kind {
	case RefSpace:
		return r.Raw
	case RefHosted:
		host := r.Raw
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if i := strings.IndexAny(host, "/."); i >= 0 {
			host = host[:i]
		}
		return host
	default:
		return ""
	}
}

// resolve turns ref into the application root URL.
func (c *Client) resolve(ctx context.Context, ref AppRef) (string, error) {
	if ref.Raw == "" {
		return "", newError(KindResolution, "resolve", "empty application reference", nil)
	}
	switch ref.Kind {
	case RefHosted:
		if !strings.Contains(ref.Raw, "://") {
			return "https://" + ref.Raw, nil
		}
		return ref.Raw, nil
	case RefURL:
		return ref.Raw, nil
	}
	h, err := c.hub.Host(ctx, ref.Raw)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", newError(KindResolution, "registry/host", "could not resolve space "+ref.Raw, err)
	}
	return strings.TrimRight(h.Host, "/"), nil
}
