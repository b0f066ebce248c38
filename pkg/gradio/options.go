package gradio

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Options fields are unset.
const (
	DefaultWakeInterval      = 5 * time.Second
	DefaultWakeMaxAttempts   = 12
	DefaultUploadConcurrency = 4
	DefaultUserAgent         = "gradio-go-client"
)

// Credentials is a username/password pair for apps behind a login form.
type Credentials struct {
	Username string
	Password string
}

// IDGenerator returns a fresh session identifier.
type IDGenerator func() string

// Options encapsulates all tunables for Client construction.
type Options struct {
	// HFToken is sent as a bearer token on every request when set.
	HFToken string
	// Auth triggers a login call before negotiation.
	Auth *Credentials
	// HTTPClient overrides the transport. A cookie jar is attached when it has none.
	HTTPClient *http.Client
	// RegistryURL overrides the hosting registry API root.
	RegistryURL string

	WakeInterval      time.Duration
	WakeMaxAttempts   int
	UploadConcurrency int
	// ValidateInputs checks value inputs against each parameter's declared schema.
	ValidateInputs bool
	UserAgent      string

	IDGenerator IDGenerator
	Logger      *zerolog.Logger
	Events      EventPublisher
}

func (o Options) withDefaults() Options {
	if o.WakeInterval <= 0 {
		o.WakeInterval = DefaultWakeInterval
	}
	if o.WakeMaxAttempts <= 0 {
		o.WakeMaxAttempts = DefaultWakeMaxAttempts
	}
	if o.UploadConcurrency <= 0 {
		o.UploadConcurrency = DefaultUploadConcurrency
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.IDGenerator == nil {
		o.IDGenerator = NewSessionHash
	}
	if o.Logger == nil {
		l := zerolog.Nop()
		o.Logger = &l
	}
	if o.Events == nil {
		o.Events = noopPublisher{}
	}
	return o
}
