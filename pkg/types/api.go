package types

import (
	"bytes"
	"encoding/json"
)

// UnsetDependencyID marks a dependency whose config entry carries no usable id.
// Callers must use the entry's position in the dependency list instead.
const UnsetDependencyID int64 = -1

// AppConfig is returned by GET /config. Only the route table and a handful of
// protocol fields are interpreted; layout and theme data pass through untouched.
type AppConfig struct {
	// Protocol names the streaming protocol revision, e.g. "sse_v3".
	// example: sse_v3
	Protocol string `json:"protocol"`
	// Version is the framework version that served the config.
	// example: 4.44.1
	Version string `json:"version"`
	// APIPrefix is appended to the api root for every call after negotiation.
	// example: /gradio_api
	APIPrefix string `json:"api_prefix,omitempty"`
	// Root is the public root the app believes it is served from.
	Root string `json:"root,omitempty"`
	// SpaceID is set when the app runs on a hosted space.
	// example: gradio/hello_world
	SpaceID *string `json:"space_id,omitempty"`
	// Dependencies is the ordered route table.
	Dependencies []Dependency `json:"dependencies"`
	// Components describes the UI components; accepted opaquely.
	Components []ComponentMeta `json:"components,omitempty"`

	Mode         string          `json:"mode,omitempty"`
	Title        string          `json:"title,omitempty"`
	Theme        string          `json:"theme,omitempty"`
	Layout       json.RawMessage `json:"layout,omitempty"`
	AuthRequired *bool           `json:"auth_required,omitempty"`
	AuthMessage  *string         `json:"auth_message,omitempty"`
	EnableQueue  *bool           `json:"enable_queue,omitempty"`
	ShowAPI      *bool           `json:"show_api,omitempty"`
	IsSpace      *bool           `json:"is_space,omitempty"`
	MaxFileSize  *int64          `json:"max_file_size,omitempty"`
	Username     *string         `json:"username,omitempty"`
}

// ComponentMeta is one UI component entry of the config.
type ComponentMeta struct {
	ID    json.RawMessage `json:"id"`
	Type  string          `json:"type"`
	Props json.RawMessage `json:"props,omitempty"`
}

// Dependency maps a route name to the execution index used on the queue.
type Dependency struct {
	// APIName is the route name without a leading slash. Unnamed routes
	// (api_name false or null on the wire) decode to "".
	// example: predict
	APIName string `json:"api_name"`
	// ID is the declared execution index or UnsetDependencyID.
	// example: 0
	ID int64 `json:"id"`
	// Queue reports whether the route runs through the queue.
	Queue *bool `json:"queue,omitempty"`
}

// UnmarshalJSON tolerates a missing or null id and a non-string api_name.
func (d *Dependency) UnmarshalJSON(b []byte) error {
	var aux struct {
		APIName json.RawMessage `json:"api_name"`
		ID      *int64          `json:"id"`
		Queue   *bool           `json:"queue"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.ID = UnsetDependencyID
	if aux.ID != nil {
		d.ID = *aux.ID
	}
	d.Queue = aux.Queue
	d.APIName = ""
	if len(aux.APIName) > 0 && aux.APIName[0] == '"' {
		if err := json.Unmarshal(aux.APIName, &d.APIName); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON writes the wire form: an unset id as null, an unnamed route as false.
func (d Dependency) MarshalJSON() ([]byte, error) {
	aux := struct {
		APIName any   `json:"api_name"`
		ID      any   `json:"id"`
		Queue   *bool `json:"queue,omitempty"`
	}{APIName: false, ID: nil, Queue: d.Queue}
	if d.APIName != "" {
		aux.APIName = d.APIName
	}
	if d.ID != UnsetDependencyID {
		aux.ID = d.ID
	}
	return json.Marshal(aux)
}

// APIInfo is returned by GET /info: the machine-readable capability schema.
type APIInfo struct {
	NamedEndpoints   map[string]EndpointInfo `json:"named_endpoints"`
	UnnamedEndpoints map[string]EndpointInfo `json:"unnamed_endpoints,omitempty"`
}

// EndpointInfo lists the ordered parameters and returns of one route.
type EndpointInfo struct {
	Parameters []APIData `json:"parameters"`
	Returns    []APIData `json:"returns"`
	ShowAPI    *bool     `json:"show_api,omitempty"`
}

// APIData describes one parameter or return value.
type APIData struct {
	// example: name
	Label *string `json:"label,omitempty"`
	// example: name
	ParameterName       *string         `json:"parameter_name,omitempty"`
	ParameterHasDefault *bool           `json:"parameter_has_default,omitempty"`
	ParameterDefault    json.RawMessage `json:"parameter_default,omitempty"`
	// example: Textbox
	Component    string          `json:"component"`
	ExampleInput json.RawMessage `json:"example_input,omitempty"`
	// Type is the wire-level JSON schema of the value.
	Type APIDataType `json:"type"`
	// PythonType is the richer descriptive type (e.g. "filepath").
	PythonType PythonType `json:"python_type"`
}

// Name returns the label, else the parameter name, else "unnamed".
func (d APIData) Name() string {
	if d.Label != nil && *d.Label != "" {
		return *d.Label
	}
	if d.ParameterName != nil && *d.ParameterName != "" {
		return *d.ParameterName
	}
	return "unnamed"
}

// HasDefault reports whether the server declared a default for the parameter.
func (d APIData) HasDefault() bool {
	return d.ParameterHasDefault != nil && *d.ParameterHasDefault
}

// APIDataType is the declared JSON schema of a value. Type and Description
// are lifted out for convenience; Schema keeps the full document.
type APIDataType struct {
	// example: string
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw schema and tolerates a non-string "type" field.
func (t *APIDataType) UnmarshalJSON(b []byte) error {
	t.Schema = append(json.RawMessage(nil), b...)
	var aux struct {
		Type        json.RawMessage `json:"type"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t.Description = aux.Description
	t.Type = ""
	if len(aux.Type) > 0 && aux.Type[0] == '"' {
		return json.Unmarshal(aux.Type, &t.Type)
	}
	return nil
}

// MarshalJSON writes the raw schema back when one was decoded.
func (t APIDataType) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(t.Schema)) > 0 {
		return t.Schema, nil
	}
	type alias APIDataType
	return json.Marshal(alias(t))
}

// PythonType is the descriptive type shown to humans.
type PythonType struct {
	// example: filepath
	Type        string `json:"type"`
	Description string `json:"description"`
}
