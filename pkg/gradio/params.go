package gradio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"gradio/pkg/types"
)

// prepareInputs fills parameters the caller left out from their declared
// defaults and, when enabled, validates value inputs against the declared
// schemas. Routes missing from the schema are passed through untouched.
func (c *Client) prepareInputs(route string, inputs []Input) ([]Input, error) {
	ep, ok := c.info.NamedEndpoints["/"+routeName(route)]
	if !ok {
		return inputs, nil
	}
	if len(inputs) < len(ep.Parameters) {
		filled := make([]Input, len(inputs), len(ep.Parameters))
		copy(filled, inputs)
		for _, p := range ep.Parameters[len(inputs):] {
			if !p.HasDefault() {
				return nil, newError(KindParameterCountMismatch, "/"+routeName(route),
					fmt.Sprintf("expected %d inputs, got %d; %q has no default", len(ep.Parameters), len(inputs), p.Name()), nil)
			}
			def := p.ParameterDefault
			if len(def) == 0 {
				def = json.RawMessage("null")
			}
			filled = append(filled, RawValue(def))
		}
		inputs = filled
	}
	if c.opts.ValidateInputs {
		for i, p := range ep.Parameters {
			if i >= len(inputs) {
				break
			}
			if err := c.validateInput(p, inputs[i]); err != nil {
				return nil, err
			}
		}
	}
	return inputs, nil
}

// validateInput checks a value input against the parameter's JSON schema.
// File inputs and parameters without a usable schema are not checked.
func (c *Client) validateInput(p types.APIData, in Input) error {
	if in.kind != inputValue || len(p.Type.Schema) == 0 {
		return nil
	}
	doc, err := json.Marshal(in.value)
	if err != nil {
		return newError(KindInputValidation, p.Name(), "value is not JSON-encodable", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(p.Type.Schema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		c.log.Debug().Str("parameter", p.Name()).Err(err).Msg("schema not usable, skipping validation")
		return nil
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return newError(KindInputValidation, p.Name(), strings.Join(details, "; "), nil)
}
