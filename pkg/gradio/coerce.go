package gradio

import (
	"fmt"
	"strconv"
	"strings"

	"gradio/pkg/types"
)

// ArgsFromStrings converts command-line style strings into inputs using each
// parameter's declared type: filepath parameters become file inputs, numbers
// and booleans are parsed, strings pass through. Extra strings are ignored.
func ArgsFromStrings(ep types.EndpointInfo, args []string) ([]Input, error) {
	if len(args) < len(ep.Parameters) {
		return nil, newError(KindParameterCountMismatch, "args",
			fmt.Sprintf("expected %d arguments, got %d", len(ep.Parameters), len(args)), nil)
	}
	out := make([]Input, len(ep.Parameters))
	for i, p := range ep.Parameters {
		in, err := coerceArg(p, args[i])
		if err != nil {
			return nil, err
		}
		out[i] = in
	}
	return out, nil
}

func coerceArg(p types.APIData, s string) (Input, error) {
	if p.PythonType.Type == "filepath" {
		return File(s), nil
	}
	switch p.Type.Type {
	case "string":
		return Value(s), nil
	case "number", "integer":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Value(n), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Input{}, newError(KindInputValidation, p.Name(), fmt.Sprintf("%q is not a number", s), err)
		}
		return Value(f), nil
	case "boolean":
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return Input{}, newError(KindInputValidation, p.Name(), fmt.Sprintf("%q is not a boolean", s), err)
		}
		return Value(b), nil
	default:
		return Input{}, newError(KindInputValidation, p.Name(),
			fmt.Sprintf("cannot convert string to %q", p.Type.Type), nil)
	}
}
