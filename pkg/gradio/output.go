package gradio

import (
	"bytes"
	"encoding/json"

	"gradio/pkg/types"
)

// Output is one returned value: either a file descriptor or an arbitrary
// JSON value.
type Output struct {
	file  *types.FileData
	value json.RawMessage
}

// decodeOutput classifies one element of a completed output list. Objects
// carrying the file type marker are files, as are unmarked objects with a
// path and a url or original name. Everything else stays a value.
func decodeOutput(raw json.RawMessage) Output {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var fd types.FileData
		if err := json.Unmarshal(trimmed, &fd); err == nil && looksLikeFile(fd) {
			return Output{file: &fd}
		}
	}
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}
	return Output{value: append(json.RawMessage(nil), trimmed...)}
}

func looksLikeFile(fd types.FileData) bool {
	switch fd.Meta.Type {
	case types.FileDataType:
		return true
	case "":
		return fd.Path != "" && (fd.URL != "" || fd.OrigName != "")
	default:
		return false
	}
}

// IsFile reports whether the output is a file descriptor.
func (o Output) IsFile() bool { return o.file != nil }

// AsFile narrows the output to a file descriptor.
func (o Output) AsFile() (types.FileData, error) {
	if o.file == nil {
		return types.FileData{}, newError(KindOutputShapeMismatch, "output", "expected file, got value", nil)
	}
	return *o.file, nil
}

// AsValue narrows the output to its raw JSON value.
func (o Output) AsValue() (json.RawMessage, error) {
	if o.file != nil {
		return nil, newError(KindOutputShapeMismatch, "output", "expected value, got file", nil)
	}
	return o.value, nil
}

// Decode unmarshals a value output into v.
func (o Output) Decode(v any) error {
	raw, err := o.AsValue()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newError(KindOutputShapeMismatch, "output", "decode value", err)
	}
	return nil
}

// MarshalJSON writes the file descriptor or the value as received.
func (o Output) MarshalJSON() ([]byte, error) {
	if o.file != nil {
		return json.Marshal(o.file)
	}
	if o.value == nil {
		return []byte("null"), nil
	}
	return o.value, nil
}
