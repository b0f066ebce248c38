package gradio

import "encoding/json"

type inputKind int

const (
	inputValue inputKind = iota
	inputFilePath
	inputFileBytes
	inputList
)

// Input is one prediction argument: a JSON value, a file (by path or by
// content) or a list of further inputs. The zero Input marshals as null.
type Input struct {
	kind  inputKind
	value any
	path  string
	name  string
	data  []byte
	items []Input
}

// Value wraps any JSON-marshalable value.
func Value(v any) Input { return Input{kind: inputValue, value: v} }

// RawValue wraps an already encoded JSON value.
func RawValue(raw json.RawMessage) Input { return Input{kind: inputValue, value: raw} }

// File reads the file at path and uploads it when the prediction is submitted.
func File(path string) Input { return Input{kind: inputFilePath, path: path} }

// FileBytes uploads data under name.
func FileBytes(name string, data []byte) Input {
	return Input{kind: inputFileBytes, name: name, data: data}
}

// List nests inputs; files anywhere inside are uploaded.
func List(items ...Input) Input { return Input{kind: inputList, items: items} }

// IsFile reports whether the input is uploaded before submission.
func (in Input) IsFile() bool { return in.kind == inputFilePath || in.kind == inputFileBytes }
