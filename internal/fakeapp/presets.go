package fakeapp

import (
	"encoding/json"
	"fmt"

	"gradio/pkg/types"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func param(label, pythonType, jsonType, component string) types.APIData {
	schema, _ := json.Marshal(map[string]string{"type": jsonType})
	return types.APIData{
		Label:         strPtr(label),
		ParameterName: strPtr(label),
		Component:     component,
		Type:          types.APIDataType{Type: jsonType, Schema: schema},
		PythonType:    types.PythonType{Type: pythonType},
	}
}

// Demo returns an app with a handful of routes exercising the protocol:
//
//   - /predict (fn 0): greets its string input.
//   - an unnamed route at position 1.
//   - /file_info (no id, position 2): reports an uploaded file's size and returns it.
//   - /add (id 9): sums two numbers, the second defaulting to 1.
//   - /stream (no id, position 4): emits generating updates before completing.
//   - /fail (no id, position 5): completes with a server-side error.
func Demo() Options {
	unset := types.UnsetDependencyID
	deps := []types.Dependency{
		{APIName: "predict", ID: 0},
		{APIName: "", ID: unset},
		{APIName: "file_info", ID: unset},
		{APIName: "add", ID: 9},
		{APIName: "stream", ID: unset},
		{APIName: "fail", ID: unset},
	}
	b := param("b", "float", "number", "Number")
	b.ParameterHasDefault = boolPtr(true)
	b.ParameterDefault = json.RawMessage("1")
	audio := param("audio", "filepath", "object", "Audio")
	audio.Type.Schema = nil

	info := types.APIInfo{
		NamedEndpoints: map[string]types.EndpointInfo{
			"/predict":   {Parameters: []types.APIData{param("name", "str", "string", "Textbox")}, Returns: []types.APIData{param("greeting", "str", "string", "Textbox")}},
			"/file_info": {Parameters: []types.APIData{audio}, Returns: []types.APIData{param("size", "float", "number", "Number"), param("copy", "filepath", "object", "File")}},
			"/add":       {Parameters: []types.APIData{param("a", "float", "number", "Number"), b}, Returns: []types.APIData{param("sum", "float", "number", "Number")}},
			"/stream":    {Parameters: []types.APIData{param("text", "str", "string", "Textbox")}, Returns: []types.APIData{param("output", "str", "string", "Textbox")}},
			"/fail":      {},
		},
		UnnamedEndpoints: map[string]types.EndpointInfo{},
	}

	return Options{
		Config: types.AppConfig{
			Protocol:     "sse_v3",
			Version:      "4.44.1",
			Dependencies: deps,
			EnableQueue:  boolPtr(true),
			Title:        "demo",
		},
		Info: info,
		Handlers: map[int64]Handler{
			0: greet,
			2: fileInfo,
			9: add,
			4: stream,
			5: func(Job) []Frame { return []Frame{Starts(), Failed("boom")} },
		},
	}
}

func greet(j Job) []Frame {
	var name string
	if len(j.Data) > 0 {
		_ = json.Unmarshal(j.Data[0], &name)
	}
	return []Frame{Estimation(0, 1), Starts(), Completed("Hello " + name + "!!")}
}

func fileInfo(j Job) []Frame {
	var fd types.FileData
	if len(j.Data) == 0 || json.Unmarshal(j.Data[0], &fd) != nil {
		return []Frame{Failed("expected a file")}
	}
	data, ok := j.File(fd.Path)
	if !ok {
		return []Frame{Failed(fmt.Sprintf("unknown file %s", fd.Path))}
	}
	return []Frame{Starts(), Completed(len(data), FileOutput(j.APIRoot, fd.Path, fd.OrigName))}
}

func add(j Job) []Frame {
	var a, b float64
	if len(j.Data) != 2 || json.Unmarshal(j.Data[0], &a) != nil || json.Unmarshal(j.Data[1], &b) != nil {
		return []Frame{Failed("expected two numbers")}
	}
	return []Frame{Starts(), Completed(a + b)}
}

func stream(j Job) []Frame {
	var text string
	if len(j.Data) > 0 {
		_ = json.Unmarshal(j.Data[0], &text)
	}
	frames := []Frame{Starts()}
	for i := 1; i < len(text); i++ {
		frames = append(frames, Generating(text[:i]))
	}
	return append(frames, Completed(text))
}
