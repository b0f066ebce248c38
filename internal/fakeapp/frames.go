package fakeapp

import (
	"encoding/json"
	"time"
)

// Job is one queued call as the fake app received it.
type Job struct {
	FnIndex     int64
	Data        []json.RawMessage
	SessionHash string
	EventID     string
	// APIRoot is the root the job was submitted against, prefix included.
	APIRoot string
	// File returns the content of an uploaded or added file.
	File func(path string) ([]byte, bool)
}

// Frame is one event written to the queue stream.
type Frame struct {
	// Msg is encoded as the event data. event_id is filled in from the job
	// unless Msg sets it or NoEventID is true.
	Msg       map[string]any
	NoEventID bool
	// Raw is written verbatim as the data line when set.
	Raw string
	// Comment writes an SSE comment line instead of an event.
	Comment string
	// Delay is slept before the frame is written.
	Delay time.Duration
	// Hold blocks the stream until the client goes away or the app shuts down.
	Hold bool
}

// Handler produces the stream frames for a job.
type Handler func(Job) []Frame

// Estimation reports the job's queue position.
func Estimation(rank, size int64) Frame {
	return Frame{Msg: map[string]any{"msg": "estimation", "rank": rank, "queue_size": size, "rank_eta": 1.5}}
}

// Starts reports that processing began.
func Starts() Frame {
	return Frame{Msg: map[string]any{"msg": "process_starts", "eta": 2.0}}
}

// Progress reports one progress unit.
func Progress(index, length int64, desc string) Frame {
	return Frame{Msg: map[string]any{"msg": "progress", "progress_data": []map[string]any{
		{"index": index, "length": length, "unit": "steps", "progress": nil, "desc": desc},
	}}}
}

// Log emits a log line from the app.
func Log(level, text string) Frame {
	return Frame{Msg: map[string]any{"msg": "log", "log": text, "level": level}}
}

// Heartbeat is the keep-alive message; it carries no event id.
func Heartbeat() Frame {
	return Frame{Msg: map[string]any{"msg": "heartbeat"}, NoEventID: true}
}

// Generating streams an intermediate output.
func Generating(data ...any) Frame {
	return Frame{Msg: map[string]any{"msg": "process_generating", "success": true,
		"output": map[string]any{"data": data, "is_generating": true}}}
}

// Completed finishes the job successfully with data.
func Completed(data ...any) Frame {
	return Frame{Msg: map[string]any{"msg": "process_completed", "success": true,
		"output": map[string]any{"data": data, "duration": 0.01, "is_generating": false}}}
}

// Failed finishes the job with a server-side error. An empty message sends
// a null error.
func Failed(message string) Frame {
	var errVal any
	if message != "" {
		errVal = message
	}
	return Frame{Msg: map[string]any{"msg": "process_completed", "success": false,
		"output": map[string]any{"error": errVal}}}
}

// UnexpectedError is the server's out-of-band failure message.
func UnexpectedError(message string) Frame {
	return Frame{Msg: map[string]any{"msg": "unexpected_error", "message": message}, NoEventID: true}
}

// CloseStream tells the client the session has nothing more to send.
func CloseStream() Frame {
	return Frame{Msg: map[string]any{"msg": "close_stream"}, NoEventID: true}
}

// ForEvent rewrites f to carry another job's event id.
func ForEvent(eventID string, f Frame) Frame {
	m := make(map[string]any, len(f.Msg)+1)
	for k, v := range f.Msg {
		m[k] = v
	}
	m["event_id"] = eventID
	f.Msg = m
	return f
}

// FileOutput builds a returned file envelope served by the app at path.
func FileOutput(baseURL, path, name string) map[string]any {
	return map[string]any{
		"path":      path,
		"url":       baseURL + "/file=" + path,
		"orig_name": name,
		"meta":      map[string]any{"_type": "gradio.FileData"},
	}
}
