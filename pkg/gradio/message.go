package gradio

import (
	"encoding/json"

	"gradio/pkg/types"
)

// MessageKind tags a queue stream message.
type MessageKind int

const (
	MessageUnrecognized MessageKind = iota
	MessageOpen
	MessageEstimation
	MessageProcessStarts
	MessageProgress
	MessageLog
	MessageHeartbeat
	MessageGenerating
	MessageCompleted
	MessageFailed
	MessageUnexpectedError
	// messageCloseStream is consumed by the reader and never surfaced.
	messageCloseStream
)

var messageKindNames = map[MessageKind]string{
	MessageUnrecognized:    "unrecognized",
	MessageOpen:            "open",
	MessageEstimation:      "estimation",
	MessageProcessStarts:   "process_starts",
	MessageProgress:        "progress",
	MessageLog:             "log",
	MessageHeartbeat:       "heartbeat",
	MessageGenerating:      "process_generating",
	MessageCompleted:       "process_completed",
	MessageFailed:          "process_failed",
	MessageUnexpectedError: "unexpected_error",
	messageCloseStream:     "close_stream",
}

func (k MessageKind) String() string {
	if s, ok := messageKindNames[k]; ok {
		return s
	}
	return "unrecognized"
}

// Terminal reports whether no further message follows for the same event.
func (k MessageKind) Terminal() bool {
	return k == MessageCompleted || k == MessageFailed || k == MessageUnexpectedError
}

// Message is one decoded queue stream message. Only the fields relevant to
// Kind are set.
type Message struct {
	Kind    MessageKind
	EventID string

	// Estimation
	Rank      *int64
	QueueSize *int64
	RankETA   *float64
	// ProcessStarts
	ETA *float64
	// Progress
	Progress []types.ProgressUnit
	// Log
	Log   string
	Level string
	// Generating and Completed
	Outputs  []Output
	Duration *float64
	// Failed and UnexpectedError. Empty when the server sent no text.
	Error string

	// Raw is the undecoded payload.
	Raw json.RawMessage
}

// decodeMessage classifies one stream payload. The msg tag wins when present;
// untagged payloads are told apart by the fields they carry.
func decodeMessage(data []byte) (Message, error) {
	var qm types.QueueMessage
	if err := json.Unmarshal(data, &qm); err != nil {
		return Message{}, protocolError("queue/data", "malformed stream message", data, err)
	}
	m := Message{Raw: append(json.RawMessage(nil), data...)}
	if qm.EventID != nil {
		m.EventID = *qm.EventID
	}

	tag := ""
	if qm.Msg != nil {
		tag = *qm.Msg
	} else {
		switch {
		case len(qm.Output) > 0 || qm.Success != nil:
			tag = "process_completed"
		case qm.Rank != nil || qm.QueueSize != nil:
			tag = "estimation"
		case qm.ProgressData != nil:
			tag = "progress"
		case qm.ETA != nil && qm.EventID != nil:
			tag = "process_starts"
		}
	}

	switch tag {
	case "estimation":
		m.Kind = MessageEstimation
		m.Rank, m.QueueSize, m.RankETA = qm.Rank, qm.QueueSize, qm.RankETA
	case "process_starts":
		m.Kind = MessageProcessStarts
		m.ETA = qm.ETA
	case "progress":
		m.Kind = MessageProgress
		m.Progress = qm.ProgressData
	case "log":
		m.Kind = MessageLog
		if qm.Log != nil {
			m.Log = *qm.Log
		}
		if qm.Level != nil {
			m.Level = *qm.Level
		}
	case "heartbeat":
		m.Kind = MessageHeartbeat
	case "close_stream":
		m.Kind = messageCloseStream
	case "unexpected_error":
		m.Kind = MessageUnexpectedError
		if qm.Message != nil {
			m.Error = *qm.Message
		}
	case "process_generating", "process_completed":
		out, err := decodeQueueOutput(qm.Output, data)
		if err != nil {
			return Message{}, err
		}
		failed := (qm.Success != nil && !*qm.Success) || out.Error != nil
		if tag == "process_completed" && failed {
			m.Kind = MessageFailed
			switch {
			case out.Error != nil:
				m.Error = *out.Error
			case qm.Message != nil:
				m.Error = *qm.Message
			}
			return m, nil
		}
		m.Kind = MessageCompleted
		if tag == "process_generating" {
			m.Kind = MessageGenerating
		}
		m.Duration = out.Duration
		m.Outputs = make([]Output, len(out.Data))
		for i, d := range out.Data {
			m.Outputs[i] = decodeOutput(d)
		}
	default:
		m.Kind = MessageUnrecognized
	}
	return m, nil
}

func decodeQueueOutput(raw json.RawMessage, payload []byte) (types.QueueOutput, error) {
	var out types.QueueOutput
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, protocolError("queue/data", "malformed output", payload, err)
	}
	return out, nil
}
