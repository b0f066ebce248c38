package types

import "encoding/json"

// JoinRequest is posted to queue/join.
type JoinRequest struct {
	FnIndex     int64             `json:"fn_index"`
	Data        []json.RawMessage `json:"data"`
	SessionHash string            `json:"session_hash"`
	TriggerID   *int64            `json:"trigger_id,omitempty"`
}

// JoinResponse is the success body of queue/join.
type JoinResponse struct {
	EventID string `json:"event_id"`
}

// CancelRequest is posted to cancel.
type CancelRequest struct {
	EventID     string `json:"event_id"`
	SessionHash string `json:"session_hash"`
	FnIndex     int64  `json:"fn_index"`
}

// ResetRequest is posted to reset.
type ResetRequest struct {
	EventID string `json:"event_id"`
}

// QueueMessage is the loose wire shape of one queue/data message. Every field
// is optional; which ones are present decides the message kind.
type QueueMessage struct {
	Msg          *string         `json:"msg,omitempty"`
	EventID      *string         `json:"event_id,omitempty"`
	Rank         *int64          `json:"rank,omitempty"`
	QueueSize    *int64          `json:"queue_size,omitempty"`
	RankETA      *float64        `json:"rank_eta,omitempty"`
	ETA          *float64        `json:"eta,omitempty"`
	ProgressData []ProgressUnit  `json:"progress_data,omitempty"`
	Log          *string         `json:"log,omitempty"`
	Level        *string         `json:"level,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	Success      *bool           `json:"success,omitempty"`
	Message      *string         `json:"message,omitempty"`
}

// ProgressUnit is one progress tuple of a progress message.
type ProgressUnit struct {
	Index    int64    `json:"index"`
	Length   *int64   `json:"length,omitempty"`
	Unit     string   `json:"unit"`
	Progress *float64 `json:"progress,omitempty"`
	Desc     *string  `json:"desc,omitempty"`
}

// QueueOutput is the output object of a completed or generating message.
type QueueOutput struct {
	Data         []json.RawMessage `json:"data,omitempty"`
	Duration     *float64          `json:"duration,omitempty"`
	IsGenerating *bool             `json:"is_generating,omitempty"`
	Error        *string           `json:"error,omitempty"`
}

// ErrorResponse is the JSON error body the fake app writes.
type ErrorResponse struct {
	// example: route not found
	Error string `json:"error" example:"route not found"`
	// example: 404
	Code int `json:"code" example:"404"`
}
