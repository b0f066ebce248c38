package gradio

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure. Every error returned by this package
// that is not a bare context error carries exactly one Kind.
type Kind int

const (
	KindResolution Kind = iota + 1
	KindAuthentication
	KindConfigFetch
	KindCapabilityFetch
	KindSpaceUnavailable
	KindUpload
	KindRouteNotFound
	KindParameterCountMismatch
	KindInputValidation
	KindQueueJoin
	KindStream
	KindProtocol
	KindRemoteExecution
	KindOutputShapeMismatch
	KindDownload
)

var kindNames = map[Kind]string{
	KindResolution:             "resolution",
	KindAuthentication:         "authentication",
	KindConfigFetch:            "config fetch",
	KindCapabilityFetch:        "capability fetch",
	KindSpaceUnavailable:       "space unavailable",
	KindUpload:                 "upload",
	KindRouteNotFound:          "route not found",
	KindParameterCountMismatch: "parameter count mismatch",
	KindInputValidation:        "input validation",
	KindQueueJoin:              "queue join",
	KindStream:                 "stream",
	KindProtocol:               "protocol",
	KindRemoteExecution:        "remote execution",
	KindOutputShapeMismatch:    "output shape mismatch",
	KindDownload:               "download",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel causes wrapped by SpaceUnavailable errors.
var (
	ErrSpacePaused  = errors.New("space is paused by its author")
	ErrWakeTimeout  = errors.New("space is taking too long to start")
	ErrUnknownStage = errors.New("unrecognized runtime stage")
	// ErrStreamClosed is wrapped by the Stream error returned from Next after
	// the prediction was cancelled or closed locally.
	ErrStreamClosed = errors.New("stream closed")
)

// Error is the single error type returned by the client.
type Error struct {
	Kind    Kind
	Op      string // e.g. "config", "queue/join"
	Message string
	// Raw holds the offending payload for protocol errors.
	Raw []byte
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

func newError(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}

func protocolError(op, msg string, raw []byte, cause error) *Error {
	return &Error{Kind: KindProtocol, Op: op, Message: msg, Raw: append([]byte(nil), raw...), Err: cause}
}

// IsKind reports whether err carries kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of err, or 0 when err is not a client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRouteNotFound reports whether err indicates an unknown route name.
func IsRouteNotFound(err error) bool { return IsKind(err, KindRouteNotFound) }

// IsSpaceUnavailable reports whether the space could not be woken up.
func IsSpaceUnavailable(err error) bool { return IsKind(err, KindSpaceUnavailable) }

// IsRemoteExecution reports whether the server completed the job with a failure.
func IsRemoteExecution(err error) bool { return IsKind(err, KindRemoteExecution) }

// IsProtocol reports whether the stream carried a malformed message or ended
// without a terminal one.
func IsProtocol(err error) bool { return IsKind(err, KindProtocol) }

// IsOutputShapeMismatch reports whether an output was narrowed to the wrong variant.
func IsOutputShapeMismatch(err error) bool { return IsKind(err, KindOutputShapeMismatch) }
