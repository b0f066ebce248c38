// Package gradio is a client for apps that expose their functions through a
// queue and an event stream. It is structured into small files by concern:
//
//   - client.go: Client, NewClient and accessors for the negotiated state.
//   - options.go: Options and package defaults; NewClient applies defaults.
//   - resolve.go: application reference classification and host lookup.
//   - space.go: wake-up polling of sleeping spaces.
//   - negotiate.go: config and api info fetch, prefix handling, protocol check.
//   - route.go: route name to function index mapping.
//   - input.go, marshal.go: prediction inputs, file uploads and JSON marshaling.
//   - params.go, coerce.go: declared defaults, schema validation, string args.
//   - prediction.go: Submit, Next, Cancel, Wait and Predict.
//   - sse.go, message.go: event stream framing and message classification.
//   - output.go, file.go: returned values and file downloads.
//   - errors.go: the Error type, kinds and helpers (IsRouteNotFound, IsKind).
//   - events.go, metrics.go: lifecycle events and Prometheus collectors.
//
// A Client is immutable once NewClient returns. Every Submit uses a fresh
// session identifier and its own stream, so predictions may run concurrently.
package gradio
