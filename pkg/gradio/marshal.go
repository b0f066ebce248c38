package gradio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"gradio/internal/common/fsutil"
	"gradio/pkg/types"
)

// uploadJob is one file leaf collected in depth-first order.
type uploadJob struct {
	in     Input
	result json.RawMessage
}

// marshalInputs uploads every file leaf and returns a same-shaped tree of JSON
// values, one per top-level input.
func (c *Client) marshalInputs(ctx context.Context, inputs []Input) ([]json.RawMessage, error) {
	var jobs []*uploadJob
	var collect func(in Input)
	collect = func(in Input) {
		switch in.kind {
		case inputFilePath, inputFileBytes:
			jobs = append(jobs, &uploadJob{in: in})
		case inputList:
			for _, it := range in.items {
				collect(it)
			}
		}
	}
	for _, in := range inputs {
		collect(in)
	}

	if len(jobs) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.opts.UploadConcurrency)
		for _, j := range jobs {
			j := j
			g.Go(func() error {
				env, err := c.uploadInput(gctx, j.in)
				if err != nil {
					return err
				}
				j.result = env
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
	}

	next := 0
	var build func(in Input) (json.RawMessage, error)
	build = func(in Input) (json.RawMessage, error) {
		switch in.kind {
		case inputFilePath, inputFileBytes:
			r := jobs[next].result
			next++
			return r, nil
		case inputList:
			parts := make([]json.RawMessage, len(in.items))
			for i, it := range in.items {
				p, err := build(it)
				if err != nil {
					return nil, err
				}
				parts[i] = p
			}
			return json.Marshal(parts)
		default:
			if raw, ok := in.value.(json.RawMessage); ok && raw != nil {
				if !json.Valid(raw) {
					return nil, newError(KindInputValidation, "marshal", "invalid raw JSON value", nil)
				}
				return raw, nil
			}
			b, err := json.Marshal(in.value)
			if err != nil {
				return nil, newError(KindInputValidation, "marshal", "value is not JSON-encodable", err)
			}
			return b, nil
		}
	}
	out := make([]json.RawMessage, len(inputs))
	for i, in := range inputs {
		v, err := build(in)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// uploadInput uploads one file leaf and returns its file envelope.
func (c *Client) uploadInput(ctx context.Context, in Input) (json.RawMessage, error) {
	name, data := in.name, in.data
	if in.kind == inputFilePath {
		p, err := fsutil.ExpandHome(in.path)
		if err != nil {
			return nil, newError(KindUpload, "upload", "read "+in.path, err)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, newError(KindUpload, "upload", "read "+in.path, err)
		}
		name, data = filepath.Base(p), b
	}
	if name == "" {
		name = "file"
	}
	serverPath, err := c.upload(ctx, name, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.NewFileEnvelope(serverPath, name))
}

// upload posts one file to the upload endpoint and returns the server path.
func (c *Client) upload(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := c.do(ctx, "upload", http.MethodPost, c.apiRoot+"/upload", &body, mw.FormDataContentType())
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", newError(KindUpload, "upload", name, err)
	}
	defer resp.Body.Close()
	var paths []string
	if err := decodeBody(resp.Body, &paths); err != nil {
		return "", newError(KindUpload, "upload", "malformed upload response", err)
	}
	if len(paths) != 1 {
		return "", newError(KindUpload, "upload", fmt.Sprintf("expected 1 server path, got %d", len(paths)), errors.New("unexpected path count"))
	}
	uploadBytesTotal.Add(float64(len(data)))
	c.events.Publish(Event{Name: EventUploadDone, APIRoot: c.apiRoot, Fields: map[string]any{"name": name, "bytes": len(data)}})
	return paths[0], nil
}
