package gradio

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"gradio/internal/common/fsutil"
	"gradio/pkg/types"
)

// SuggestExtension guesses a file extension, without the dot, from the
// original name, the server path, the URL or the mime type. It falls back
// to "bin".
func SuggestExtension(f types.FileData) string {
	candidates := []string{f.OrigName, f.Path}
	if u, err := url.Parse(f.URL); err == nil && f.URL != "" {
		candidates = append(candidates, u.Path)
	}
	for _, c := range candidates {
		if ext := strings.TrimPrefix(path.Ext(c), "."); ext != "" {
			return strings.ToLower(ext)
		}
	}
	if f.MimeType != "" {
		if exts, err := mime.ExtensionsByType(f.MimeType); err == nil && len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}
	return "bin"
}

// openFile starts a download of f and returns the body.
func (c *Client) openFile(ctx context.Context, f types.FileData) (io.ReadCloser, error) {
	if f.URL == "" {
		return nil, newError(KindDownload, "download", "file has no url", nil)
	}
	resp, err := c.do(ctx, "download", http.MethodGet, f.URL, nil, "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(KindDownload, "download", f.URL, err)
	}
	return resp.Body, nil
}

// Download fetches the bytes of a returned file with the client's
// credentials.
func (c *Client) Download(ctx context.Context, f types.FileData) ([]byte, error) {
	body, err := c.openFile(ctx, f)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, newError(KindDownload, "download", f.URL, err)
	}
	return b, nil
}

// SaveFile downloads f to dst, creating parent directories, and returns the
// number of bytes written.
func (c *Client) SaveFile(ctx context.Context, f types.FileData, dst string) (int64, error) {
	body, err := c.openFile(ctx, f)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	n, err := fsutil.WriteFile(dst, body)
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, newError(KindDownload, "save", dst, err)
	}
	return n, nil
}
