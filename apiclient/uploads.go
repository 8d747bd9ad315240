package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
)

// UploadField is the multipart field the upload endpoint reads.
const UploadField = "file"

type UploadResource struct {
	c *Client
}

type uploadResult struct {
	URL string `json:"url"`
}

// Upload posts content as a multipart form and returns the stored file's URL.
func (r *UploadResource) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadField, filepath.Base(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	var out uploadResult
	req := request{
		method:      http.MethodPost,
		path:        "/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	if err := r.c.do(ctx, req, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload response carried no url")
	}
	return out.URL, nil
}
