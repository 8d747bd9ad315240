package storage

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/Dosada05/mob-esports/apiclient"
)

// APIUploader stores files through the REST upload endpoint. The API picks
// the final location, so the key only supplies the file name.
type APIUploader struct {
	uploads *apiclient.UploadResource
}

func NewAPIUploader(client *apiclient.Client) *APIUploader {
	return &APIUploader{uploads: client.Uploads}
}

func (u *APIUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	location, err := u.uploads.Upload(ctx, path.Base(key), contentType, reader)
	if err != nil {
		return nil, err
	}
	storedKey := location
	if parsed, err := url.Parse(location); err == nil && parsed.Path != "" {
		storedKey = strings.TrimPrefix(parsed.Path, "/")
	}
	return &UploadResult{Key: storedKey, Location: location}, nil
}

func (u *APIUploader) Delete(context.Context, string) error {
	return ErrDeleteUnsupported
}

// GetPublicURL returns key unchanged when it is already absolute; the API
// does not expose a way to derive a URL from a bare key.
func (u *APIUploader) GetPublicURL(key string) string {
	if parsed, err := url.Parse(key); err == nil && parsed.IsAbs() {
		return key
	}
	return ""
}
