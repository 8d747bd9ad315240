package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/mob-esports/storage"
)

const (
	maxUploadBytes  = 10 << 20
	uploadFormField = "file"
)

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type UploadHandler struct {
	uploader storage.FileUploader
	prefix   string
}

func NewUploadHandler(uploader storage.FileUploader, prefix string) *UploadHandler {
	if prefix == "" {
		prefix = "uploads"
	}
	return &UploadHandler{uploader: uploader, prefix: prefix}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content type required"))
		return
	}
	if !allowedUploadTypes[contentType] {
		badRequestResponse(w, r, fmt.Errorf("unsupported content type %q", contentType))
		return
	}

	key := storage.ObjectKey(h.prefix, header.Filename)
	res, err := h.uploader.Upload(r.Context(), key, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	slog.Info("file uploaded", slog.String("key", res.Key), slog.Int64("size", header.Size))

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"url": res.Location, "key": res.Key}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
