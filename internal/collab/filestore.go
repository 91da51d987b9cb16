// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package collab

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/config"
)

// ErrUploadFailure is returned when the file store rejects or cannot accept
// an upload.
var ErrUploadFailure = errors.New("image upload failed")

// FileStore uploads chat images to the platform file service and returns
// their public URLs.
type FileStore struct {
	baseURL  string
	upstream *upstream
}

func NewFileStore(cfg *config.CollabConfig) *FileStore {
	return &FileStore{
		baseURL:  cfg.FileStoreURL,
		upstream: newUpstream("filestore", cfg.Timeout),
	}
}

// UploadImage streams one image as a multipart upload and returns the stored
// URL. Size limits are enforced at the HTTP layer before the body reaches
// this client.
func (f *FileStore) UploadImage(ctx context.Context, filename string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, f.baseURL+"/api/v1/files", &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := f.upstream.do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailure, err)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.URL == "" {
		return "", ErrUploadFailure
	}
	return result.URL, nil
}
