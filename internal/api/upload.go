package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// MaxUploadBytes is the client-side size limit for photo uploads.
const MaxUploadBytes = 10 * 1024 * 1024

var (
	// ErrTooLarge is returned before any network call when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("api: file must be under 10MB")

	// ErrInvalidLink is returned when a login token cannot be exchanged.
	ErrInvalidLink = errors.New("api: invalid or expired link")
)

// Upload posts a multipart form with the file under field and the extra
// string fields. Uploads are never queued.
func (g *Gateway) Upload(ctx context.Context, endpoint, field, filename string, r io.Reader, fields map[string]string) (*Result, error) {
	token, ok := g.creds.Token()
	if !ok {
		return nil, ErrUnauthorized
	}
	if !g.online() {
		return nil, ErrOffline
	}

	content, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("api: reading %s: %w", filename, err)
	}
	if len(content) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("api: creating form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("api: writing form file: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("api: writing field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("api: closing form: %w", err)
	}

	resp, err := g.send(ctx, http.MethodPost, endpoint, token, mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("api: uploading %s: %w", filename, err)
	}
	return g.handle(resp)
}

// Exchange trades a one-time login token for a JWT. It needs no credential.
func (g *Gateway) Exchange(ctx context.Context, loginToken string, out any) error {
	payload, err := json.Marshal(map[string]string{"token": loginToken})
	if err != nil {
		return fmt.Errorf("api: encoding token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL("/auth"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: exchanging token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrInvalidLink
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding token exchange: %w", err)
	}
	return nil
}
