// Package storage uploads files to the platform's object storage endpoints.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"matchday/internal/collection"
	"matchday/internal/models"
)

// MaxAvatarBytes caps avatar uploads client-side at 2MiB, matching the
// platform limit.
const MaxAvatarBytes = 2 * 1024 * 1024

// Client uploads against a platform base URL with the session's token.
type Client struct {
	baseURL string
	http    *http.Client
	token   collection.TokenProvider
}

// NewClient creates a storage client. token may be nil for unauthenticated
// use, though every upload endpoint requires a session.
func NewClient(baseURL string, token collection.TokenProvider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
}

// UploadAvatar validates and uploads an avatar image, returning the profile
// as patched by the platform.
func (c *Client) UploadAvatar(ctx context.Context, filename, contentType string, content []byte) (*models.Profile, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, &collection.RequestError{Message: "Only image files can be used as an avatar."}
	}
	if len(content) == 0 {
		return nil, &collection.RequestError{Message: "The selected file is empty."}
	}
	if len(content) > MaxAvatarBytes {
		return nil, &collection.RequestError{Message: "Avatar images must be 2MB or smaller."}
	}

	buf := bytes.NewBuffer(nil)
	writer := multipart.NewWriter(buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/storage/avatars", buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &collection.RequestError{Message: "Could not reach the server. Check your connection and try again."}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &collection.RequestError{Status: resp.StatusCode, Message: "The server response could not be read."}
	}
	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
			return nil, &collection.RequestError{Status: resp.StatusCode, Message: payload.Error}
		}
		return nil, &collection.RequestError{Status: resp.StatusCode, Message: "The avatar could not be uploaded."}
	}

	var result struct {
		AvatarURL string         `json:"avatar_url"`
		Profile   models.Profile `json:"profile"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &collection.RequestError{Status: resp.StatusCode, Message: "The server returned an unexpected response."}
	}
	return &result.Profile, nil
}
