// Package facerec talks to the external face detection and registration service.
package facerec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRemote wraps non-2xx responses from the service.
var ErrRemote = errors.New("facerec: remote error")

// Box is the detected face bounding box in image pixels.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectResult is the response of /detect_face.
type DetectResult struct {
	Detected bool `json:"detected"`
	Box      *Box `json:"box,omitempty"`
}

// Registration is the payload of /register-face. Images are base64 data URLs.
type Registration struct {
	Images       []string `json:"images"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	UniqueNumber string   `json:"uniqueNumber"`
	Role         string   `json:"role"`
}

// Client calls the face recognition service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client. A zero timeout falls back to 15s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Detect asks the service whether image contains a face.
func (c *Client) Detect(ctx context.Context, image, name string) (*DetectResult, error) {
	var out DetectResult
	payload := map[string]string{"image": image, "name": name}
	if err := c.post(ctx, "/detect_face", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register enrolls the face images for a user.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.post(ctx, "/register-face", reg, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrRemote, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
