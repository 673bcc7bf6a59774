/*
http.go - HTTP call-through clients for the collaborator services

Thin by contract: build the payload, forward it, pass errors through. Any
non-2xx status is surfaced as an error with the remote body's message when
one is present.
*/
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// HTTPFaceMatcher calls a remote face-recognition service.
type HTTPFaceMatcher struct {
	BaseURL string
	Client  *http.Client
}

// Match uploads the image as multipart form data and decodes the match
// result.
func (m *HTTPFaceMatcher) Match(ctx context.Context, filename string, image []byte) (*FaceMatchResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/upload_photo", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var result FaceMatchResult
	if err := m.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *HTTPFaceMatcher) do(req *http.Request, out interface{}) error {
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("face service: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, "face service", out)
}

// HTTPChatRelay calls a remote language-model API.
type HTTPChatRelay struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Relay forwards the message and optional context string and returns the
// model's reply verbatim.
func (r *HTTPChatRelay) Relay(ctx context.Context, message, contextText string) (*ChatReply, error) {
	payload, err := json.Marshal(map[string]string{
		"message": message,
		"context": contextText,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat service: %w", err)
	}
	defer resp.Body.Close()

	var reply ChatReply
	if err := decodeResponse(resp, "chat service", &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// decodeResponse passes remote errors through with their message when the
// body carries one.
func decodeResponse(resp *http.Response, service string, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var remote struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &remote) == nil && remote.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", service, remote.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s: status %d", service, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}
