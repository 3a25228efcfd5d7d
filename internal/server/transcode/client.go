// Package transcode submits transcoding jobs to an external HTTP service.
package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/common"
)

// Job describes one transcoding request.
type Job struct {
	InputURI  string `json:"inputUri"`
	OutputURI string `json:"outputUri"`
	Template  string `json:"templateId,omitempty"`
}

type Client interface {
	// Submit starts job and returns the service's handle for it.
	Submit(ctx context.Context, job Job) (string, error)
}

type HTTPClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type submitResponse struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Submit POSTs job to <endpoint>/jobs. Transport failures and non-2xx
// replies are reported as common.ErrorUnavailable.
func (c *HTTPClient) Submit(ctx context.Context, job Job) (string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: transcoder returned %d: %s", common.ErrorUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: bad transcoder response: %v", common.ErrorUnavailable, err)
	}

	handle := out.Name
	if handle == "" {
		handle = out.ID
	}
	if handle == "" {
		return "", fmt.Errorf("%w: transcoder returned no job handle", common.ErrorUnavailable)
	}
	return handle, nil
}
