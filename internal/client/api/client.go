// Package api is a small HTTP client for the videofeed REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/common"
	"github.com/dmitrijs2005/videofeed/internal/server/models"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Error is a non-2xx answer from the server carrying its error envelope.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses to the package sentinels.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return ErrUnavailable
	}
	return nil
}

// MutationResult is returned by update and delete.
type MutationResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	RowsAffected int64  `json:"rowsAffected"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context) ([]models.Video, error) {
	var out []models.Video
	if err := c.do(ctx, http.MethodGet, "/api/videos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUploadIntent(ctx context.Context, caption, ext string) (*models.UploadIntent, error) {
	body := map[string]string{"caption": caption}
	if ext != "" {
		body["fileExtension"] = ext
	}
	var out models.UploadIntent
	if err := c.do(ctx, http.MethodPost, "/api/videos/signed-url", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends a raw field map, e.g. {"caption": "x", "status": nil}.
func (c *Client) Update(ctx context.Context, id int64, fields map[string]any) (*MutationResult, error) {
	var out MutationResult
	if err := c.do(ctx, http.MethodPut, videoPath(id), fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCaption(ctx context.Context, id int64, caption string) (*MutationResult, error) {
	return c.Update(ctx, id, map[string]any{"caption": caption})
}

func (c *Client) Delete(ctx context.Context, id int64) (*MutationResult, error) {
	var out MutationResult
	if err := c.do(ctx, http.MethodDelete, videoPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Transcode(ctx context.Context, id int64) (*models.Video, error) {
	var out models.Video
	if err := c.do(ctx, http.MethodPost, videoPath(id)+"/transcode", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges the admin password for a bearer token.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"password": password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func videoPath(id int64) string {
	return "/api/videos/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var env struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env) == nil {
			apiErr.Message = env.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
