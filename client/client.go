// client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contexter/shared/types"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// APIError is a non-success response from the service
type APIError struct {
	Status  int
	Type    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Type, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode, Type: "UNKNOWN", Message: resp.Status}
		var e types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Type != "" {
			apiErr.Type, apiErr.Message, apiErr.Details = e.Type, e.Message, e.Details
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Health(ctx context.Context) error {
	var res types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &res); err != nil {
		return err
	}
	if res.Status != "healthy" {
		return fmt.Errorf("service reports %q", res.Status)
	}
	return nil
}

// Container operations
func (c *Client) StoreContainer(ctx context.Context, format, content string) (*types.Container, error) {
	var res types.Container
	err := c.do(ctx, http.MethodPost, "/api/containers",
		types.StoreContainerRequest{Format: format, Content: content}, http.StatusCreated, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetContainer fetches a container rendered in format, or in its stored
// format when format is empty
func (c *Client) GetContainer(ctx context.Context, id, format string) (*types.Container, error) {
	path := "/api/containers/" + url.PathEscape(id)
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	var res types.Container
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListContainers(ctx context.Context) ([]types.Container, error) {
	var res []types.Container
	if err := c.do(ctx, http.MethodGet, "/api/containers", nil, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) DeleteContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/containers/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

func (c *Client) ApplyPatch(ctx context.Context, id, format, patch string) (*types.ApplyPatchResponse, error) {
	var res types.ApplyPatchResponse
	err := c.do(ctx, http.MethodPost, "/api/containers/"+url.PathEscape(id)+"/patches",
		types.ApplyPatchRequest{Format: format, Patch: patch}, http.StatusCreated, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Tool operations
func (c *Client) Sanitize(ctx context.Context, content string) (*types.SanitizeResponse, error) {
	var res types.SanitizeResponse
	err := c.do(ctx, http.MethodPost, "/api/sanitize", types.SanitizeRequest{Content: content}, http.StatusOK, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Diff(ctx context.Context, req types.DiffRequest) (*types.DiffResponse, error) {
	var res types.DiffResponse
	if err := c.do(ctx, http.MethodPost, "/api/diff", req, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Convert(ctx context.Context, from, to, content string) (string, error) {
	var res types.ConvertResponse
	err := c.do(ctx, http.MethodPost, "/api/convert",
		types.ConvertRequest{From: from, To: to, Content: content}, http.StatusOK, &res)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}
