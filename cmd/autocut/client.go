package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autocut/internal/api"
	"autocut/internal/config"
)

// apiClient is a thin HTTP client for the daemon API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(cfg *config.Config) *apiClient {
	base := strings.TrimSpace(cfg.Paths.APIBind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: cfg.Paths.APIToken,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(method, path string, query url.Values, out any) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, endpoint, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) listJobs(statuses []string) (api.JobListResponse, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", status)
	}
	var out api.JobListResponse
	err := c.do(http.MethodGet, "/api/jobs", query, &out)
	return out, err
}

func (c *apiClient) getJob(id string) (api.JobView, error) {
	var out api.JobView
	err := c.do(http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *apiClient) cancelJob(id string) error {
	return c.do(http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, nil)
}

func (c *apiClient) removeJob(id string) error {
	return c.do(http.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil, nil)
}

func (c *apiClient) health() (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(http.MethodGet, "/api/health", nil, &out)
	return out, err
}
