// Package external provides HTTP clients for the two read-only collaborator
// services the interview orchestrator depends on but does not own: resume
// storage and the job-role catalogue. Neither is an AI vendor, so neither is
// wrapped by a resilience.Policy — a 404 here surfaces as apperrors.NotFound
// from interview.Service.Start, and any other failure is returned wrapped.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Option is a functional option for configuring a client.
type Option func(*client)

// WithHTTPClient overrides the http.Client used to call the collaborator.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		cl.httpClient = c
	}
}

type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newClient(baseURL, apiKey string, timeout time.Duration, opts []Option) *client {
	cl := &client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("external: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("external: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("external: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("external: decode %s response: %w", path, err)
	}
	return nil
}

// errNotFound is returned by getJSON on a 404 and surfaced to callers so
// interview.Service can translate it into apperrors.NotFound.
var errNotFound = fmt.Errorf("external: not found")

// ErrNotFound reports whether err indicates the requested resource does not
// exist upstream.
func ErrNotFound(err error) bool {
	return err == errNotFound
}

// ResumeClient resolves resume text from the resume storage service.
type ResumeClient struct{ c *client }

// NewResumeClient constructs a ResumeClient. apiKey and baseURL come from
// internal/config's ExternalServiceConfig for the resume collaborator.
func NewResumeClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *ResumeClient {
	return &ResumeClient{c: newClient(baseURL, apiKey, timeout, opts)}
}

type resumeResponse struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// ResumeText fetches the parsed resume text for resumeID, scoped to userID
// so the resume collaborator can enforce its own ownership check.
func (c *ResumeClient) ResumeText(ctx context.Context, userID, resumeID string) (string, error) {
	var out resumeResponse
	path := fmt.Sprintf("/resumes/%s?userId=%s", resumeID, userID)
	if err := c.c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// JobRoleClient resolves job-role titles from the job-role catalogue.
type JobRoleClient struct{ c *client }

// NewJobRoleClient constructs a JobRoleClient.
func NewJobRoleClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *JobRoleClient {
	return &JobRoleClient{c: newClient(baseURL, apiKey, timeout, opts)}
}

type jobRoleResponse struct {
	Title string `json:"title"`
}

// RoleTitle fetches the display title for jobRoleID.
func (c *JobRoleClient) RoleTitle(ctx context.Context, jobRoleID string) (string, error) {
	var out jobRoleResponse
	if err := c.c.getJSON(ctx, "/job-roles/"+jobRoleID, &out); err != nil {
		return "", err
	}
	return out.Title, nil
}
