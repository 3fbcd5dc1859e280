// Package talkhead provides an avatarvideo.Provider backed by a RunPod-style
// async job API: submit a render request, receive a job ID, then poll for
// status until the job lands in a terminal state.
package talkhead

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/interviewsim/orchestrator/pkg/provider/avatarvideo"
)

const (
	defaultBaseURL = "https://api.talkhead.ai/v2"
)

// Option is a functional option for configuring the talkhead Provider.
type Option func(*Provider)

// WithBaseURL overrides the talkhead API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithHTTPClient overrides the http.Client used to call the talkhead API.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements avatarvideo.Provider backed by the talkhead render API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new talkhead Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("talkhead: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// createTalkRequest is the JSON body for POST /talks.
type createTalkRequest struct {
	AudioURL        string  `json:"audio_url"`
	PortraitURL     string  `json:"portrait_url"`
	PadAudioSeconds float64 `json:"pad_audio_seconds,omitempty"`
	Fluent          bool    `json:"fluent,omitempty"`
}

type createTalkResponse struct {
	JobID string `json:"job_id"`
}

// CreateTalk implements avatarvideo.Provider.
func (p *Provider) CreateTalk(ctx context.Context, req avatarvideo.CreateTalkRequest) (string, error) {
	if req.AudioURL == "" || req.PortraitURL == "" {
		return "", errors.New("talkhead: AudioURL and PortraitURL must not be empty")
	}

	payload, err := json.Marshal(createTalkRequest{
		AudioURL:        req.AudioURL,
		PortraitURL:     req.PortraitURL,
		PadAudioSeconds: req.PadAudioSeconds,
		Fluent:          req.Fluent,
	})
	if err != nil {
		return "", fmt.Errorf("talkhead: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/talks", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("talkhead: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("talkhead: create_talk HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("talkhead: create_talk: unexpected status %d", resp.StatusCode)
	}

	var out createTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("talkhead: decode create_talk response: %w", err)
	}
	if out.JobID == "" {
		return "", errors.New("talkhead: create_talk response missing job_id")
	}
	return out.JobID, nil
}

// pollTalkResponse is the JSON body from GET /talks/{id}.
type pollTalkResponse struct {
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PollTalk implements avatarvideo.Provider.
func (p *Provider) PollTalk(ctx context.Context, jobID string) (avatarvideo.PollResult, error) {
	if jobID == "" {
		return avatarvideo.PollResult{}, errors.New("talkhead: jobID must not be empty")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/talks/"+jobID, nil)
	if err != nil {
		return avatarvideo.PollResult{}, fmt.Errorf("talkhead: build poll request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return avatarvideo.PollResult{}, fmt.Errorf("talkhead: poll_talk HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return avatarvideo.PollResult{}, fmt.Errorf("talkhead: poll_talk: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var out pollTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return avatarvideo.PollResult{}, fmt.Errorf("talkhead: decode poll_talk response: %w", err)
	}

	return avatarvideo.PollResult{
		Status:    normalizeStatus(out.Status),
		ResultURL: out.ResultURL,
		Error:     out.Error,
	}, nil
}

// normalizeStatus maps talkhead's vendor-specific status vocabulary onto the
// provider package's four-state enum, defaulting anything unrecognized to
// processing so the caller keeps polling rather than stopping early.
func normalizeStatus(s string) avatarvideo.Status {
	switch s {
	case "queued", "pending", "in_queue":
		return avatarvideo.StatusQueued
	case "processing", "running", "in_progress":
		return avatarvideo.StatusProcessing
	case "done", "completed", "succeeded":
		return avatarvideo.StatusDone
	case "error", "failed", "cancelled", "timed_out":
		return avatarvideo.StatusError
	default:
		return avatarvideo.StatusProcessing
	}
}

var _ avatarvideo.Provider = (*Provider)(nil)
