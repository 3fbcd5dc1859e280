// Package deepgram provides an stt.Provider backed by Deepgram's prerecorded
// (batch) transcription REST API.
//
// Deepgram's prerecorded endpoint is synchronous: it returns the full
// transcript in the same response that accepts the audio URL. To present
// the submit/poll shape the rest of the avatar and response pipelines share
// across vendors, Submit performs the Deepgram call immediately and caches
// the outcome under a locally generated job ID; Poll simply looks it up.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/interviewsim/orchestrator/pkg/provider/stt"
)

const defaultModel = "nova-3"

// prerecordedEndpoint is a var (not a const) so tests can repoint it at a
// local httptest server.
var prerecordedEndpoint = "https://api.deepgram.com/v1/listen"

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithHTTPClient overrides the http.Client used to call the Deepgram API.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by Deepgram's prerecorded API.
type Provider struct {
	apiKey     string
	model      string
	httpClient *http.Client

	mu      sync.Mutex
	results map[string]stt.PollResult
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{},
		results:    make(map[string]stt.PollResult),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type prerecordedRequest struct {
	URL string `json:"url"`
}

type prerecordedResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Submit implements stt.Provider. It performs the Deepgram transcription
// call synchronously and stashes the outcome for a later Poll.
func (p *Provider) Submit(ctx context.Context, audioURL, languageCode string) (string, error) {
	if audioURL == "" {
		return "", errors.New("deepgram: audioURL must not be empty")
	}

	jobID := uuid.NewString()

	q := url.Values{}
	q.Set("model", p.model)
	if languageCode != "" {
		q.Set("language", languageCode)
	}
	q.Set("smart_format", "true")

	payload, err := json.Marshal(prerecordedRequest{URL: audioURL})
	if err != nil {
		return "", fmt.Errorf("deepgram: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, prerecordedEndpoint+"?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.storeResult(jobID, stt.PollResult{Status: stt.StatusError, Error: err.Error()})
		return jobID, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.storeResult(jobID, stt.PollResult{Status: stt.StatusError, Error: fmt.Sprintf("unexpected status %d", resp.StatusCode)})
		return jobID, nil
	}

	var out prerecordedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		p.storeResult(jobID, stt.PollResult{Status: stt.StatusError, Error: fmt.Sprintf("decode response: %v", err)})
		return jobID, nil
	}

	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		p.storeResult(jobID, stt.PollResult{Status: stt.StatusError, Error: "no transcript alternatives in response"})
		return jobID, nil
	}

	alt := out.Results.Channels[0].Alternatives[0]
	p.storeResult(jobID, stt.PollResult{
		Status:     stt.StatusDone,
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
	})
	return jobID, nil
}

// Poll implements stt.Provider.
func (p *Provider) Poll(_ context.Context, jobID string) (stt.PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok := p.results[jobID]
	if !ok {
		return stt.PollResult{}, fmt.Errorf("deepgram: unknown job %q", jobID)
	}
	return res, nil
}

func (p *Provider) storeResult(jobID string, res stt.PollResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[jobID] = res
}

var _ stt.Provider = (*Provider)(nil)
