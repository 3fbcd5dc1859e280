// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/interviewsim/orchestrator/pkg/provider/stt"
)

// SubmitCall records a single invocation of Submit.
type SubmitCall struct {
	AudioURL     string
	LanguageCode string
}

// Provider is a mock implementation of stt.Provider. Poll walks through
// Results in order, one per call, returning the final entry for every call
// past the end of the slice.
type Provider struct {
	mu sync.Mutex

	JobID     string
	SubmitErr error

	Results []stt.PollResult
	PollErr error

	submitCalls []SubmitCall
	pollCalls   []string
	pollIndex   int
}

func (p *Provider) Submit(_ context.Context, audioURL, languageCode string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitCalls = append(p.submitCalls, SubmitCall{AudioURL: audioURL, LanguageCode: languageCode})
	if p.SubmitErr != nil {
		return "", p.SubmitErr
	}
	return p.JobID, nil
}

func (p *Provider) Poll(_ context.Context, jobID string) (stt.PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollCalls = append(p.pollCalls, jobID)
	if p.PollErr != nil {
		return stt.PollResult{}, p.PollErr
	}
	if len(p.Results) == 0 {
		return stt.PollResult{}, nil
	}
	idx := p.pollIndex
	if idx >= len(p.Results) {
		idx = len(p.Results) - 1
	} else {
		p.pollIndex++
	}
	return p.Results[idx], nil
}

// SubmitCalls returns the recorded Submit invocations.
func (p *Provider) SubmitCalls() []SubmitCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SubmitCall(nil), p.submitCalls...)
}

// PollCalls returns the recorded Poll job IDs, in call order.
func (p *Provider) PollCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pollCalls...)
}

var _ stt.Provider = (*Provider)(nil)
