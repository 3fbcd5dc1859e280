// Package mock provides a test double for the avatarvideo.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/interviewsim/orchestrator/pkg/provider/avatarvideo"
)

// Provider is a mock implementation of avatarvideo.Provider. CreateTalk
// returns JobID/CreateErr. PollTalk walks through Results in order, one per
// call, returning the final entry for every call past the end of the slice.
type Provider struct {
	mu sync.Mutex

	JobID     string
	CreateErr error

	Results []avatarvideo.PollResult
	PollErr error

	createCalls []avatarvideo.CreateTalkRequest
	pollCalls   []string
	pollIndex   int
}

func (p *Provider) CreateTalk(_ context.Context, req avatarvideo.CreateTalkRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls = append(p.createCalls, req)
	if p.CreateErr != nil {
		return "", p.CreateErr
	}
	return p.JobID, nil
}

func (p *Provider) PollTalk(_ context.Context, jobID string) (avatarvideo.PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollCalls = append(p.pollCalls, jobID)
	if p.PollErr != nil {
		return avatarvideo.PollResult{}, p.PollErr
	}
	if len(p.Results) == 0 {
		return avatarvideo.PollResult{}, nil
	}
	idx := p.pollIndex
	if idx >= len(p.Results) {
		idx = len(p.Results) - 1
	} else {
		p.pollIndex++
	}
	return p.Results[idx], nil
}

// CreateCalls returns the recorded CreateTalk requests.
func (p *Provider) CreateCalls() []avatarvideo.CreateTalkRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]avatarvideo.CreateTalkRequest(nil), p.createCalls...)
}

// PollCalls returns the recorded PollTalk job IDs, in call order.
func (p *Provider) PollCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pollCalls...)
}

var _ avatarvideo.Provider = (*Provider)(nil)
