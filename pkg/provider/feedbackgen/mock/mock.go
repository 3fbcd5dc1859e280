// Package mock provides a test double for the feedbackgen.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/interviewsim/orchestrator/pkg/provider/feedbackgen"
)

// Call records a single invocation of GenerateFeedback.
type Call struct {
	Pairs []feedbackgen.QAPair
}

// Provider is a mock implementation of feedbackgen.Provider.
type Provider struct {
	mu sync.Mutex

	Result feedbackgen.Result
	Err    error

	Calls []Call
}

func (p *Provider) GenerateFeedback(_ context.Context, pairs []feedbackgen.QAPair) (feedbackgen.Result, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Pairs: pairs})
	p.mu.Unlock()

	if p.Err != nil {
		return feedbackgen.Result{}, p.Err
	}
	return p.Result, nil
}

var _ feedbackgen.Provider = (*Provider)(nil)
