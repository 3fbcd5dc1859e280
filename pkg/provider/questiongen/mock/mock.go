// Package mock provides a test double for the questiongen.Provider
// interface.
package mock

import (
	"context"
	"sync"

	"github.com/interviewsim/orchestrator/pkg/provider/questiongen"
)

// Call records a single invocation of GenerateQuestions.
type Call struct {
	Ctx context.Context
	Req questiongen.Request
}

// Provider is a mock implementation of questiongen.Provider. Zero values
// cause GenerateQuestions to return a nil slice and nil error; set
// Questions or Err to control behavior.
type Provider struct {
	mu sync.Mutex

	Questions []questiongen.Question
	Err       error

	Calls []Call
}

func (p *Provider) GenerateQuestions(ctx context.Context, req questiongen.Request) ([]questiongen.Question, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Ctx: ctx, Req: req})
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.Questions, nil
}

var _ questiongen.Provider = (*Provider)(nil)
