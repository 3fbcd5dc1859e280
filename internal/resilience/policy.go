package resilience

import (
	"context"

	"github.com/interviewsim/orchestrator/internal/apperrors"
)

// Target names the external vendor a [Policy] protects. These line up with
// the vendor configuration sections in [config.VendorsConfig].
type Target string

const (
	TargetQuestionGen Target = "question-gen"
	TargetTTS         Target = "tts"
	TargetAvatar      Target = "avatar"
	TargetSTT         Target = "stt"
	TargetFeedbackGen Target = "feedback-gen"
)

// Policy pairs a [Retrier] and a [CircuitBreaker] for one external target.
// The breaker is checked first so that retries never run against an
// already-open circuit.
type Policy struct {
	target  Target
	retrier *Retrier
	breaker *CircuitBreaker
}

// NewPolicy creates a [Policy] for target with the given retrier and
// breaker configuration.
func NewPolicy(target Target, rc RetrierConfig, cc CircuitBreakerConfig) *Policy {
	rc.Name = string(target)
	cc.Name = string(target)
	return &Policy{
		target:  target,
		retrier: NewRetrier(rc),
		breaker: NewCircuitBreaker(cc),
	}
}

// Execute runs fn under the breaker and retrier. If the breaker is open it
// fails fast with [apperrors.ExternalServiceFailure]{Kind: KindOpen}. If the
// retrier exhausts its attempts, it fails with Kind: KindExhausted. A
// non-retryable classified error fails with Kind: KindNonRetryable.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var classifiedNonRetryable bool

	breakerErr := p.breaker.Execute(func() error {
		err := p.retrier.Do(ctx, func(ctx context.Context) error {
			innerErr := fn(ctx)
			if innerErr != nil && !DefaultRetryable(innerErr) {
				classifiedNonRetryable = true
			}
			return innerErr
		})
		return err
	})

	if breakerErr == nil {
		return nil
	}
	if breakerErr == ErrCircuitOpen {
		return &apperrors.ExternalServiceFailure{Target: string(p.target), Kind: apperrors.KindOpen, Err: breakerErr}
	}
	if classifiedNonRetryable {
		return &apperrors.ExternalServiceFailure{Target: string(p.target), Kind: apperrors.KindNonRetryable, Err: breakerErr}
	}
	return &apperrors.ExternalServiceFailure{Target: string(p.target), Kind: apperrors.KindExhausted, Err: breakerErr}
}

// BreakerState exposes the breaker's current state, used by health checks.
func (p *Policy) BreakerState() State { return p.breaker.State() }

// Registry holds one [Policy] per external [Target]. It is built once at
// startup and passed by reference to every component that talks to a
// vendor; there is no package-level singleton.
type Registry struct {
	policies map[Target]*Policy
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{policies: make(map[Target]*Policy)}
}

// Register adds or replaces the policy for target.
func (r *Registry) Register(target Target, p *Policy) {
	r.policies[target] = p
}

// Get returns the policy for target, or nil if none was registered.
func (r *Registry) Get(target Target) *Policy {
	return r.policies[target]
}
