// Package feedbackgen defines the Provider interface for vendors that score
// a completed interview's question/answer pairs into structured feedback.
package feedbackgen

import "context"

// QAPair is one question paired with its (possibly placeholder) answer text.
type QAPair struct {
	QuestionText string
	AnswerText   string
}

// Result is the structured feedback produced for an interview.
type Result struct {
	Score           int
	Strengths       []string
	Weaknesses      []string
	Recommendations []string
	DetailedAnalysis string
}

// Provider is the abstraction over any feedback-scoring backend.
type Provider interface {
	// GenerateFeedback scores the given sequence of question/answer pairs,
	// ordered by question ordinal.
	GenerateFeedback(ctx context.Context, pairs []QAPair) (Result, error)
}
