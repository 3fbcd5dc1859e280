// Package feedbackpipeline implements spec.md §4.10's COMPLETE-triggered
// scoring step: aggregate an interview's transcribed answers, call the
// feedback-generation vendor under resilience, and persist the result.
package feedbackpipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/interview"
	"github.com/interviewsim/orchestrator/internal/resilience"
	"github.com/interviewsim/orchestrator/pkg/provider/feedbackgen"
)

const missingAnswerPlaceholder = "[no response submitted]"

// Pipeline runs the feedback-generation step for a single interview.
type Pipeline struct {
	db            db.DB
	questionRepo  *db.QuestionRepo
	responseRepo  *db.ResponseRepo
	feedbackRepo  *db.FeedbackRepo
	interviewRepo *db.InterviewRepo

	provider feedbackgen.Provider
	policy   *resilience.Policy

	log *slog.Logger
}

// Config configures a [Pipeline].
type Config struct {
	DB            db.DB
	QuestionRepo  *db.QuestionRepo
	ResponseRepo  *db.ResponseRepo
	FeedbackRepo  *db.FeedbackRepo
	InterviewRepo *db.InterviewRepo

	Provider feedbackgen.Provider
	Policy   *resilience.Policy

	Log *slog.Logger
}

// New creates a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		db:            cfg.DB,
		questionRepo:  cfg.QuestionRepo,
		responseRepo:  cfg.ResponseRepo,
		feedbackRepo:  cfg.FeedbackRepo,
		interviewRepo: cfg.InterviewRepo,
		provider:      cfg.Provider,
		policy:        cfg.Policy,
		log:           log,
	}
}

// Run implements spec.md §4.10 for a single interview already in
// PROCESSING at expectVersion. On success it persists the Feedback row,
// sets the interview's overall score, and transitions it to COMPLETED. On
// a terminal vendor failure it persists nothing and returns the error; the
// sweeper is responsible for eventually moving the interview to FAILED.
func (p *Pipeline) Run(ctx context.Context, interviewID, userID string, expectVersion int64) error {
	pairs, err := p.buildPairs(ctx, interviewID)
	if err != nil {
		return err
	}

	var result feedbackgen.Result
	err = p.policy.Execute(ctx, func(ctx context.Context) error {
		var genErr error
		result, genErr = p.provider.GenerateFeedback(ctx, pairs)
		return genErr
	})
	if err != nil {
		return fmt.Errorf("feedbackpipeline: generate feedback for interview %q: %w", interviewID, err)
	}

	score := clampScore(result.Score)
	fb := &interview.Feedback{
		ID:               uuid.NewString(),
		InterviewID:      interviewID,
		UserID:           userID,
		OverallScore:     score,
		Strengths:        defaultEmpty(result.Strengths),
		Weaknesses:       defaultEmpty(result.Weaknesses),
		Recommendations:  defaultEmpty(result.Recommendations),
		DetailedAnalysis: result.DetailedAnalysis,
	}

	if err := p.feedbackRepo.Create(ctx, p.db, fb); err != nil {
		return fmt.Errorf("feedbackpipeline: persist feedback for interview %q: %w", interviewID, err)
	}

	if err := p.interviewRepo.CompareAndTransition(
		ctx, p.db, interviewID, expectVersion, interview.StatusCompleted, nil, &score,
	); err != nil {
		return fmt.Errorf("feedbackpipeline: transition interview %q to completed: %w", interviewID, err)
	}

	return nil
}

// buildPairs collects an interview's questions and responses, ordered by
// question, and zips them into (question_text, answer_text) pairs. A
// question with no submitted response, or one whose answer was never
// transcribed, is paired with a placeholder string rather than dropped —
// the vendor still needs one entry per question to score the interview.
func (p *Pipeline) buildPairs(ctx context.Context, interviewID string) ([]feedbackgen.QAPair, error) {
	questions, err := p.questionRepo.ListByInterview(ctx, p.db, interviewID)
	if err != nil {
		return nil, fmt.Errorf("feedbackpipeline: list questions for %q: %w", interviewID, err)
	}
	responses, err := p.responseRepo.ListByInterview(ctx, p.db, interviewID)
	if err != nil {
		return nil, fmt.Errorf("feedbackpipeline: list responses for %q: %w", interviewID, err)
	}

	byQuestion := make(map[string]interview.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	pairs := make([]feedbackgen.QAPair, 0, len(questions))
	for _, q := range questions {
		answer := missingAnswerPlaceholder
		if resp, ok := byQuestion[q.ID]; ok && resp.Transcription != nil && *resp.Transcription != "" {
			answer = *resp.Transcription
		}
		pairs = append(pairs, feedbackgen.QAPair{QuestionText: q.Text, AnswerText: answer})
	}
	return pairs, nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func defaultEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
