package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/interview"
)

// FeedbackRepo persists the one-to-one [interview.Feedback] row per
// COMPLETED interview.
type FeedbackRepo struct{}

func NewFeedbackRepo() *FeedbackRepo { return &FeedbackRepo{} }

// Create inserts fb. The unique constraint on interview_id enforces the
// one-Feedback-per-interview invariant.
func (r *FeedbackRepo) Create(ctx context.Context, db DB, fb *interview.Feedback) error {
	strengths, err := json.Marshal(emptySlice(fb.Strengths))
	if err != nil {
		return fmt.Errorf("db: marshal strengths: %w", err)
	}
	weaknesses, err := json.Marshal(emptySlice(fb.Weaknesses))
	if err != nil {
		return fmt.Errorf("db: marshal weaknesses: %w", err)
	}
	recommendations, err := json.Marshal(emptySlice(fb.Recommendations))
	if err != nil {
		return fmt.Errorf("db: marshal recommendations: %w", err)
	}

	const query = `
		INSERT INTO feedback (id, interview_id, user_id, overall_score, strengths, weaknesses, recommendations, detailed_analysis)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING generated_at`

	err = db.QueryRow(ctx, query, fb.ID, fb.InterviewID, fb.UserID, fb.OverallScore,
		strengths, weaknesses, recommendations, fb.DetailedAnalysis).Scan(&fb.GeneratedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &apperrors.Duplicate{Entity: "feedback"}
		}
		return fmt.Errorf("db: create feedback: %w", err)
	}
	return nil
}

// GetByInterview retrieves the Feedback for an interview, if it exists.
func (r *FeedbackRepo) GetByInterview(ctx context.Context, db DB, interviewID string) (*interview.Feedback, error) {
	const query = `
		SELECT id, interview_id, user_id, overall_score, strengths, weaknesses, recommendations, detailed_analysis, generated_at
		FROM feedback WHERE interview_id = $1`

	fb := &interview.Feedback{}
	var strengths, weaknesses, recommendations []byte
	err := db.QueryRow(ctx, query, interviewID).Scan(
		&fb.ID, &fb.InterviewID, &fb.UserID, &fb.OverallScore,
		&strengths, &weaknesses, &recommendations, &fb.DetailedAnalysis, &fb.GeneratedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, &apperrors.NotFound{Entity: "feedback", ID: interviewID}
		}
		return nil, fmt.Errorf("db: get feedback for %q: %w", interviewID, err)
	}
	if err := json.Unmarshal(strengths, &fb.Strengths); err != nil {
		return nil, fmt.Errorf("db: unmarshal strengths: %w", err)
	}
	if err := json.Unmarshal(weaknesses, &fb.Weaknesses); err != nil {
		return nil, fmt.Errorf("db: unmarshal weaknesses: %w", err)
	}
	if err := json.Unmarshal(recommendations, &fb.Recommendations); err != nil {
		return nil, fmt.Errorf("db: unmarshal recommendations: %w", err)
	}
	return fb, nil
}

// emptySlice returns s if non-nil, otherwise an empty non-nil slice, so
// marshalling produces "[]" instead of "null".
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
