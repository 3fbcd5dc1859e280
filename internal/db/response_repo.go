package db

import (
	"context"
	"fmt"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/interview"
)

// ResponseRepo persists [interview.Response] rows.
type ResponseRepo struct{}

func NewResponseRepo() *ResponseRepo { return &ResponseRepo{} }

// Create inserts a new Response. The unique constraint on question_id
// enforces the at-most-one-Response-per-Question invariant; a duplicate
// attempt is mapped to [apperrors.Duplicate].
func (r *ResponseRepo) Create(ctx context.Context, db DB, resp *interview.Response) error {
	const query = `
		INSERT INTO responses (id, question_id, interview_id, user_id, video_key)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`

	err := db.QueryRow(ctx, query, resp.ID, resp.QuestionID, resp.InterviewID, resp.UserID, resp.VideoKey).
		Scan(&resp.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &apperrors.Duplicate{Entity: "response"}
		}
		return fmt.Errorf("db: create response: %w", err)
	}
	return nil
}

// GetByQuestion retrieves the Response for a question, if any.
func (r *ResponseRepo) GetByQuestion(ctx context.Context, db DB, questionID string) (*interview.Response, error) {
	const query = `
		SELECT id, question_id, interview_id, user_id, video_key, transcription, confidence, duration_seconds, created_at
		FROM responses WHERE question_id = $1`

	resp := &interview.Response{}
	err := db.QueryRow(ctx, query, questionID).Scan(
		&resp.ID, &resp.QuestionID, &resp.InterviewID, &resp.UserID, &resp.VideoKey,
		&resp.Transcription, &resp.Confidence, &resp.DurationSeconds, &resp.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("db: get response for question %q: %w", questionID, err)
	}
	return resp, nil
}

// ListByInterview returns every Response for an interview, ordered by
// the owning question's ordinal, used to build the feedback pipeline's
// transcript.
func (r *ResponseRepo) ListByInterview(ctx context.Context, db DB, interviewID string) ([]interview.Response, error) {
	const query = `
		SELECT r.id, r.question_id, r.interview_id, r.user_id, r.video_key, r.transcription, r.confidence, r.duration_seconds, r.created_at
		FROM responses r
		JOIN questions q ON q.id = r.question_id
		WHERE r.interview_id = $1
		ORDER BY q.ordinal`

	rows, err := db.Query(ctx, query, interviewID)
	if err != nil {
		return nil, fmt.Errorf("db: list responses for %q: %w", interviewID, err)
	}
	defer rows.Close()

	var out []interview.Response
	for rows.Next() {
		var resp interview.Response
		if err := rows.Scan(
			&resp.ID, &resp.QuestionID, &resp.InterviewID, &resp.UserID, &resp.VideoKey,
			&resp.Transcription, &resp.Confidence, &resp.DurationSeconds, &resp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("db: scan response row: %w", err)
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// SetTranscription persists STT output. Transcription is monotonic: the
// WHERE clause refuses to clear an existing value.
func (r *ResponseRepo) SetTranscription(ctx context.Context, db DB, responseID, text string, confidence *float64) error {
	const query = `
		UPDATE responses SET transcription = $1, confidence = $2
		WHERE id = $3 AND transcription IS NULL`
	_, err := db.Exec(ctx, query, text, confidence, responseID)
	if err != nil {
		return fmt.Errorf("db: set transcription for response %q: %w", responseID, err)
	}
	return nil
}
