package db

import (
	"context"
	"fmt"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/interview"
)

// QuestionRepo persists [interview.Question] rows.
type QuestionRepo struct{}

func NewQuestionRepo() *QuestionRepo { return &QuestionRepo{} }

// CreateBatch inserts every question in qs, which must already carry
// sequential 1-based ordinals. Used once per interview, at START.
func (r *QuestionRepo) CreateBatch(ctx context.Context, db DB, qs []interview.Question) error {
	const query = `
		INSERT INTO questions (id, interview_id, ordinal, text, category, difficulty)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`

	for i := range qs {
		q := &qs[i]
		err := db.QueryRow(ctx, query, q.ID, q.InterviewID, q.Ordinal, q.Text, string(q.Category), string(q.Difficulty)).
			Scan(&q.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return &apperrors.Duplicate{Entity: "question"}
			}
			return fmt.Errorf("db: create question %q: %w", q.ID, err)
		}
	}
	return nil
}

// Get retrieves a single question by id.
func (r *QuestionRepo) Get(ctx context.Context, db DB, id string) (*interview.Question, error) {
	const query = `
		SELECT id, interview_id, ordinal, text, category, difficulty, avatar_key, created_at
		FROM questions WHERE id = $1`

	q := &interview.Question{}
	var category, difficulty string
	err := db.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.InterviewID, &q.Ordinal, &q.Text, &category, &difficulty, &q.AvatarKey, &q.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, &apperrors.NotFound{Entity: "question", ID: id}
		}
		return nil, fmt.Errorf("db: get question %q: %w", id, err)
	}
	q.Category = interview.Category(category)
	q.Difficulty = interview.Difficulty(difficulty)
	return q, nil
}

// ListByInterview returns every question for an interview, ordered by
// ordinal.
func (r *QuestionRepo) ListByInterview(ctx context.Context, db DB, interviewID string) ([]interview.Question, error) {
	const query = `
		SELECT id, interview_id, ordinal, text, category, difficulty, avatar_key, created_at
		FROM questions WHERE interview_id = $1 ORDER BY ordinal`

	rows, err := db.Query(ctx, query, interviewID)
	if err != nil {
		return nil, fmt.Errorf("db: list questions for %q: %w", interviewID, err)
	}
	defer rows.Close()

	var out []interview.Question
	for rows.Next() {
		var q interview.Question
		var category, difficulty string
		if err := rows.Scan(&q.ID, &q.InterviewID, &q.Ordinal, &q.Text, &category, &difficulty, &q.AvatarKey, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scan question row: %w", err)
		}
		q.Category = interview.Category(category)
		q.Difficulty = interview.Difficulty(difficulty)
		out = append(out, q)
	}
	return out, rows.Err()
}

// SetAvatarKey sets a question's avatar key exactly once: the WHERE
// clause only matches rows where avatar_key is still null, enforcing the
// null -> set-at-most-once invariant at the database level.
func (r *QuestionRepo) SetAvatarKey(ctx context.Context, db DB, questionID, key string) error {
	const query = `UPDATE questions SET avatar_key = $1 WHERE id = $2 AND avatar_key IS NULL`
	_, err := db.Exec(ctx, query, key, questionID)
	if err != nil {
		return fmt.Errorf("db: set avatar key for question %q: %w", questionID, err)
	}
	return nil
}
