package db

import (
	"context"
	"fmt"
	"time"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/interview"
)

// InterviewRepo persists [interview.Interview] rows.
type InterviewRepo struct{}

// NewInterviewRepo creates an InterviewRepo. It holds no state; every
// method takes the [DB] to operate against, so the same repo value works
// inside or outside a [UnitOfWork].
func NewInterviewRepo() *InterviewRepo { return &InterviewRepo{} }

// Create inserts iv at status CREATED == iv.Status, version 0.
func (r *InterviewRepo) Create(ctx context.Context, db DB, iv *interview.Interview) error {
	const query = `
		INSERT INTO interviews (id, user_id, resume_id, job_role_id, status, type, version)
		VALUES ($1,$2,$3,$4,$5,$6,0)
		RETURNING created_at, version`

	err := db.QueryRow(ctx, query, iv.ID, iv.UserID, iv.ResumeID, iv.JobRoleID, string(iv.Status), iv.Type).
		Scan(&iv.CreatedAt, &iv.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return &apperrors.Duplicate{Entity: "interview"}
		}
		return fmt.Errorf("db: create interview: %w", err)
	}
	return nil
}

// Get retrieves an interview by id, owned by userID. Ownership mismatches
// are reported identically to a missing row, per spec.md §7's
// anti-enumeration policy.
func (r *InterviewRepo) Get(ctx context.Context, db DB, userID, id string) (*interview.Interview, error) {
	const query = `
		SELECT id, user_id, resume_id, job_role_id, status, type, overall_score, version, created_at, completed_at
		FROM interviews WHERE id = $1 AND user_id = $2`

	iv := &interview.Interview{}
	var status string
	err := db.QueryRow(ctx, query, id, userID).Scan(
		&iv.ID, &iv.UserID, &iv.ResumeID, &iv.JobRoleID, &status, &iv.Type,
		&iv.OverallScore, &iv.Version, &iv.CreatedAt, &iv.CompletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, &apperrors.NotFound{Entity: "interview", ID: id}
		}
		return nil, fmt.Errorf("db: get interview %q: %w", id, err)
	}
	iv.Status = interview.Status(status)
	return iv, nil
}

// GetByID retrieves an interview by id without an ownership check, used
// internally by the sweeper which has no user context.
func (r *InterviewRepo) GetByID(ctx context.Context, db DB, id string) (*interview.Interview, error) {
	const query = `
		SELECT id, user_id, resume_id, job_role_id, status, type, overall_score, version, created_at, completed_at
		FROM interviews WHERE id = $1`

	iv := &interview.Interview{}
	var status string
	err := db.QueryRow(ctx, query, id).Scan(
		&iv.ID, &iv.UserID, &iv.ResumeID, &iv.JobRoleID, &status, &iv.Type,
		&iv.OverallScore, &iv.Version, &iv.CreatedAt, &iv.CompletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, &apperrors.NotFound{Entity: "interview", ID: id}
		}
		return nil, fmt.Errorf("db: get interview %q: %w", id, err)
	}
	iv.Status = interview.Status(status)
	return iv, nil
}

// ListByUser returns a user's interviews, most recent first, without
// their questions (spec.md §6's lightweight history endpoint).
func (r *InterviewRepo) ListByUser(ctx context.Context, db DB, userID string) ([]interview.Interview, error) {
	const query = `
		SELECT id, user_id, resume_id, job_role_id, status, type, overall_score, version, created_at, completed_at
		FROM interviews WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db: list interviews for %q: %w", userID, err)
	}
	defer rows.Close()

	var out []interview.Interview
	for rows.Next() {
		var iv interview.Interview
		var status string
		if err := rows.Scan(
			&iv.ID, &iv.UserID, &iv.ResumeID, &iv.JobRoleID, &status, &iv.Type,
			&iv.OverallScore, &iv.Version, &iv.CreatedAt, &iv.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("db: scan interview row: %w", err)
		}
		iv.Status = interview.Status(status)
		out = append(out, iv)
	}
	return out, rows.Err()
}

// ListStuckInStatus returns every interview in status s, used by the
// sweeper. It intentionally ignores ownership.
func (r *InterviewRepo) ListStuckInStatus(ctx context.Context, db DB, s interview.Status) ([]interview.Interview, error) {
	const query = `
		SELECT id, user_id, resume_id, job_role_id, status, type, overall_score, version, created_at, completed_at
		FROM interviews WHERE status = $1`

	rows, err := db.Query(ctx, query, string(s))
	if err != nil {
		return nil, fmt.Errorf("db: list interviews in status %s: %w", s, err)
	}
	defer rows.Close()

	var out []interview.Interview
	for rows.Next() {
		var iv interview.Interview
		var status string
		if err := rows.Scan(
			&iv.ID, &iv.UserID, &iv.ResumeID, &iv.JobRoleID, &status, &iv.Type,
			&iv.OverallScore, &iv.Version, &iv.CreatedAt, &iv.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("db: scan interview row: %w", err)
		}
		iv.Status = interview.Status(status)
		out = append(out, iv)
	}
	return out, rows.Err()
}

// CompareAndTransition performs the only legal way an interview's status
// changes: an optimistic compare-and-set on (id, version). It fails with
// [apperrors.IllegalState] if no row matched, which callers should treat
// as "someone else changed it first, reload and retry" rather than a
// logic error in most cases. A nil completedAt or overallScore leaves
// the existing column value untouched.
func (r *InterviewRepo) CompareAndTransition(ctx context.Context, db DB, id string, expectVersion int64, to interview.Status, completedAt *time.Time, overallScore *int) error {
	const query = `
		UPDATE interviews SET status = $1, version = version + 1,
			completed_at = COALESCE($2, completed_at),
			overall_score = COALESCE($3, overall_score)
		WHERE id = $4 AND version = $5`

	tag, err := db.Exec(ctx, query, string(to), completedAt, overallScore, id, expectVersion)
	if err != nil {
		return fmt.Errorf("db: transition interview %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &apperrors.IllegalState{From: "unknown", To: string(to)}
	}
	return nil
}
