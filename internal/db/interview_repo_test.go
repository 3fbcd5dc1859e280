package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/interview"
)

func TestInterviewRepo_Create_DuplicateIsMapped(t *testing.T) {
	repo := db.NewInterviewRepo()
	mock := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error { return uniqueViolation() }}
		},
	}

	err := repo.Create(context.Background(), mock, &interview.Interview{ID: "iv-1"})

	var dup *apperrors.Duplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected *apperrors.Duplicate, got %v", err)
	}
}

func TestInterviewRepo_Get_NoRowsIsNotFound(t *testing.T) {
	repo := db.NewInterviewRepo()
	mock := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	_, err := repo.Get(context.Background(), mock, "user-1", "iv-missing")

	var nf *apperrors.NotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected *apperrors.NotFound, got %v", err)
	}
}

func TestInterviewRepo_CompareAndTransition_NoRowsAffectedIsIllegalState(t *testing.T) {
	repo := db.NewInterviewRepo()
	mock := &mockDB{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	err := repo.CompareAndTransition(context.Background(), mock, "iv-1", 3, interview.StatusInProgress, nil, nil)

	var illegal *apperrors.IllegalState
	if !errors.As(err, &illegal) {
		t.Fatalf("expected *apperrors.IllegalState, got %v", err)
	}
}

func TestInterviewRepo_CompareAndTransition_Succeeds(t *testing.T) {
	repo := db.NewInterviewRepo()
	mock := &mockDB{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	err := repo.CompareAndTransition(context.Background(), mock, "iv-1", 3, interview.StatusInProgress, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
