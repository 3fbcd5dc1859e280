package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/interview"
)

type fakeDB struct {
	rows           []interview.Interview
	transitions    []string
	rowsAffected0 bool
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return fakeRow{} }

func (f *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	status := args[0].(string)
	var out []interview.Interview
	for _, iv := range f.rows {
		if string(iv.Status) == status {
			out = append(out, iv)
		}
	}
	return &fakeRows{rows: out, idx: -1}, nil
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if f.rowsAffected0 {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	to := args[0].(string)
	id := args[3].(string)
	f.transitions = append(f.transitions, id+"->"+to)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

type fakeRow struct{}

func (fakeRow) Scan(dest ...any) error { return pgx.ErrNoRows }

type fakeRows struct {
	rows []interview.Interview
	idx  int
}

func (r *fakeRows) Next() bool { r.idx++; return r.idx < len(r.rows) }
func (r *fakeRows) Scan(dest ...any) error {
	iv := r.rows[r.idx]
	*dest[0].(*string) = iv.ID
	*dest[1].(*string) = iv.UserID
	*dest[2].(*string) = iv.ResumeID
	*dest[3].(*string) = iv.JobRoleID
	*dest[4].(*string) = string(iv.Status)
	*dest[5].(*string) = iv.Type
	*dest[6].(**int) = iv.OverallScore
	*dest[7].(*int64) = iv.Version
	*dest[8].(*time.Time) = iv.CreatedAt
	*dest[9].(**time.Time) = iv.CompletedAt
	return nil
}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) Close()                                       {}
func (r *fakeRows) CommandTag() pgconn.CommandTag                { var t pgconn.CommandTag; return t }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func TestSweepNow_RescuesStuckGeneratingVideos(t *testing.T) {
	fdb := &fakeDB{rows: []interview.Interview{
		{ID: "iv-1", Status: interview.StatusGeneratingVideos, CreatedAt: time.Now().Add(-20 * time.Minute)},
		{ID: "iv-2", Status: interview.StatusGeneratingVideos, CreatedAt: time.Now().Add(-1 * time.Minute)},
	}}

	var d db.DB = fdb
	s := New(Config{Interviews: db.NewInterviewRepo(), DB: d, VideoTimeout: 15 * time.Minute})
	s.SweepNow(context.Background())

	if len(fdb.transitions) != 1 {
		t.Fatalf("expected exactly one rescue, got %v", fdb.transitions)
	}
	if fdb.transitions[0] != "iv-1->IN_PROGRESS" {
		t.Errorf("unexpected transition: %s", fdb.transitions[0])
	}
}

func TestSweepNow_RescuesStuckProcessingUsingCompletedAt(t *testing.T) {
	completedAt := time.Now().Add(-40 * time.Minute)
	fdb := &fakeDB{rows: []interview.Interview{
		{ID: "iv-3", Status: interview.StatusProcessing, CreatedAt: time.Now().Add(-2 * time.Hour), CompletedAt: &completedAt},
	}}

	var d db.DB = fdb
	s := New(Config{Interviews: db.NewInterviewRepo(), DB: d, ProcessingTimeout: 30 * time.Minute})
	s.SweepNow(context.Background())

	if len(fdb.transitions) != 1 || fdb.transitions[0] != "iv-3->FAILED" {
		t.Fatalf("expected iv-3->FAILED, got %v", fdb.transitions)
	}
}

func TestSweepNow_IllegalStateIsSwallowed(t *testing.T) {
	fdb := &fakeDB{
		rows:          []interview.Interview{{ID: "iv-4", Status: interview.StatusGeneratingVideos, CreatedAt: time.Now().Add(-20 * time.Minute)}},
		rowsAffected0: true,
	}

	var d db.DB = fdb
	s := New(Config{Interviews: db.NewInterviewRepo(), DB: d, VideoTimeout: 15 * time.Minute})
	s.SweepNow(context.Background()) // must not panic

	if len(fdb.transitions) != 0 {
		t.Errorf("expected no recorded transitions when Exec fails, got %v", fdb.transitions)
	}
}
