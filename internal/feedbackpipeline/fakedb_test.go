package feedbackpipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/interviewsim/orchestrator/internal/interview"
)

// fakeDB is a minimal db.DB double over in-memory question/response rows,
// enough to drive buildPairs and the persistence side effects of Run
// without a real Postgres connection.
type fakeDB struct {
	questions []interview.Question
	responses []interview.Response

	createdFeedback []*interview.Feedback
	transitions     []transitionCall
	failCreate      error
	failTransition  error
}

type transitionCall struct {
	id            string
	expectVersion int64
	to            interview.Status
	score         *int
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if containsQuery(sql, "INSERT INTO feedback") {
		return fakeRow{ok: true}
	}
	return fakeRow{}
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	switch {
	case containsQuery(sql, "FROM questions"):
		return &fakeQuestionRows{rows: f.questions, idx: -1}, nil
	case containsQuery(sql, "FROM responses"):
		return &fakeResponseRows{rows: f.responses, idx: -1}, nil
	}
	return nil, errors.New("fakeDB: unsupported query")
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case containsQuery(sql, "UPDATE interviews"):
		f.transitions = append(f.transitions, transitionCall{
			to:            interview.Status(args[0].(string)),
			score:         args[2].(*int),
			id:            args[3].(string),
			expectVersion: args[4].(int64),
		})
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

type fakeRow struct{ ok bool }

func (r fakeRow) Scan(dest ...any) error {
	if !r.ok {
		return pgx.ErrNoRows
	}
	if len(dest) > 0 {
		if t, ok := dest[0].(*time.Time); ok {
			*t = time.Now()
		}
	}
	return nil
}

func containsQuery(sql, substr string) bool {
	for i := 0; i+len(substr) <= len(sql); i++ {
		if sql[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// fakeQuestionRows implements pgx.Rows over an in-memory []interview.Question.
type fakeQuestionRows struct {
	rows []interview.Question
	idx  int
}

func (r *fakeQuestionRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeQuestionRows) Scan(dest ...any) error {
	q := r.rows[r.idx]
	*dest[0].(*string) = q.ID
	*dest[1].(*string) = q.InterviewID
	*dest[2].(*int) = q.Ordinal
	*dest[3].(*string) = q.Text
	*dest[4].(*string) = string(q.Category)
	*dest[5].(*string) = string(q.Difficulty)
	*dest[6].(**string) = q.AvatarKey
	*dest[7].(*time.Time) = q.CreatedAt
	return nil
}

func (r *fakeQuestionRows) Err() error                               { return nil }
func (r *fakeQuestionRows) Close()                                   {}
func (r *fakeQuestionRows) CommandTag() pgconn.CommandTag            { var t pgconn.CommandTag; return t }
func (r *fakeQuestionRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeQuestionRows) Values() ([]any, error)                   { return nil, nil }
func (r *fakeQuestionRows) RawValues() [][]byte                      { return nil }
func (r *fakeQuestionRows) Conn() *pgx.Conn                          { return nil }

// fakeResponseRows implements pgx.Rows over an in-memory []interview.Response.
type fakeResponseRows struct {
	rows []interview.Response
	idx  int
}

func (r *fakeResponseRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeResponseRows) Scan(dest ...any) error {
	resp := r.rows[r.idx]
	*dest[0].(*string) = resp.ID
	*dest[1].(*string) = resp.QuestionID
	*dest[2].(*string) = resp.InterviewID
	*dest[3].(*string) = resp.UserID
	*dest[4].(*string) = resp.VideoKey
	*dest[5].(**string) = resp.Transcription
	*dest[6].(**float64) = resp.Confidence
	*dest[7].(**float64) = resp.DurationSeconds
	*dest[8].(*time.Time) = resp.CreatedAt
	return nil
}

func (r *fakeResponseRows) Err() error                               { return nil }
func (r *fakeResponseRows) Close()                                   {}
func (r *fakeResponseRows) CommandTag() pgconn.CommandTag            { var t pgconn.CommandTag; return t }
func (r *fakeResponseRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeResponseRows) Values() ([]any, error)                   { return nil, nil }
func (r *fakeResponseRows) RawValues() [][]byte                      { return nil }
func (r *fakeResponseRows) Conn() *pgx.Conn                          { return nil }
