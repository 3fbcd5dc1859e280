package avatarpipeline

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB is a minimal db.DB double backed by in-memory string maps, enough
// to exercise TtsCacheRepo/AvatarCacheRepo/QuestionRepo without a real
// Postgres connection.
type fakeDB struct {
	ttsCache    map[string]string
	avatarCache map[string]string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		ttsCache:    make(map[string]string),
		avatarCache: make(map[string]string),
	}
}

type fakeRow struct {
	val string
	ok  bool
}

func (r fakeRow) Scan(dest ...any) error {
	if !r.ok {
		return pgx.ErrNoRows
	}
	if s, ok := dest[0].(*string); ok {
		*s = r.val
	}
	return nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	key, _ := args[0].(string)
	switch {
	case containsQuery(sql, "tts_audio_cache"):
		v, ok := f.ttsCache[key]
		return fakeRow{val: v, ok: ok}
	case containsQuery(sql, "avatar_video_cache"):
		v, ok := f.avatarCache[key]
		return fakeRow{val: v, ok: ok}
	default:
		return fakeRow{ok: false}
	}
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("fakeDB: Query not implemented")
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	var tag pgconn.CommandTag
	switch {
	case containsQuery(sql, "INSERT INTO tts_audio_cache"):
		key, _ := args[0].(string)
		blobKey, _ := args[1].(string)
		if _, exists := f.ttsCache[key]; !exists {
			f.ttsCache[key] = blobKey
		}
	case containsQuery(sql, "INSERT INTO avatar_video_cache"):
		key, _ := args[0].(string)
		blobKey, _ := args[1].(string)
		if _, exists := f.avatarCache[key]; !exists {
			f.avatarCache[key] = blobKey
		}
	case containsQuery(sql, "UPDATE questions"):
		// no-op: the pipeline never inspects the returned tag.
	}
	return tag, nil
}

func containsQuery(sql, substr string) bool {
	for i := 0; i+len(substr) <= len(sql); i++ {
		if sql[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
