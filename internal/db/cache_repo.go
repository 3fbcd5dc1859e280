package db

import (
	"context"
	"fmt"
	"time"
)

// TtsCacheRepo persists TtsAudioCache rows: a fingerprint-keyed pointer
// to a previously generated TTS clip.
type TtsCacheRepo struct{}

func NewTtsCacheRepo() *TtsCacheRepo { return &TtsCacheRepo{} }

// Get returns the blob key cached for fingerprint, or "" if absent.
func (r *TtsCacheRepo) Get(ctx context.Context, db DB, fingerprint string) (string, bool, error) {
	const query = `SELECT blob_key FROM tts_audio_cache WHERE cache_key = $1`
	var blobKey string
	err := db.QueryRow(ctx, query, fingerprint).Scan(&blobKey)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("db: get tts cache %q: %w", fingerprint, err)
	}
	return blobKey, true, nil
}

// Put stores fingerprint -> blobKey. Double writes are tolerated: the
// second one is a no-op, per spec.md §5's "the second one loses" policy.
func (r *TtsCacheRepo) Put(ctx context.Context, db DB, fingerprint, blobKey string) error {
	const query = `
		INSERT INTO tts_audio_cache (cache_key, blob_key) VALUES ($1, $2)
		ON CONFLICT (cache_key) DO NOTHING`
	_, err := db.Exec(ctx, query, fingerprint, blobKey)
	if err != nil {
		return fmt.Errorf("db: put tts cache %q: %w", fingerprint, err)
	}
	return nil
}

// AvatarCacheRepo persists AvatarVideoCache rows.
type AvatarCacheRepo struct{}

func NewAvatarCacheRepo() *AvatarCacheRepo { return &AvatarCacheRepo{} }

// Get returns the blob key cached for fingerprint, or "" if absent.
func (r *AvatarCacheRepo) Get(ctx context.Context, db DB, fingerprint string) (string, bool, error) {
	const query = `SELECT blob_key FROM avatar_video_cache WHERE cache_key = $1`
	var blobKey string
	err := db.QueryRow(ctx, query, fingerprint).Scan(&blobKey)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("db: get avatar cache %q: %w", fingerprint, err)
	}
	return blobKey, true, nil
}

// Put stores fingerprint -> blobKey with an optional expiry. Double
// writes are tolerated.
func (r *AvatarCacheRepo) Put(ctx context.Context, db DB, fingerprint, blobKey string, expiresAt *time.Time) error {
	const query = `
		INSERT INTO avatar_video_cache (cache_key, blob_key, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO NOTHING`
	_, err := db.Exec(ctx, query, fingerprint, blobKey, expiresAt)
	if err != nil {
		return fmt.Errorf("db: put avatar cache %q: %w", fingerprint, err)
	}
	return nil
}
