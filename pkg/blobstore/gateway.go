// Package blobstore provides the S3-backed object store gateway used for
// every piece of stored media: resumes, answer videos, TTS audio, and
// avatar videos, along with their content-addressed caches.
//
// Every entity field that refers to stored media holds the object key
// returned by this package, never a presigned URL. URLs are minted
// on-demand with a short validity window; stored references never expire.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/interviewsim/orchestrator/internal/apperrors"
)

// PresignedURLMinter is the narrow GET-URL capability of [Gateway], for
// callers that only need a presigned GET URL and not the full Gateway
// surface. Keeping this as its own interface lets tests substitute a
// deterministic stub without standing up an S3 client.
type PresignedURLMinter interface {
	GetPresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Gateway is the blob store facade used throughout the service. It is
// built around *s3.Client plus a presign client derived from it, and
// never returns raw AWS SDK errors: every failure is wrapped in
// [apperrors.BlobStoreFailure].
type Gateway struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	log      *slog.Logger

	defaultGetTTL time.Duration
	defaultPutTTL time.Duration
}

// Option configures a [Gateway] beyond its required bucket and client.
type Option func(*Gateway)

// WithDefaultGetTTL overrides the default presigned-GET validity window
// (60 minutes per spec.md §4.1).
func WithDefaultGetTTL(d time.Duration) Option {
	return func(g *Gateway) { g.defaultGetTTL = d }
}

// WithDefaultPutTTL overrides the default presigned-PUT validity window
// (15 minutes per spec.md §4.1).
func WithDefaultPutTTL(d time.Duration) Option {
	return func(g *Gateway) { g.defaultPutTTL = d }
}

// WithLogger overrides the logger used for best-effort delete failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// New creates a Gateway around an already-configured S3 client.
func New(client *s3.Client, bucket string, opts ...Option) *Gateway {
	g := &Gateway{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucket:        bucket,
		log:           slog.Default(),
		defaultGetTTL: 60 * time.Minute,
		defaultPutTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ PresignedURLMinter = (*Gateway)(nil)

// PutObject writes bytes to key with the given content type.
func (g *Gateway) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        newReadSeeker(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &apperrors.BlobStoreFailure{Op: "put_object", Err: err}
	}
	return nil
}

// PutObjectStream writes a stream of known size to key with the given
// content type, without buffering it into memory first.
func (g *Gateway) PutObjectStream(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(g.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return &apperrors.BlobStoreFailure{Op: "put_object_stream", Err: err}
	}
	return nil
}

// GetPresignedPut mints a presigned PUT URL for key, valid for ttl. A
// zero ttl uses the gateway default (15 minutes).
func (g *Gateway) GetPresignedPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = g.defaultPutTTL
	}
	req, err := g.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &apperrors.BlobStoreFailure{Op: "get_presigned_put", Err: err}
	}
	return req.URL, nil
}

// GetPresignedGet mints a presigned GET URL for key, valid for ttl. A
// zero ttl uses the gateway default (60 minutes).
func (g *Gateway) GetPresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = g.defaultGetTTL
	}
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &apperrors.BlobStoreFailure{Op: "get_presigned_get", Err: err}
	}
	return req.URL, nil
}

// HeadObject reports whether key exists in the bucket.
func (g *Gateway) HeadObject(ctx context.Context, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, &apperrors.BlobStoreFailure{Op: "head_object", Err: err}
}

// DeleteObject deletes key. Deletes are janitorial: a failure is logged
// and swallowed rather than surfaced to the caller.
func (g *Gateway) DeleteObject(ctx context.Context, key string) {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		g.log.Warn("blobstore: delete_object failed, swallowing", "key", key, "error", err)
	}
}

// CopyObject copies srcKey to dstKey within the same bucket, used to
// populate the avatar cache from a freshly generated video.
func (g *Gateway) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := g.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(g.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(g.bucket + "/" + srcKey),
	})
	if err != nil {
		return &apperrors.BlobStoreFailure{Op: "copy_object", Err: err}
	}
	return nil
}

// BuildResponseKey computes the bit-exact key for an answer-video upload,
// per spec.md §4.1: interviews/{user}/{interview}/response_{question}_{epochMillis}.webm
func BuildResponseKey(userID, interviewID, questionID string, epochMillis int64) string {
	return fmt.Sprintf("interviews/%s/%s/response_%s_%d.webm", userID, interviewID, questionID, epochMillis)
}

// BuildResumeKey computes the key for a resume upload. ext must be one of
// ".pdf" or ".docx"; any other value defaults to ".pdf".
func BuildResumeKey(userID string, epochMillis int64, ext string) string {
	if ext != ".pdf" && ext != ".docx" {
		ext = ".pdf"
	}
	return fmt.Sprintf("resumes/%s/resume_%d%s", userID, epochMillis, ext)
}

// BuildTTSKey computes the key a freshly generated TTS clip is PUT to.
func BuildTTSKey(questionID string, epochMillis int64) string {
	return fmt.Sprintf("tts/question_%s_%d.mp3", questionID, epochMillis)
}

// BuildAvatarVideoKey computes the key a freshly generated avatar video
// is PUT to, before it is copied into the content-addressed cache.
func BuildAvatarVideoKey(questionID string, epochMillis int64) string {
	return fmt.Sprintf("avatar-videos/question_%s_%d.mp4", questionID, epochMillis)
}

// BuildAvatarCacheKey computes the content-addressed cache key for an
// avatar video given its fingerprint.
func BuildAvatarCacheKey(fingerprint string) string {
	return fmt.Sprintf("avatar-cache/%s.mp4", fingerprint)
}
