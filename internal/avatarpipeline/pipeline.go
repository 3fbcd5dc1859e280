// Package avatarpipeline implements the per-question avatar-generation
// pipeline: text-to-speech, a vendor-rendered talking-head video, and the
// content-addressed caches that let identical questions across interviews
// skip both vendor calls entirely.
package avatarpipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/fingerprint"
	"github.com/interviewsim/orchestrator/internal/notify"
	"github.com/interviewsim/orchestrator/internal/resilience"
	"github.com/interviewsim/orchestrator/pkg/blobstore"
	"github.com/interviewsim/orchestrator/pkg/provider/avatarvideo"
	"github.com/interviewsim/orchestrator/pkg/provider/tts"
)

const (
	defaultPollInterval    = 3 * time.Second
	defaultPollMaxAttempts = 60

	avatarCacheExpiry = 30 * 24 * time.Hour
	presignedGetTTL   = 60 * time.Minute
)

// blobStore is the narrow slice of [blobstore.Gateway] the pipeline needs.
// Declaring it here, rather than depending on the concrete Gateway type,
// lets tests substitute an in-memory fake.
type blobStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GetPresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	HeadObject(ctx context.Context, key string) (bool, error)
	CopyObject(ctx context.Context, srcKey, dstKey string) error
}

// Pipeline runs generate_avatar for individual questions and fans out
// across an interview's question set with bounded concurrency.
type Pipeline struct {
	db              db.DB
	questionRepo    *db.QuestionRepo
	ttsCacheRepo    *db.TtsCacheRepo
	avatarCacheRepo *db.AvatarCacheRepo

	blob blobStore

	ttsProvider    tts.Provider
	avatarProvider avatarvideo.Provider

	ttsPolicy    *resilience.Policy
	avatarPolicy *resilience.Policy

	voice       tts.VoiceProfile
	portraitURL string

	maxInFlight int

	hub *notify.Hub

	httpClient *http.Client
	log        *slog.Logger

	pollInterval    time.Duration
	pollMaxAttempts int
}

// Config configures a [Pipeline].
type Config struct {
	DB              db.DB
	QuestionRepo    *db.QuestionRepo
	TtsCacheRepo    *db.TtsCacheRepo
	AvatarCacheRepo *db.AvatarCacheRepo

	Blob *blobstore.Gateway

	TTSProvider    tts.Provider
	AvatarProvider avatarvideo.Provider

	TTSPolicy    *resilience.Policy
	AvatarPolicy *resilience.Policy

	Voice       tts.VoiceProfile
	PortraitURL string

	MaxInFlight int

	Hub *notify.Hub

	HTTPClient *http.Client
	Log        *slog.Logger

	// PollInterval and PollMaxAttempts override the vendor poll loop's
	// timing. Tests shrink these; production leaves them at zero to get
	// the spec's 3s/60-attempt defaults.
	PollInterval    time.Duration
	PollMaxAttempts int
}

// New creates a Pipeline from cfg, applying defaults for zero-valued
// optional fields.
func New(cfg Config) *Pipeline {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 5
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	pollMaxAttempts := cfg.PollMaxAttempts
	if pollMaxAttempts <= 0 {
		pollMaxAttempts = defaultPollMaxAttempts
	}

	return &Pipeline{
		db:              cfg.DB,
		questionRepo:    cfg.QuestionRepo,
		ttsCacheRepo:    cfg.TtsCacheRepo,
		avatarCacheRepo: cfg.AvatarCacheRepo,
		blob:            cfg.Blob,
		ttsProvider:     cfg.TTSProvider,
		avatarProvider:  cfg.AvatarProvider,
		ttsPolicy:       cfg.TTSPolicy,
		avatarPolicy:    cfg.AvatarPolicy,
		voice:           cfg.Voice,
		portraitURL:     cfg.PortraitURL,
		maxInFlight:     maxInFlight,
		hub:             cfg.Hub,
		httpClient:      httpClient,
		log:             log,
		pollInterval:    pollInterval,
		pollMaxAttempts: pollMaxAttempts,
	}
}

// GenerateAvatar implements spec.md §4.4's generate_avatar operation for a
// single question, returning the canonical blob-store key for its avatar
// video. On any failure it returns the error and leaves the question's
// avatar key unset; the caller (Fan-out) treats this as an isolated,
// absorbed failure.
func (p *Pipeline) GenerateAvatar(ctx context.Context, questionID, questionText string) (string, error) {
	fp := fingerprint.Avatar(questionText, fingerprint.VoiceProfile{
		VoiceID:         p.voice.VoiceID,
		ModelID:         p.voice.ModelID,
		Stability:       p.voice.Stability,
		SimilarityBoost: p.voice.SimilarityBoost,
	}, p.portraitURL)

	cacheKey := blobstore.BuildAvatarCacheKey(fp)

	hit, err := p.blob.HeadObject(ctx, cacheKey)
	if err != nil {
		return "", err
	}
	if hit {
		return cacheKey, nil
	}

	audioKey, err := p.resolveTTSAudio(ctx, questionID, questionText)
	if err != nil {
		return "", err
	}

	audioURL, err := p.blob.GetPresignedGet(ctx, audioKey, presignedGetTTL)
	if err != nil {
		return "", err
	}

	var jobID string
	err = p.avatarPolicy.Execute(ctx, func(ctx context.Context) error {
		var createErr error
		jobID, createErr = p.avatarProvider.CreateTalk(ctx, avatarvideo.CreateTalkRequest{
			AudioURL:    audioURL,
			PortraitURL: p.portraitURL,
		})
		return createErr
	})
	if err != nil {
		return "", err
	}

	resultURL, err := p.pollTalk(ctx, jobID)
	if err != nil {
		return "", err
	}

	videoBytes, err := p.fetchResult(ctx, resultURL)
	if err != nil {
		return "", err
	}

	videoKey := blobstore.BuildAvatarVideoKey(questionID, time.Now().UnixMilli())
	if err := p.blob.PutObject(ctx, videoKey, videoBytes, "video/mp4"); err != nil {
		return "", err
	}

	p.populateAvatarCache(ctx, fp, cacheKey, videoKey)

	return videoKey, nil
}

// resolveTTSAudio implements step 3.a: cache lookup, or TextToSpeech under
// resilience followed by a PUT and cache-row write.
func (p *Pipeline) resolveTTSAudio(ctx context.Context, questionID, questionText string) (string, error) {
	fp := fingerprint.TTS(questionText, fingerprint.VoiceProfile{
		VoiceID:         p.voice.VoiceID,
		ModelID:         p.voice.ModelID,
		Stability:       p.voice.Stability,
		SimilarityBoost: p.voice.SimilarityBoost,
	})

	if blobKey, ok, err := p.ttsCacheRepo.Get(ctx, p.db, fp); err != nil {
		return "", err
	} else if ok {
		return blobKey, nil
	}

	var audio []byte
	err := p.ttsPolicy.Execute(ctx, func(ctx context.Context) error {
		var synthErr error
		audio, synthErr = p.ttsProvider.Synthesize(ctx, questionText, p.voice)
		return synthErr
	})
	if err != nil {
		return "", err
	}

	ttsKey := blobstore.BuildTTSKey(questionID, time.Now().UnixMilli())
	if err := p.blob.PutObject(ctx, ttsKey, audio, "audio/mpeg"); err != nil {
		return "", err
	}
	if err := p.ttsCacheRepo.Put(ctx, p.db, fp, ttsKey); err != nil {
		p.log.Warn("avatarpipeline: tts cache write failed, continuing", "error", err)
	}
	return ttsKey, nil
}

// pollTalk implements step 3.d.
func (p *Pipeline) pollTalk(ctx context.Context, jobID string) (string, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.pollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			res, err := p.avatarProvider.PollTalk(ctx, jobID)
			if err != nil {
				return "", err
			}
			switch res.Status {
			case avatarvideo.StatusDone:
				return res.ResultURL, nil
			case avatarvideo.StatusError:
				return "", fmt.Errorf("avatarpipeline: vendor reported error: %s", res.Error)
			}
		}
	}
	return "", &apperrors.Timeout{Stage: "avatar"}
}

// fetchResult downloads the rendered video from the vendor's result URL.
func (p *Pipeline) fetchResult(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("avatarpipeline: build fetch request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatarpipeline: fetch result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatarpipeline: fetch result: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// populateAvatarCache implements step 3.e's copy-into-cache. Failure is
// logged and swallowed: the freshly generated key is still returned to the
// caller.
func (p *Pipeline) populateAvatarCache(ctx context.Context, fp, cacheKey, videoKey string) {
	exists, err := p.blob.HeadObject(ctx, cacheKey)
	if err != nil {
		p.log.Warn("avatarpipeline: cache head check failed, skipping populate", "error", err)
		return
	}
	if exists {
		return
	}
	if err := p.blob.CopyObject(ctx, videoKey, cacheKey); err != nil {
		p.log.Warn("avatarpipeline: cache copy failed, non-fatal", "error", err)
		return
	}
	expiresAt := time.Now().Add(avatarCacheExpiry)
	if err := p.avatarCacheRepo.Put(ctx, p.db, fp, cacheKey, &expiresAt); err != nil {
		p.log.Warn("avatarpipeline: avatar cache row write failed, non-fatal", "error", err)
	}
}
