package avatarpipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/fingerprint"
	"github.com/interviewsim/orchestrator/internal/resilience"
	"github.com/interviewsim/orchestrator/pkg/blobstore"
	"github.com/interviewsim/orchestrator/pkg/provider/avatarvideo"
	avatarmock "github.com/interviewsim/orchestrator/pkg/provider/avatarvideo/mock"
	"github.com/interviewsim/orchestrator/pkg/provider/tts"
	ttsmock "github.com/interviewsim/orchestrator/pkg/provider/tts/mock"
)

func noRetryPolicy(target resilience.Target) *resilience.Policy {
	return resilience.NewPolicy(target, resilience.RetrierConfig{MaxAttempts: 1}, resilience.CircuitBreakerConfig{})
}

func testVoice() tts.VoiceProfile {
	return tts.VoiceProfile{VoiceID: "voice-1", ModelID: "model-1", Stability: 0.5, SimilarityBoost: 0.5}
}

func testFingerprintVoice() fingerprint.VoiceProfile {
	v := testVoice()
	return fingerprint.VoiceProfile{VoiceID: v.VoiceID, ModelID: v.ModelID, Stability: v.Stability, SimilarityBoost: v.SimilarityBoost}
}

const testPortraitURL = "https://example.com/portrait.png"

func ttsFingerprintFor(text string) string {
	return fingerprint.TTS(text, testFingerprintVoice())
}

func avatarFingerprintFor(text string) string {
	return fingerprint.Avatar(text, testFingerprintVoice(), testPortraitURL)
}

func newTestPipeline(t *testing.T, fdb *fakeDB, blob *fakeBlob, ttsProv *ttsmock.Provider, avatarProv *avatarmock.Provider) *Pipeline {
	t.Helper()
	videoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	t.Cleanup(videoServer.Close)

	if len(avatarProv.Results) == 0 {
		avatarProv.Results = []avatarvideo.PollResult{{Status: avatarvideo.StatusDone, ResultURL: videoServer.URL}}
	}

	var d db.DB = fdb
	return New(Config{
		DB:              d,
		QuestionRepo:    db.NewQuestionRepo(),
		TtsCacheRepo:    db.NewTtsCacheRepo(),
		AvatarCacheRepo: db.NewAvatarCacheRepo(),
		Blob:            nil,
		TTSProvider:     ttsProv,
		AvatarProvider:  avatarProv,
		TTSPolicy:       noRetryPolicy(resilience.TargetTTS),
		AvatarPolicy:    noRetryPolicy(resilience.TargetAvatar),
		Voice:           testVoice(),
		PortraitURL:     testPortraitURL,
		PollInterval:    time.Millisecond,
		PollMaxAttempts: 3,
	}).withBlob(blob)
}

// withBlob swaps in a test double after construction, since Config.Blob is
// typed *blobstore.Gateway for production wiring.
func (p *Pipeline) withBlob(b blobStore) *Pipeline {
	p.blob = b
	return p
}

func TestGenerateAvatar_CacheHitShortCircuits(t *testing.T) {
	fdb := newFakeDB()
	blob := newFakeBlob()
	ttsProv := &ttsmock.Provider{}
	avatarProv := &avatarmock.Provider{}

	p := newTestPipeline(t, fdb, blob, ttsProv, avatarProv)

	fp := avatarFingerprintFor("what is a goroutine?")
	cacheKey := blobstore.BuildAvatarCacheKey(fp)
	blob.objects[cacheKey] = []byte("cached-video")

	key, err := p.GenerateAvatar(context.Background(), "q-1", "what is a goroutine?")
	if err != nil {
		t.Fatalf("GenerateAvatar: %v", err)
	}
	if key != cacheKey {
		t.Errorf("expected cache key %q, got %q", cacheKey, key)
	}
	if len(ttsProv.Calls) != 0 {
		t.Error("expected no TTS vendor calls on cache hit")
	}
	if len(avatarProv.CreateCalls()) != 0 {
		t.Error("expected no avatar vendor calls on cache hit")
	}
}

func TestGenerateAvatar_FullMiss(t *testing.T) {
	fdb := newFakeDB()
	blob := newFakeBlob()
	ttsProv := &ttsmock.Provider{Audio: []byte("audio-bytes")}
	avatarProv := &avatarmock.Provider{JobID: "job-1"}

	p := newTestPipeline(t, fdb, blob, ttsProv, avatarProv)

	key, err := p.GenerateAvatar(context.Background(), "q-1", "explain channels")
	if err != nil {
		t.Fatalf("GenerateAvatar: %v", err)
	}
	if key == "" {
		t.Fatal("expected a non-empty video key")
	}
	if len(ttsProv.Calls) != 1 {
		t.Errorf("expected exactly one TTS call, got %d", len(ttsProv.Calls))
	}
	if len(avatarProv.CreateCalls()) != 1 {
		t.Errorf("expected exactly one CreateTalk call, got %d", len(avatarProv.CreateCalls()))
	}

	fp := ttsFingerprintFor("explain channels")
	if blobKey, ok := fdb.ttsCache[fp]; !ok || blobKey == "" {
		t.Error("expected a tts cache row to be written")
	}

	avatarFp := avatarFingerprintFor("explain channels")
	cacheKey := blobstore.BuildAvatarCacheKey(avatarFp)
	if _, ok := blob.objects[cacheKey]; !ok {
		t.Error("expected the avatar cache to be populated from the fresh render")
	}
}

func TestGenerateAvatar_TTSCacheHitSkipsSynthesize(t *testing.T) {
	fdb := newFakeDB()
	blob := newFakeBlob()
	ttsProv := &ttsmock.Provider{Audio: []byte("should not be used")}
	avatarProv := &avatarmock.Provider{JobID: "job-1"}

	p := newTestPipeline(t, fdb, blob, ttsProv, avatarProv)

	fp := ttsFingerprintFor("explain channels")
	fdb.ttsCache[fp] = "tts-audio/precomputed.mp3"
	blob.objects["tts-audio/precomputed.mp3"] = []byte("precomputed")

	_, err := p.GenerateAvatar(context.Background(), "q-1", "explain channels")
	if err != nil {
		t.Fatalf("GenerateAvatar: %v", err)
	}
	if len(ttsProv.Calls) != 0 {
		t.Error("expected Synthesize not to be called when the tts cache already has an entry")
	}
}

func TestGenerateAvatar_PollExhaustionReturnsTimeout(t *testing.T) {
	fdb := newFakeDB()
	blob := newFakeBlob()
	ttsProv := &ttsmock.Provider{Audio: []byte("audio-bytes")}
	avatarProv := &avatarmock.Provider{
		JobID:   "job-1",
		Results: []avatarvideo.PollResult{{Status: avatarvideo.StatusProcessing}},
	}

	p := newTestPipeline(t, fdb, blob, ttsProv, avatarProv)

	_, err := p.GenerateAvatar(context.Background(), "q-1", "explain mutexes")
	var timeoutErr *apperrors.Timeout
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected apperrors.Timeout, got %v", err)
	}
	if timeoutErr.Stage != "avatar" {
		t.Errorf("expected stage avatar, got %q", timeoutErr.Stage)
	}
}

func TestGenerateAvatar_VendorErrorPropagates(t *testing.T) {
	fdb := newFakeDB()
	blob := newFakeBlob()
	ttsProv := &ttsmock.Provider{Audio: []byte("audio-bytes")}
	avatarProv := &avatarmock.Provider{
		JobID:   "job-1",
		Results: []avatarvideo.PollResult{{Status: avatarvideo.StatusError, Error: "render failed"}},
	}

	p := newTestPipeline(t, fdb, blob, ttsProv, avatarProv)

	_, err := p.GenerateAvatar(context.Background(), "q-1", "explain slices")
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestGenerateAvatar_CachePopulateFailureIsNonFatal(t *testing.T) {
	fdb := newFakeDB()
	blob := newFakeBlob()
	blob.copyErr = errors.New("copy boom")
	ttsProv := &ttsmock.Provider{Audio: []byte("audio-bytes")}
	avatarProv := &avatarmock.Provider{JobID: "job-1"}

	p := newTestPipeline(t, fdb, blob, ttsProv, avatarProv)

	key, err := p.GenerateAvatar(context.Background(), "q-1", "explain interfaces")
	if err != nil {
		t.Fatalf("expected cache-populate failure to be swallowed, got %v", err)
	}
	if key == "" {
		t.Fatal("expected the freshly rendered key to still be returned")
	}
}
