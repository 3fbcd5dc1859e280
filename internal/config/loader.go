package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultVendorBaseURLs gives every vendor a working default endpoint so an
// operator only needs to supply API keys to get started.
var defaultVendorBaseURLs = map[string]string{
	"question_gen": "https://api.openai.com/v1",
	"tts":          "https://api.elevenlabs.io/v1",
	"avatar":       "https://api.talkhead.example.com/v1",
	"stt":          "https://api.deepgram.com/v1",
	"feedback_gen": "https://api.openai.com/v1",
}

// Load reads the YAML configuration file at path, layers in required
// secrets from the environment, and validates the result. A missing secret
// is a fatal error — there are no defaults for JWT_SIGNING_SECRET, vendor
// API keys, or the database password.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, applies defaults, pulls in secrets
// from the environment, and validates the result. Exposed for tests that
// build configs from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyDefaults(cfg)
	loadSecrets(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in non-secret fields left at their zero value.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.ShutdownGrace == 0 {
		cfg.Server.ShutdownGrace = 10 * time.Second
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}

	if cfg.Blob.PresignedGetTTL == 0 {
		cfg.Blob.PresignedGetTTL = 60 * time.Minute
	}
	if cfg.Blob.PresignedPutTTL == 0 {
		cfg.Blob.PresignedPutTTL = 15 * time.Minute
	}

	applyVendorDefaults(&cfg.Vendors.QuestionGen, defaultVendorBaseURLs["question_gen"], 0.5)
	applyVendorDefaults(&cfg.Vendors.TTS, defaultVendorBaseURLs["tts"], 0.3)
	applyVendorDefaults(&cfg.Vendors.Avatar, defaultVendorBaseURLs["avatar"], 0.3)
	applyVendorDefaults(&cfg.Vendors.STT, defaultVendorBaseURLs["stt"], 0.3)
	applyVendorDefaults(&cfg.Vendors.FeedbackGen, defaultVendorBaseURLs["feedback_gen"], 0.5)

	// Open duration defaults differ by vendor per spec.md §4.2: 60s for
	// avatar/tts, 30s for question-gen/feedback-gen.
	applyOpenDuration(&cfg.Vendors.QuestionGen, 30*time.Second)
	applyOpenDuration(&cfg.Vendors.TTS, 60*time.Second)
	applyOpenDuration(&cfg.Vendors.Avatar, 60*time.Second)
	applyOpenDuration(&cfg.Vendors.STT, 30*time.Second)
	applyOpenDuration(&cfg.Vendors.FeedbackGen, 30*time.Second)

	if cfg.Vendors.QuestionCount == 0 {
		cfg.Vendors.QuestionCount = 10
	}
	if cfg.Vendors.OpenAIModel == "" {
		cfg.Vendors.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Vendors.VoiceProfile.ModelID == "" {
		cfg.Vendors.VoiceProfile.ModelID = "eleven_flash_v2_5"
	}
	if cfg.Vendors.VoiceProfile.Stability == 0 {
		cfg.Vendors.VoiceProfile.Stability = 0.5
	}
	if cfg.Vendors.VoiceProfile.SimilarityBoost == 0 {
		cfg.Vendors.VoiceProfile.SimilarityBoost = 0.75
	}

	if cfg.Recovery.Interval == 0 {
		cfg.Recovery.Interval = 5 * time.Minute
	}
	if cfg.Recovery.InitialDelay == 0 {
		cfg.Recovery.InitialDelay = 60 * time.Second
	}
	if cfg.Recovery.VideoTimeout == 0 {
		cfg.Recovery.VideoTimeout = 15 * time.Minute
	}
	if cfg.Recovery.ProcessingTimeout == 0 {
		cfg.Recovery.ProcessingTimeout = 30 * time.Minute
	}

	if cfg.External.Resume.BaseURL == "" {
		cfg.External.Resume.BaseURL = "http://resume-service.internal"
	}
	if cfg.External.Resume.Timeout == 0 {
		cfg.External.Resume.Timeout = 5 * time.Second
	}
	if cfg.External.JobRole.BaseURL == "" {
		cfg.External.JobRole.BaseURL = "http://jobrole-service.internal"
	}
	if cfg.External.JobRole.Timeout == 0 {
		cfg.External.JobRole.Timeout = 5 * time.Second
	}
}

func applyVendorDefaults(v *VendorConfig, baseURL string, failureRatio float64) {
	if v.BaseURL == "" {
		v.BaseURL = baseURL
	}
	if v.MaxInFlight == 0 {
		v.MaxInFlight = 5
	}
	if v.Retry.MaxAttempts == 0 {
		v.Retry.MaxAttempts = 3
	}
	if v.Retry.BaseDelay == 0 {
		v.Retry.BaseDelay = time.Second
	}
	if v.Breaker.WindowSize == 0 {
		v.Breaker.WindowSize = 10
	}
	if v.Breaker.FailureRatio == 0 {
		v.Breaker.FailureRatio = failureRatio
	}
	if v.Breaker.HalfOpenMax == 0 {
		v.Breaker.HalfOpenMax = 3
	}
}

func applyOpenDuration(v *VendorConfig, d time.Duration) {
	if v.Breaker.OpenDuration == 0 {
		v.Breaker.OpenDuration = d
	}
}

// loadSecrets pulls every secret field from the environment. Secrets are
// never read from YAML.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Auth.JWTSecret = os.Getenv("JWT_SIGNING_SECRET")
	cfg.Blob.AccessKeyID = os.Getenv("BLOB_ACCESS_KEY_ID")
	cfg.Blob.SecretAccessKey = os.Getenv("BLOB_SECRET_ACCESS_KEY")
	cfg.Vendors.QuestionGen.APIKey = os.Getenv("QUESTIONGEN_API_KEY")
	cfg.Vendors.TTS.APIKey = os.Getenv("TTS_API_KEY")
	cfg.Vendors.Avatar.APIKey = os.Getenv("AVATAR_API_KEY")
	cfg.Vendors.STT.APIKey = os.Getenv("STT_API_KEY")
	cfg.Vendors.FeedbackGen.APIKey = os.Getenv("FEEDBACKGEN_API_KEY")
	cfg.External.Resume.APIKey = os.Getenv("RESUME_SERVICE_API_KEY")
	cfg.External.JobRole.APIKey = os.Getenv("JOBROLE_SERVICE_API_KEY")
}

// Validate checks cfg for missing secrets and structural problems. It
// returns a joined error listing every failure found; a missing secret is
// always fatal, regardless of how many other problems are also found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SIGNING_SECRET is required and has no default"))
	}
	if cfg.Database.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD is required and has no default"))
	}
	if cfg.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if cfg.Blob.Bucket == "" {
		errs = append(errs, errors.New("blob.bucket is required"))
	}

	requireAPIKey(&errs, "QUESTIONGEN_API_KEY", cfg.Vendors.QuestionGen.APIKey)
	requireAPIKey(&errs, "TTS_API_KEY", cfg.Vendors.TTS.APIKey)
	requireAPIKey(&errs, "AVATAR_API_KEY", cfg.Vendors.Avatar.APIKey)
	requireAPIKey(&errs, "STT_API_KEY", cfg.Vendors.STT.APIKey)
	requireAPIKey(&errs, "FEEDBACKGEN_API_KEY", cfg.Vendors.FeedbackGen.APIKey)

	if cfg.Vendors.QuestionCount <= 0 {
		errs = append(errs, fmt.Errorf("vendors.question_count must be positive, got %d", cfg.Vendors.QuestionCount))
	}

	return errors.Join(errs...)
}

func requireAPIKey(errs *[]error, envVar, value string) {
	if value == "" {
		*errs = append(*errs, fmt.Errorf("%s is required and has no default", envVar))
	}
}
