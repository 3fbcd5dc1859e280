// Package config provides the configuration schema and loader for the
// interview orchestration service.
//
// Non-secret structure (server settings, vendor base URLs, resilience
// tuning, recovery timeouts) is loaded from a YAML file. Every secret
// (database password, JWT signing key, vendor API keys) is read from the
// environment and has no default: a missing secret is a fatal startup
// error. See [Load].
package config

import "time"

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Blob     BlobConfig     `yaml:"blob"`
	Auth     AuthConfig     `yaml:"auth"`
	Vendors  VendorsConfig  `yaml:"vendors"`
	Recovery RecoveryConfig `yaml:"recovery"`
	External ExternalConfig `yaml:"external"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Port is the TCP port the HTTP server listens on. Default 8080.
	Port int `yaml:"port"`

	// LogLevel controls slog verbosity. Valid values: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ShutdownGrace is how long in-flight HTTP requests are given to finish
	// before the process exits. Background pipelines are not waited for.
	// Default 10s.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// DatabaseConfig holds Postgres connection settings. Password is sourced
// from the DB_PASSWORD environment variable, never from YAML.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Password string `yaml:"-"`

	// MaxConns bounds the pgxpool connection pool size. Default 10.
	MaxConns int32 `yaml:"max_conns"`
}

// BlobConfig holds object store settings. Credentials are sourced from the
// ambient AWS environment/config chain, not from YAML, unless
// AccessKeyID/SecretAccessKey are explicitly set via environment variables.
type BlobConfig struct {
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
	Endpoint string `yaml:"endpoint"` // non-empty to target an S3-compatible store

	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`

	// PresignedGetTTL defaults to 60 minutes.
	PresignedGetTTL time.Duration `yaml:"presigned_get_ttl"`
	// PresignedPutTTL defaults to 15 minutes.
	PresignedPutTTL time.Duration `yaml:"presigned_put_ttl"`
}

// AuthConfig holds the bearer-token verification secret. JWTSecret has no
// default and must come from the JWT_SIGNING_SECRET environment variable.
type AuthConfig struct {
	JWTSecret string `yaml:"-"`
}

// VendorsConfig declares connection details and resilience tuning for each
// external AI vendor.
type VendorsConfig struct {
	QuestionGen VendorConfig `yaml:"question_gen"`
	TTS         VendorConfig `yaml:"tts"`
	Avatar      VendorConfig `yaml:"avatar"`
	STT         VendorConfig `yaml:"stt"`
	FeedbackGen VendorConfig `yaml:"feedback_gen"`

	// QuestionCount is how many questions START generates per interview.
	// Configurable per spec's open question about the 5-vs-10 discrepancy;
	// defaults to 10.
	QuestionCount int `yaml:"question_count"`

	// VoiceProfile is the default TTS voice configuration.
	VoiceProfile VoiceProfileConfig `yaml:"voice_profile"`

	// PortraitURL is the talking-head portrait image handed to the avatar
	// vendor for every question (single interviewer persona).
	PortraitURL string `yaml:"portrait_url"`

	// OpenAIModel selects the model used by the OpenAI-backed question-gen
	// and feedback-gen adapters. Defaults to "gpt-4o-mini".
	OpenAIModel string `yaml:"openai_model"`
}

// VoiceProfileConfig is the default TTS voice profile, per spec.md §4.3.
type VoiceProfileConfig struct {
	VoiceID         string  `yaml:"voice_id"`
	ModelID         string  `yaml:"model_id"`
	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`
}

// VendorConfig is the common block for one external AI vendor.
type VendorConfig struct {
	// BaseURL has a built-in default per vendor; leave empty to use it.
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`

	// MaxInFlight is the in-flight call cap for this vendor. Only the
	// avatar vendor's value is applied, as the avatar fan-out limit; the
	// other vendors' values are not applied. Default 5.
	MaxInFlight int `yaml:"max_in_flight"`

	Retry   RetryConfig   `yaml:"retry"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// RetryConfig tunes the [resilience.Retrier] for one vendor.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// BreakerConfig tunes the [resilience.CircuitBreaker] for one vendor.
type BreakerConfig struct {
	WindowSize   int           `yaml:"window_size"`
	FailureRatio float64       `yaml:"failure_ratio"`
	OpenDuration time.Duration `yaml:"open_duration"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// ExternalConfig holds connection details for the collaborating services
// that own resume storage and job-role catalogue data. These are read-only
// lookups, not AI vendors, and are not wrapped by the resilience registry.
type ExternalConfig struct {
	Resume  ExternalServiceConfig `yaml:"resume"`
	JobRole ExternalServiceConfig `yaml:"job_role"`
}

// ExternalServiceConfig is the common block for one external collaborator.
type ExternalServiceConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

// RecoveryConfig tunes the recovery sweeper, per spec.md §4.9.
type RecoveryConfig struct {
	// Interval between sweep passes. Default 5m.
	Interval time.Duration `yaml:"interval"`
	// InitialDelay before the first pass. Default 60s.
	InitialDelay time.Duration `yaml:"initial_delay"`
	// VideoTimeout is T_video. Default 15m.
	VideoTimeout time.Duration `yaml:"video_timeout"`
	// ProcessingTimeout is T_proc. Default 30m.
	ProcessingTimeout time.Duration `yaml:"processing_timeout"`
}
