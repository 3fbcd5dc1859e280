package config_test

import (
	"strings"
	"testing"

	"github.com/interviewsim/orchestrator/internal/config"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SIGNING_SECRET", "s3cr3t")
	t.Setenv("DB_PASSWORD", "dbpass")
	t.Setenv("QUESTIONGEN_API_KEY", "qg-key")
	t.Setenv("TTS_API_KEY", "tts-key")
	t.Setenv("AVATAR_API_KEY", "avatar-key")
	t.Setenv("STT_API_KEY", "stt-key")
	t.Setenv("FEEDBACKGEN_API_KEY", "fg-key")
}

func TestLoadFromReader_MissingJWTSecretIsFatal(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", "")
	t.Setenv("DB_PASSWORD", "dbpass")
	t.Setenv("QUESTIONGEN_API_KEY", "qg-key")
	t.Setenv("TTS_API_KEY", "tts-key")
	t.Setenv("AVATAR_API_KEY", "avatar-key")
	t.Setenv("STT_API_KEY", "stt-key")
	t.Setenv("FEEDBACKGEN_API_KEY", "fg-key")

	yaml := `
database:
  host: localhost
  name: interviews
blob:
  bucket: interview-media
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error when JWT_SIGNING_SECRET is unset, got nil")
	}
	if !strings.Contains(err.Error(), "JWT_SIGNING_SECRET") {
		t.Errorf("error should mention JWT_SIGNING_SECRET, got: %v", err)
	}
}

func TestLoadFromReader_MissingVendorKeyIsFatal(t *testing.T) {
	setSecrets(t)
	t.Setenv("AVATAR_API_KEY", "")

	yaml := `
database:
  host: localhost
  name: interviews
blob:
  bucket: interview-media
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing avatar API key, got nil")
	}
	if !strings.Contains(err.Error(), "AVATAR_API_KEY") {
		t.Errorf("error should mention AVATAR_API_KEY, got: %v", err)
	}
}

func TestLoadFromReader_DefaultsApplied(t *testing.T) {
	setSecrets(t)

	yaml := `
database:
  host: localhost
  name: interviews
blob:
  bucket: interview-media
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Vendors.QuestionCount != 10 {
		t.Errorf("expected default question count 10, got %d", cfg.Vendors.QuestionCount)
	}
	if cfg.Vendors.Avatar.Breaker.OpenDuration.String() != "1m0s" {
		t.Errorf("expected avatar open duration default 60s, got %s", cfg.Vendors.Avatar.Breaker.OpenDuration)
	}
	if cfg.Vendors.QuestionGen.Breaker.OpenDuration.String() != "30s" {
		t.Errorf("expected question-gen open duration default 30s, got %s", cfg.Vendors.QuestionGen.Breaker.OpenDuration)
	}
	if cfg.Vendors.Avatar.Breaker.FailureRatio != 0.3 {
		t.Errorf("expected avatar failure ratio default 0.3, got %v", cfg.Vendors.Avatar.Breaker.FailureRatio)
	}
	if cfg.Vendors.QuestionGen.Breaker.FailureRatio != 0.5 {
		t.Errorf("expected question-gen failure ratio default 0.5, got %v", cfg.Vendors.QuestionGen.Breaker.FailureRatio)
	}
}

func TestLoadFromReader_QuestionCountConfigurable(t *testing.T) {
	setSecrets(t)

	yaml := `
database:
  host: localhost
  name: interviews
blob:
  bucket: interview-media
vendors:
  question_count: 5
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Vendors.QuestionCount != 5 {
		t.Errorf("expected configured question count 5, got %d", cfg.Vendors.QuestionCount)
	}
}

func TestLoadFromReader_MissingBucketFails(t *testing.T) {
	setSecrets(t)

	yaml := `
database:
  host: localhost
  name: interviews
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing blob bucket, got nil")
	}
	if !strings.Contains(err.Error(), "blob.bucket") {
		t.Errorf("error should mention blob.bucket, got: %v", err)
	}
}
