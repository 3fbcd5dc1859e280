package fingerprint_test

import (
	"testing"

	"github.com/interviewsim/orchestrator/internal/fingerprint"
)

func TestNormalize_CaseAndWhitespaceInsensitive(t *testing.T) {
	got := fingerprint.Normalize("  Tell Me\tAbout\n\nYourself  ")
	want := "tell me about yourself"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTTS_EqualAfterNormalization(t *testing.T) {
	voice := fingerprint.VoiceProfile{VoiceID: "v1", ModelID: "eleven_flash_v2_5", Stability: 0.5, SimilarityBoost: 0.75}

	a := fingerprint.TTS("Tell me about yourself", voice)
	b := fingerprint.TTS("  TELL ME\tABOUT YOURSELF", voice)

	if a != b {
		t.Fatalf("fingerprints differ for inputs equal after normalization: %q != %q", a, b)
	}
}

func TestTTS_DifferentVoiceDiffers(t *testing.T) {
	a := fingerprint.TTS("hello", fingerprint.VoiceProfile{VoiceID: "v1"})
	b := fingerprint.TTS("hello", fingerprint.VoiceProfile{VoiceID: "v2"})
	if a == b {
		t.Fatal("expected different fingerprints for different voice profiles")
	}
}

func TestAvatar_IncludesPortraitURL(t *testing.T) {
	voice := fingerprint.VoiceProfile{VoiceID: "v1"}
	a := fingerprint.Avatar("hello", voice, "https://example.com/a.png")
	b := fingerprint.Avatar("hello", voice, "https://example.com/b.png")
	if a == b {
		t.Fatal("expected different fingerprints for different portrait URLs")
	}
}

func TestAvatar_Is64HexChars(t *testing.T) {
	got := fingerprint.Avatar("hello", fingerprint.VoiceProfile{}, "")
	if len(got) != 64 {
		t.Fatalf("expected a 64-char hex sha256 digest, got %d chars: %q", len(got), got)
	}
	for _, r := range got {
		if !isHexDigit(r) {
			t.Fatalf("non-hex character in fingerprint: %q", got)
		}
	}
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}
