// Package tts defines the Provider interface for text-to-speech
// backends used by the avatar pipeline.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text using voice and returns the resulting MP3
	// audio bytes.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)
}
