package tts

// VoiceProfile selects the voice, model, and delivery parameters a TTS
// vendor uses to synthesize audio, per spec.md §4.3.
type VoiceProfile struct {
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}
