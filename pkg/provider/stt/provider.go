// Package stt defines the Provider interface for speech-to-text backends
// used to transcribe uploaded answer videos.
//
// Transcription is an asynchronous job: Submit hands the vendor a presigned
// GET URL for the audio/video and returns a job ID; Poll is called
// repeatedly until the job reaches a terminal status. Implementations must
// be safe for concurrent use.
package stt

import "context"

// Status is the lifecycle state of a transcription job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// PollResult is a single poll response for an in-flight transcription job.
type PollResult struct {
	Status Status
	// Text is set once Status is StatusDone.
	Text string
	// Confidence is the vendor-reported confidence in [0,1], set once Status
	// is StatusDone.
	Confidence float64
	// Error carries vendor-reported detail once Status is StatusError.
	Error string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Submit hands the vendor a presigned GET URL for the source media and a
	// BCP-47 language code, returning a vendor-assigned job ID.
	Submit(ctx context.Context, audioURL, languageCode string) (jobID string, err error)

	// Poll reports the current status of a previously submitted job.
	Poll(ctx context.Context, jobID string) (PollResult, error)
}
