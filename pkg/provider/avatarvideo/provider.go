// Package avatarvideo defines the Provider interface for lip-synced avatar
// video rendering backends used by the avatar pipeline.
//
// Rendering is a two-step job: CreateTalk submits a render job and returns a
// vendor job ID; PollTalk is called repeatedly until the job reaches a
// terminal status. Implementations must be safe for concurrent use.
package avatarvideo

import "context"

// Status is the lifecycle state of an avatar render job as reported by the
// vendor's poll endpoint.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// CreateTalkRequest carries everything a vendor needs to render a talking
// avatar clip from a voice track and a still portrait.
type CreateTalkRequest struct {
	// AudioURL is a presigned GET URL the vendor fetches the voice track from.
	AudioURL string
	// PortraitURL is a presigned GET URL (or public URL) of the still image.
	PortraitURL string
	// PadAudioSeconds adds silence before/after the voice track, smoothing
	// lip-sync at the render boundaries.
	PadAudioSeconds float64
	// Fluent requests the vendor's higher-fluency rendering mode, where
	// supported.
	Fluent bool
}

// PollResult is a single poll response for an in-flight render job.
type PollResult struct {
	Status Status
	// ResultURL is set once Status is StatusDone.
	ResultURL string
	// Error carries vendor-reported detail once Status is StatusError.
	Error string
}

// Provider is the abstraction over any avatar video rendering backend.
type Provider interface {
	// CreateTalk submits a render job and returns a vendor-assigned job ID.
	CreateTalk(ctx context.Context, req CreateTalkRequest) (jobID string, err error)

	// PollTalk reports the current status of a previously submitted job.
	PollTalk(ctx context.Context, jobID string) (PollResult, error)
}
