package avatarpipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/interviewsim/orchestrator/internal/interview"
)

// FanOut runs GenerateAvatar for every question concurrently, bounded by
// Pipeline.maxInFlight, and persists each outcome: a successful render
// sets the question's avatar key and publishes avatar-ready; an
// exhausted/failed render leaves the key unset and publishes
// avatar-failed. Per-question failures are isolated from one another, per
// spec.md §4.4 — this never returns an error for an individual question's
// failure.
func (p *Pipeline) FanOut(ctx context.Context, interviewID string, questions []interview.Question) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxInFlight)

	for i := range questions {
		q := questions[i]
		g.Go(func() error {
			p.processOne(gctx, interviewID, q)
			return nil
		})
	}

	// Every task above always returns nil; Wait only ever surfaces a
	// context cancellation, which a caller driving a background worker
	// from a cancelled root context can safely ignore.
	_ = g.Wait()
}

func (p *Pipeline) processOne(ctx context.Context, interviewID string, q interview.Question) {
	key, err := p.GenerateAvatar(ctx, q.ID, q.Text)
	if err != nil {
		p.log.Warn("avatarpipeline: question avatar generation failed, leaving unset",
			"interview_id", interviewID, "question_id", q.ID, "error", err)
		if p.hub != nil {
			p.hub.AvatarFailed(interviewID, q.ID)
		}
		return
	}

	if err := p.questionRepo.SetAvatarKey(ctx, p.db, q.ID, key); err != nil {
		p.log.Warn("avatarpipeline: persisting avatar key failed",
			"interview_id", interviewID, "question_id", q.ID, "error", err)
		if p.hub != nil {
			p.hub.AvatarFailed(interviewID, q.ID)
		}
		return
	}

	if p.hub != nil {
		presignedURL, err := p.blob.GetPresignedGet(ctx, key, 0)
		if err != nil {
			p.log.Warn("avatarpipeline: minting presigned URL for notify failed", "error", err)
		}
		p.hub.AvatarReady(interviewID, q.ID, presignedURL)
	}
}
