// Package sweeper implements the recovery sweeper from spec.md §4.9: a
// periodic, single-threaded pass that rescues interviews stuck in a
// transient status for longer than their configured timeout.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/interview"
)

const (
	defaultInterval          = 5 * time.Minute
	defaultInitialDelay      = 60 * time.Second
	defaultVideoTimeout      = 15 * time.Minute
	defaultProcessingTimeout = 30 * time.Minute
)

// Config configures a [Sweeper].
type Config struct {
	Interviews *db.InterviewRepo
	DB         db.DB
	Log        *slog.Logger

	// Interval is the fixed delay between sweep passes, measured from the
	// end of one pass to the start of the next (not fixed-rate), per
	// spec.md §5. Defaults to 5 minutes.
	Interval time.Duration
	// InitialDelay before the first pass. Defaults to 60 seconds.
	InitialDelay time.Duration
	// VideoTimeout (T_video) is how long an interview may sit in
	// GENERATING_VIDEOS before it is rescued into IN_PROGRESS with
	// text-only fallback. Defaults to 15 minutes.
	VideoTimeout time.Duration
	// ProcessingTimeout (T_proc) is how long an interview may sit in
	// PROCESSING before it is rescued into FAILED. Defaults to 30 minutes.
	ProcessingTimeout time.Duration
}

// Sweeper runs the recovery pass on a fixed-delay ticker. It is
// single-flight: SweepNow and the periodic loop share one mutex, so a slow
// pass is never overlapped by the next tick.
type Sweeper struct {
	interviews *db.InterviewRepo
	db         db.DB
	log        *slog.Logger

	interval          time.Duration
	initialDelay      time.Duration
	videoTimeout      time.Duration
	processingTimeout time.Duration

	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Sweeper from cfg, applying spec.md §4.9's defaults for any
// zero-valued timing field.
func New(cfg Config) *Sweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	initialDelay := cfg.InitialDelay
	if initialDelay <= 0 {
		initialDelay = defaultInitialDelay
	}
	videoTimeout := cfg.VideoTimeout
	if videoTimeout <= 0 {
		videoTimeout = defaultVideoTimeout
	}
	processingTimeout := cfg.ProcessingTimeout
	if processingTimeout <= 0 {
		processingTimeout = defaultProcessingTimeout
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Sweeper{
		interviews:        cfg.Interviews,
		db:                cfg.DB,
		log:               log,
		interval:          interval,
		initialDelay:      initialDelay,
		videoTimeout:      videoTimeout,
		processingTimeout: processingTimeout,
		done:              make(chan struct{}),
	}
}

// Start begins the periodic sweep loop in a background goroutine. It runs
// until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop halts the sweep loop. Safe to call multiple times.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *Sweeper) loop(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-s.done:
		return
	case <-time.After(s.initialDelay):
	}

	for {
		s.SweepNow(ctx)

		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-time.After(s.interval):
		}
	}
}

// SweepNow runs one recovery pass immediately. Safe to call concurrently
// with the periodic loop — the mutex serializes passes so two never run at
// once.
func (s *Sweeper) SweepNow(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rescueStuckVideos(ctx)
	s.rescueStuckProcessing(ctx)
}

// rescueStuckVideos moves interviews stuck in GENERATING_VIDEOS past
// VideoTimeout into IN_PROGRESS, with a text-only fallback: whichever
// questions never got an avatar simply present without one.
func (s *Sweeper) rescueStuckVideos(ctx context.Context) {
	ivs, err := s.interviews.ListStuckInStatus(ctx, s.db, interview.StatusGeneratingVideos)
	if err != nil {
		s.log.Error("sweeper: list stuck generating_videos failed", "error", err)
		return
	}

	now := time.Now()
	for _, iv := range ivs {
		elapsed := now.Sub(iv.CreatedAt)
		if elapsed < s.videoTimeout {
			continue
		}

		err := s.interviews.CompareAndTransition(ctx, s.db, iv.ID, iv.Version, interview.StatusInProgress, nil, nil)
		if err != nil {
			if isIllegalState(err) {
				// Someone else (the avatar-pipeline completion path) already
				// moved it on; nothing to rescue.
				continue
			}
			s.log.Error("sweeper: rescue generating_videos failed", "interview_id", iv.ID, "error", err)
			continue
		}
		s.log.Info("sweeper: rescued stuck interview to in_progress with text-only fallback",
			"interview_id", iv.ID, "user_id", iv.UserID, "elapsed", elapsed)
	}
}

// rescueStuckProcessing moves interviews stuck in PROCESSING past
// ProcessingTimeout into FAILED. Elapsed time is measured from
// CompletedAt if set (it is set on entry to PROCESSING by Complete),
// otherwise from CreatedAt.
func (s *Sweeper) rescueStuckProcessing(ctx context.Context) {
	ivs, err := s.interviews.ListStuckInStatus(ctx, s.db, interview.StatusProcessing)
	if err != nil {
		s.log.Error("sweeper: list stuck processing failed", "error", err)
		return
	}

	now := time.Now()
	for _, iv := range ivs {
		reference := iv.CreatedAt
		if iv.CompletedAt != nil {
			reference = *iv.CompletedAt
		}
		elapsed := now.Sub(reference)
		if elapsed < s.processingTimeout {
			continue
		}

		err := s.interviews.CompareAndTransition(ctx, s.db, iv.ID, iv.Version, interview.StatusFailed, nil, nil)
		if err != nil {
			if isIllegalState(err) {
				continue
			}
			s.log.Error("sweeper: rescue processing failed", "interview_id", iv.ID, "error", err)
			continue
		}
		s.log.Info("sweeper: rescued stuck interview to failed",
			"interview_id", iv.ID, "user_id", iv.UserID, "elapsed", elapsed)
	}
}

func isIllegalState(err error) bool {
	var illegal *apperrors.IllegalState
	return errors.As(err, &illegal)
}
