// Command interviewd is the main entry point for the interview
// orchestration service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/auth"
	"github.com/interviewsim/orchestrator/internal/avatarpipeline"
	"github.com/interviewsim/orchestrator/internal/config"
	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/eventbus"
	"github.com/interviewsim/orchestrator/internal/feedbackpipeline"
	"github.com/interviewsim/orchestrator/internal/health"
	"github.com/interviewsim/orchestrator/internal/httpapi"
	"github.com/interviewsim/orchestrator/internal/interview"
	"github.com/interviewsim/orchestrator/internal/interview/external"
	"github.com/interviewsim/orchestrator/internal/notify"
	"github.com/interviewsim/orchestrator/internal/observe"
	"github.com/interviewsim/orchestrator/internal/resilience"
	"github.com/interviewsim/orchestrator/internal/sweeper"
	"github.com/interviewsim/orchestrator/pkg/blobstore"
	"github.com/interviewsim/orchestrator/pkg/provider/avatarvideo/talkhead"
	"github.com/interviewsim/orchestrator/pkg/provider/feedbackgen/openai"
	questiongenopenai "github.com/interviewsim/orchestrator/pkg/provider/questiongen/openai"
	"github.com/interviewsim/orchestrator/pkg/provider/stt/deepgram"
	"github.com/interviewsim/orchestrator/pkg/provider/tts"
	"github.com/interviewsim/orchestrator/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "interviewd: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "interviewd: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("interviewd starting", "config", *configPath, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to init telemetry providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		return 1
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("failed to migrate database", "err", err)
		return 1
	}

	blob, err := buildBlobGateway(ctx, cfg.Blob, logger)
	if err != nil {
		slog.Error("failed to build blob gateway", "err", err)
		return 1
	}

	bus := eventbus.New(logger)
	uow := db.NewUnitOfWork(pool, bus)

	interviews := db.NewInterviewRepo()
	questions := db.NewQuestionRepo()
	responses := db.NewResponseRepo()
	feedbacks := db.NewFeedbackRepo()
	ttsCache := db.NewTtsCacheRepo()
	avatarCache := db.NewAvatarCacheRepo()

	registry := buildResilienceRegistry(cfg.Vendors)

	questionGen, err := questiongenopenai.New(cfg.Vendors.QuestionGen.APIKey, vendorBaseURL(cfg.Vendors.QuestionGen, "https://api.openai.com/v1"), cfg.Vendors.OpenAIModel)
	if err != nil {
		slog.Error("failed to build question-gen provider", "err", err)
		return 1
	}

	ttsProvider, err := elevenlabs.New(cfg.Vendors.TTS.APIKey)
	if err != nil {
		slog.Error("failed to build tts provider", "err", err)
		return 1
	}

	avatarProvider, err := talkhead.New(cfg.Vendors.Avatar.APIKey, talkhead.WithBaseURL(vendorBaseURL(cfg.Vendors.Avatar, "https://api.talkhead.example/v1")))
	if err != nil {
		slog.Error("failed to build avatar provider", "err", err)
		return 1
	}

	sttProvider, err := deepgram.New(cfg.Vendors.STT.APIKey)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}

	feedbackGen, err := openai.New(cfg.Vendors.FeedbackGen.APIKey, vendorBaseURL(cfg.Vendors.FeedbackGen, "https://api.openai.com/v1"), cfg.Vendors.OpenAIModel)
	if err != nil {
		slog.Error("failed to build feedback-gen provider", "err", err)
		return 1
	}

	resumeClient := external.NewResumeClient(cfg.External.Resume.BaseURL, cfg.External.Resume.APIKey, cfg.External.Resume.Timeout)
	jobRoleClient := external.NewJobRoleClient(cfg.External.JobRole.BaseURL, cfg.External.JobRole.APIKey, cfg.External.JobRole.Timeout)

	hub := notify.New()

	avatars := avatarpipeline.New(avatarpipeline.Config{
		DB:              pool,
		QuestionRepo:    questions,
		TtsCacheRepo:    ttsCache,
		AvatarCacheRepo: avatarCache,
		Blob:            blob,
		TTSProvider:     ttsProvider,
		AvatarProvider:  avatarProvider,
		TTSPolicy:       registry.Get(resilience.TargetTTS),
		AvatarPolicy:    registry.Get(resilience.TargetAvatar),
		Voice:           voiceProfile(cfg.Vendors.VoiceProfile),
		PortraitURL:     cfg.Vendors.PortraitURL,
		MaxInFlight:     cfg.Vendors.Avatar.MaxInFlight,
		Hub:             hub,
		Log:             logger,
	})

	feedback := feedbackpipeline.New(feedbackpipeline.Config{
		DB:            pool,
		QuestionRepo:  questions,
		ResponseRepo:  responses,
		FeedbackRepo:  feedbacks,
		InterviewRepo: interviews,
		Provider:      feedbackGen,
		Policy:        registry.Get(resilience.TargetFeedbackGen),
		Log:           logger,
	})

	eventbus.Subscribe(bus, func(ctx context.Context, evt eventbus.QuestionsCreated) {
		onQuestionsCreated(ctx, logger, pool, avatars, interviews, questions, hub, evt)
	})

	svc := interview.New(interview.Config{
		DB:                pool,
		UoW:               uow,
		Blob:              blob,
		Log:               logger,
		Interviews:        interviews,
		Questions:         questions,
		Responses:         responses,
		Feedback:          feedbacks,
		Resumes:           resumeClient,
		JobRoles:          jobRoleClient,
		QuestionGen:       questionGen,
		QuestionGenPolicy: registry.Get(resilience.TargetQuestionGen),
		QuestionCount:     cfg.Vendors.QuestionCount,
		STT:               sttProvider,
		STTPolicy:         registry.Get(resilience.TargetSTT),
		PresignedGetTTL:   cfg.Blob.PresignedGetTTL,
		PresignedPutTTL:   cfg.Blob.PresignedPutTTL,
		OnComplete: func(interviewID, userID string, expectVersion int64) {
			runFeedback(context.Background(), logger, feedback, interviewID, userID, expectVersion)
		},
	})

	sweep := sweeper.New(sweeper.Config{
		Interviews:        interviews,
		DB:                pool,
		Log:               logger,
		Interval:          cfg.Recovery.Interval,
		InitialDelay:      cfg.Recovery.InitialDelay,
		VideoTimeout:      cfg.Recovery.VideoTimeout,
		ProcessingTimeout: cfg.Recovery.ProcessingTimeout,
	})
	sweep.Start(ctx)
	defer sweep.Stop()

	authenticator, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		slog.Error("failed to build authenticator", "err", err)
		return 1
	}

	mux := http.NewServeMux()
	httpapi.New(svc, hub, authenticator, logger).Register(mux)
	health.New(health.Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	}).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: observe.Middleware(metrics)(mux),
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "err", err)
			return 1
		}
	}

	shutdownGrace := cfg.Server.ShutdownGrace
	if shutdownGrace <= 0 {
		shutdownGrace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// onQuestionsCreated drives the avatar fan-out for a freshly started
// interview, then advances it past GENERATING_VIDEOS once [FanOut]
// returns — every question has an outcome by then, ready or
// absorbed-failed — and notifies any SSE subscriber, per spec.md §4.8.
func onQuestionsCreated(ctx context.Context, log *slog.Logger, pool db.DB, avatars *avatarpipeline.Pipeline, interviews *db.InterviewRepo, questions *db.QuestionRepo, hub *notify.Hub, evt eventbus.QuestionsCreated) {
	qs, err := questions.ListByInterview(ctx, pool, evt.InterviewID)
	if err != nil {
		log.Error("questions_created: failed to load questions", "interview_id", evt.InterviewID, "err", err)
		return
	}

	avatars.FanOut(ctx, evt.InterviewID, qs)

	iv, err := interviews.GetByID(ctx, pool, evt.InterviewID)
	if err != nil {
		log.Error("questions_created: failed to reload interview", "interview_id", evt.InterviewID, "err", err)
		return
	}
	if iv.Status != interview.StatusGeneratingVideos {
		return
	}
	if err := interviews.CompareAndTransition(ctx, pool, iv.ID, iv.Version, interview.StatusInProgress, nil, nil); err != nil {
		var illegal *apperrors.IllegalState
		if !errors.As(err, &illegal) {
			log.Error("questions_created: failed to transition interview", "interview_id", evt.InterviewID, "err", err)
		}
		return
	}
	hub.InterviewReady(evt.InterviewID)
}

// runFeedback invokes the feedback pipeline for a completed interview and
// logs a failure rather than propagating it — COMPLETE already returned to
// the caller, so there is no request left to fail.
func runFeedback(ctx context.Context, log *slog.Logger, pipeline *feedbackpipeline.Pipeline, interviewID, userID string, expectVersion int64) {
	if err := pipeline.Run(ctx, interviewID, userID, expectVersion); err != nil {
		log.Error("feedback pipeline failed", "interview_id", interviewID, "err", err)
	}
}

func buildBlobGateway(ctx context.Context, cfg config.BlobConfig, log *slog.Logger) (*blobstore.Gateway, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return blobstore.New(client, cfg.Bucket,
		blobstore.WithDefaultGetTTL(cfg.PresignedGetTTL),
		blobstore.WithDefaultPutTTL(cfg.PresignedPutTTL),
		blobstore.WithLogger(log),
	), nil
}

func buildResilienceRegistry(cfg config.VendorsConfig) *resilience.Registry {
	reg := resilience.NewRegistry()
	reg.Register(resilience.TargetQuestionGen, buildPolicy(resilience.TargetQuestionGen, cfg.QuestionGen))
	reg.Register(resilience.TargetTTS, buildPolicy(resilience.TargetTTS, cfg.TTS))
	reg.Register(resilience.TargetAvatar, buildPolicy(resilience.TargetAvatar, cfg.Avatar))
	reg.Register(resilience.TargetSTT, buildPolicy(resilience.TargetSTT, cfg.STT))
	reg.Register(resilience.TargetFeedbackGen, buildPolicy(resilience.TargetFeedbackGen, cfg.FeedbackGen))
	return reg
}

func buildPolicy(target resilience.Target, vc config.VendorConfig) *resilience.Policy {
	return resilience.NewPolicy(target,
		resilience.RetrierConfig{
			MaxAttempts: vc.Retry.MaxAttempts,
			BaseDelay:   vc.Retry.BaseDelay,
		},
		resilience.CircuitBreakerConfig{
			WindowSize:   vc.Breaker.WindowSize,
			FailureRatio: vc.Breaker.FailureRatio,
			OpenDuration: vc.Breaker.OpenDuration,
			HalfOpenMax:  vc.Breaker.HalfOpenMax,
		},
	)
}

func vendorBaseURL(vc config.VendorConfig, fallback string) string {
	if vc.BaseURL != "" {
		return vc.BaseURL
	}
	return fallback
}

func voiceProfile(vc config.VoiceProfileConfig) tts.VoiceProfile {
	return tts.VoiceProfile{
		VoiceID:         vc.VoiceID,
		ModelID:         vc.ModelID,
		Stability:       vc.Stability,
		SimilarityBoost: vc.SimilarityBoost,
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
