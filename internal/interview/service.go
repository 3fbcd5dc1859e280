// Package interview implements the core interview lifecycle: starting an
// interview, the upload handshake for recorded answers, completion, and
// feedback retrieval. It owns the state machine; status changes go through
// the optimistic compare-and-set db.InterviewRepo.CompareAndTransition.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/db"
	"github.com/interviewsim/orchestrator/internal/eventbus"
	"github.com/interviewsim/orchestrator/internal/interview/external"
	"github.com/interviewsim/orchestrator/internal/resilience"
	"github.com/interviewsim/orchestrator/pkg/blobstore"
	"github.com/interviewsim/orchestrator/pkg/provider/questiongen"
	"github.com/interviewsim/orchestrator/pkg/provider/stt"
)

const (
	defaultUploadContentType = "video/webm"
	sttLanguageCode          = "en"
)

// Blob is the narrow blob-store capability the service depends on. Backed
// by [blobstore.Gateway] in production.
type Blob interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GetPresignedPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	GetPresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	HeadObject(ctx context.Context, key string) (bool, error)
}

// ResumeSource resolves resume text for question generation. Resumes are an
// external collaborator's concern; this service only ever reads by id.
type ResumeSource interface {
	ResumeText(ctx context.Context, userID, resumeID string) (string, error)
}

// JobRoleSource resolves a job role's display title.
type JobRoleSource interface {
	RoleTitle(ctx context.Context, jobRoleID string) (string, error)
}

// CompletionHook is invoked, detached from the request context, once an
// interview transitions to PROCESSING. It drives the feedback pipeline.
type CompletionHook func(interviewID, userID string, expectVersion int64)

// Config wires every collaborator Service needs.
type Config struct {
	DB    db.DB
	UoW   *db.UnitOfWork
	Blob  Blob
	Log   *slog.Logger

	Interviews *db.InterviewRepo
	Questions  *db.QuestionRepo
	Responses  *db.ResponseRepo
	Feedback   *db.FeedbackRepo

	Resumes  ResumeSource
	JobRoles JobRoleSource

	QuestionGen       questiongen.Provider
	QuestionGenPolicy *resilience.Policy
	QuestionCount     int

	STT       stt.Provider
	STTPolicy *resilience.Policy

	OnComplete CompletionHook

	PresignedGetTTL time.Duration
	PresignedPutTTL time.Duration
}

// Service implements the interview lifecycle operations: Start, Get,
// IssueUploadURL, ConfirmUpload, Complete, GetFeedback, ListHistory, and
// the deprecated direct-upload fallback SubmitResponseDirect.
type Service struct {
	db         db.DB
	uow        *db.UnitOfWork
	blob       Blob
	log        *slog.Logger
	interviews *db.InterviewRepo
	questions  *db.QuestionRepo
	responses  *db.ResponseRepo
	feedback   *db.FeedbackRepo

	resumes  ResumeSource
	jobRoles JobRoleSource

	questionGen       questiongen.Provider
	questionGenPolicy *resilience.Policy
	questionCount     int

	sttProvider stt.Provider
	sttPolicy   *resilience.Policy

	onComplete CompletionHook

	getTTL time.Duration
	putTTL time.Duration
}

// New constructs a Service from cfg, applying the same TTL defaults the
// blob gateway itself uses.
func New(cfg Config) *Service {
	getTTL := cfg.PresignedGetTTL
	if getTTL <= 0 {
		getTTL = 60 * time.Minute
	}
	putTTL := cfg.PresignedPutTTL
	if putTTL <= 0 {
		putTTL = 15 * time.Minute
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	questionCount := cfg.QuestionCount
	if questionCount <= 0 {
		questionCount = 10
	}

	return &Service{
		db:                cfg.DB,
		uow:               cfg.UoW,
		blob:              cfg.Blob,
		log:               log,
		interviews:        cfg.Interviews,
		questions:         cfg.Questions,
		responses:         cfg.Responses,
		feedback:          cfg.Feedback,
		resumes:           cfg.Resumes,
		jobRoles:          cfg.JobRoles,
		questionGen:       cfg.QuestionGen,
		questionGenPolicy: cfg.QuestionGenPolicy,
		questionCount:     questionCount,
		sttProvider:       cfg.STT,
		sttPolicy:         cfg.STTPolicy,
		onComplete:        cfg.OnComplete,
		getTTL:            getTTL,
		putTTL:            putTTL,
	}
}

// Start generates the question set for a new interview and persists it at
// status GENERATING_VIDEOS, then raises [eventbus.QuestionsCreated] so the
// avatar pipeline fan-out begins once the transaction commits. Per
// spec.md §4.3, a vendor response with zero valid questions is a terminal
// failure — no interview row is created.
func (s *Service) Start(ctx context.Context, userID, resumeID, jobRoleID, interviewType string) (*InterviewDTO, error) {
	resumeText, err := s.resumes.ResumeText(ctx, userID, resumeID)
	if err != nil {
		if external.ErrNotFound(err) {
			return nil, &apperrors.NotFound{Entity: "resume", ID: resumeID}
		}
		return nil, fmt.Errorf("interview: resolve resume %q: %w", resumeID, err)
	}
	roleTitle, err := s.jobRoles.RoleTitle(ctx, jobRoleID)
	if err != nil {
		if external.ErrNotFound(err) {
			return nil, &apperrors.NotFound{Entity: "job role", ID: jobRoleID}
		}
		return nil, fmt.Errorf("interview: resolve job role %q: %w", jobRoleID, err)
	}

	var generated []questiongen.Question
	err = s.questionGenPolicy.Execute(ctx, func(ctx context.Context) error {
		qs, genErr := s.questionGen.GenerateQuestions(ctx, questiongen.Request{
			ResumeText: resumeText,
			RoleTitle:  roleTitle,
			Count:      s.questionCount,
		})
		if genErr != nil {
			return genErr
		}
		generated = qs
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(generated) == 0 {
		return nil, &apperrors.ValidationFailed{Field: "questions", Reason: "question generator returned zero valid questions"}
	}

	iv := &Interview{
		ID:        uuid.NewString(),
		UserID:    userID,
		ResumeID:  resumeID,
		JobRoleID: jobRoleID,
		Status:    StatusCreated,
		Type:      interviewType,
	}
	questionRows := make([]Question, len(generated))
	for i, q := range generated {
		questionRows[i] = Question{
			ID:          uuid.NewString(),
			InterviewID: iv.ID,
			Ordinal:     i + 1,
			Text:        q.Text,
			Category:    Category(strings.ToLower(string(q.Category))),
			Difficulty:  Difficulty(strings.ToLower(string(q.Difficulty))),
		}
	}

	err = s.uow.Run(ctx, func(ctx context.Context, tx db.DB, raise func(eventbus.Event)) error {
		if err := s.interviews.Create(ctx, tx, iv); err != nil {
			return err
		}
		if err := s.questions.CreateBatch(ctx, tx, questionRows); err != nil {
			return err
		}
		if err := s.interviews.CompareAndTransition(ctx, tx, iv.ID, iv.Version, StatusGeneratingVideos, nil, nil); err != nil {
			return err
		}
		iv.Status = StatusGeneratingVideos
		iv.Version++

		questionIDs := make([]string, len(questionRows))
		for i, q := range questionRows {
			questionIDs[i] = q.ID
		}
		raise(eventbus.QuestionsCreated{InterviewID: iv.ID, QuestionIDs: questionIDs})
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toInterviewDTO(iv, questionRows, nil)
	return &dto, nil
}

// Get retrieves an interview owned by userID, with every question's
// answered state and, where an avatar has been generated, a freshly minted
// presigned GET URL.
func (s *Service) Get(ctx context.Context, userID, interviewID string) (*InterviewDTO, error) {
	iv, err := s.interviews.Get(ctx, s.db, userID, interviewID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByInterview(ctx, s.db, interviewID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListByInterview(ctx, s.db, interviewID)
	if err != nil {
		return nil, err
	}
	answered := make(map[string]bool, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = true
	}

	dto := toInterviewDTO(iv, questions, answered)
	for i, q := range questions {
		if q.AvatarKey == nil {
			continue
		}
		url, err := s.blob.GetPresignedGet(ctx, *q.AvatarKey, s.getTTL)
		if err != nil {
			s.log.Warn("interview: mint avatar url failed", "question_id", q.ID, "error", err)
			continue
		}
		dto.Questions[i].AvatarURL = url
	}
	return &dto, nil
}

// ListHistory returns a lightweight, no-questions listing of every
// interview owned by userID.
func (s *Service) ListHistory(ctx context.Context, userID string) ([]InterviewSummaryDTO, error) {
	ivs, err := s.interviews.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	out := make([]InterviewSummaryDTO, len(ivs))
	for i, iv := range ivs {
		out[i] = InterviewSummaryDTO{
			ID:           iv.ID,
			Status:       iv.Status,
			Type:         iv.Type,
			OverallScore: iv.OverallScore,
			CreatedAt:    iv.CreatedAt,
			CompletedAt:  iv.CompletedAt,
		}
	}
	return out, nil
}

// IssueUploadURL mints a presigned PUT URL for a question's answer video,
// per spec.md §4.7. The interview must be IN_PROGRESS, the question must
// belong to it, and no Response may already exist for it.
func (s *Service) IssueUploadURL(ctx context.Context, userID, interviewID, questionID, contentType string) (*UploadURLResult, error) {
	if contentType == "" {
		contentType = defaultUploadContentType
	}

	q, err := s.validateUploadTarget(ctx, userID, interviewID, questionID)
	if err != nil {
		return nil, err
	}

	key := blobstore.BuildResponseKey(userID, interviewID, q.ID, time.Now().UnixMilli())
	url, err := s.blob.GetPresignedPut(ctx, key, contentType, s.putTTL)
	if err != nil {
		return nil, err
	}

	return &UploadURLResult{
		UploadURL:        url,
		S3Key:            key,
		ExpiresInSeconds: int(s.putTTL.Seconds()),
	}, nil
}

// ConfirmUpload finalizes an answer video PUT: it requires the object to
// actually exist at key, creates the Response row, and kicks off
// transcription in the background. A duplicate confirmation for the same
// question surfaces as [apperrors.Duplicate] and creates no second row.
func (s *Service) ConfirmUpload(ctx context.Context, userID, interviewID, questionID, key string, duration *float64) error {
	q, err := s.validateUploadTarget(ctx, userID, interviewID, questionID)
	if err != nil {
		return err
	}

	exists, err := s.blob.HeadObject(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return &apperrors.UploadNotFound{Key: key}
	}

	resp := &Response{
		ID:              uuid.NewString(),
		QuestionID:      q.ID,
		InterviewID:     interviewID,
		UserID:          userID,
		VideoKey:        key,
		DurationSeconds: duration,
	}
	if err := s.responses.Create(ctx, s.db, resp); err != nil {
		return err
	}

	s.kickoffTranscription(resp.ID, key)
	return nil
}

// SubmitResponseDirect is the deprecated multipart-upload fallback: it
// writes videoBytes directly instead of relying on a presigned PUT, then
// follows the same Response-creation and transcription path as
// ConfirmUpload.
func (s *Service) SubmitResponseDirect(ctx context.Context, userID, interviewID, questionID string, videoBytes []byte, contentType string, duration *float64) error {
	if contentType == "" {
		contentType = defaultUploadContentType
	}
	q, err := s.validateUploadTarget(ctx, userID, interviewID, questionID)
	if err != nil {
		return err
	}

	key := blobstore.BuildResponseKey(userID, interviewID, q.ID, time.Now().UnixMilli())
	if err := s.blob.PutObject(ctx, key, videoBytes, contentType); err != nil {
		return err
	}

	resp := &Response{
		ID:              uuid.NewString(),
		QuestionID:      q.ID,
		InterviewID:     interviewID,
		UserID:          userID,
		VideoKey:        key,
		DurationSeconds: duration,
	}
	if err := s.responses.Create(ctx, s.db, resp); err != nil {
		return err
	}

	s.kickoffTranscription(resp.ID, key)
	return nil
}

// validateUploadTarget enforces the ownership, state, and question
// membership preconditions shared by IssueUploadURL, ConfirmUpload, and
// SubmitResponseDirect.
func (s *Service) validateUploadTarget(ctx context.Context, userID, interviewID, questionID string) (*Question, error) {
	iv, err := s.interviews.Get(ctx, s.db, userID, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.Status != StatusInProgress {
		return nil, &apperrors.IllegalState{From: string(iv.Status), To: "upload"}
	}

	q, err := s.questions.Get(ctx, s.db, questionID)
	if err != nil {
		return nil, err
	}
	if q.InterviewID != interviewID {
		return nil, &apperrors.NotFound{Entity: "question", ID: questionID}
	}

	existing, err := s.responses.GetByQuestion(ctx, s.db, questionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &apperrors.Duplicate{Entity: "response"}
	}
	return q, nil
}

// kickoffTranscription runs STT submission and polling detached from the
// request, so a slow or failing transcription never delays the HTTP
// response. Initiation failures are logged, not surfaced — transcription
// is best-effort; a missing transcript only narrows the feedback prompt.
func (s *Service) kickoffTranscription(responseID, videoKey string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(context.Background()), 5*time.Minute)
		defer cancel()

		getURL, err := s.blob.GetPresignedGet(ctx, videoKey, s.getTTL)
		if err != nil {
			s.log.Error("interview: mint presigned get for transcription failed", "response_id", responseID, "error", err)
			return
		}

		var jobID string
		err = s.sttPolicy.Execute(ctx, func(ctx context.Context) error {
			id, submitErr := s.sttProvider.Submit(ctx, getURL, sttLanguageCode)
			if submitErr != nil {
				return submitErr
			}
			jobID = id
			return nil
		})
		if err != nil {
			s.log.Error("interview: stt submit failed", "response_id", responseID, "error", err)
			return
		}

		result, err := s.pollTranscription(ctx, jobID)
		if err != nil {
			s.log.Error("interview: stt poll failed", "response_id", responseID, "error", err)
			return
		}
		if result.Status != stt.StatusDone {
			s.log.Warn("interview: stt job ended without a transcript", "response_id", responseID, "status", result.Status, "vendor_error", result.Error)
			return
		}

		confidence := result.Confidence
		if err := s.responses.SetTranscription(ctx, s.db, responseID, result.Text, &confidence); err != nil {
			s.log.Error("interview: persist transcription failed", "response_id", responseID, "error", err)
		}
	}()
}

const (
	sttPollInterval    = 3 * time.Second
	sttPollMaxAttempts = 100
)

func (s *Service) pollTranscription(ctx context.Context, jobID string) (stt.PollResult, error) {
	ticker := time.NewTicker(sttPollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < sttPollMaxAttempts; attempt++ {
		result, err := s.sttProvider.Poll(ctx, jobID)
		if err != nil {
			return stt.PollResult{}, err
		}
		if result.Status == stt.StatusDone || result.Status == stt.StatusError {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return stt.PollResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
	return stt.PollResult{}, &apperrors.Timeout{Stage: "stt_poll"}
}

// Complete transitions an interview from IN_PROGRESS to PROCESSING and
// triggers feedback generation in the background. Calling Complete twice
// yields [apperrors.IllegalState] on the second call.
func (s *Service) Complete(ctx context.Context, userID, interviewID string) error {
	iv, err := s.interviews.Get(ctx, s.db, userID, interviewID)
	if err != nil {
		return err
	}
	if iv.Status != StatusInProgress {
		return &apperrors.IllegalState{From: string(iv.Status), To: string(StatusProcessing)}
	}

	if err := s.interviews.CompareAndTransition(ctx, s.db, interviewID, iv.Version, StatusProcessing, nil, nil); err != nil {
		return err
	}

	if s.onComplete != nil {
		expectVersion := iv.Version + 1
		go s.onComplete(interviewID, userID, expectVersion)
	}
	return nil
}

// GetFeedback returns the interview's feedback, if it has reached
// COMPLETED. A non-terminal status is reported via Status alone, with a
// nil Feedback, so the HTTP layer can answer 202 instead of fetching
// anything further.
func (s *Service) GetFeedback(ctx context.Context, userID, interviewID string) (*FeedbackResult, error) {
	iv, err := s.interviews.Get(ctx, s.db, userID, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.Status != StatusCompleted {
		return &FeedbackResult{Status: iv.Status}, nil
	}

	fb, err := s.feedback.GetByInterview(ctx, s.db, interviewID)
	if err != nil {
		return nil, err
	}
	return &FeedbackResult{
		Status: iv.Status,
		Feedback: &FeedbackDTO{
			OverallScore:     fb.OverallScore,
			Strengths:        fb.Strengths,
			Weaknesses:       fb.Weaknesses,
			Recommendations:  fb.Recommendations,
			DetailedAnalysis: fb.DetailedAnalysis,
			GeneratedAt:      fb.GeneratedAt,
		},
	}, nil
}

func toInterviewDTO(iv *Interview, questions []Question, answered map[string]bool) InterviewDTO {
	qdtos := make([]QuestionDTO, len(questions))
	for i, q := range questions {
		qdtos[i] = QuestionDTO{
			ID:         q.ID,
			Ordinal:    q.Ordinal,
			Text:       q.Text,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			Answered:   answered[q.ID],
			CreatedAt:  q.CreatedAt,
		}
	}
	return InterviewDTO{
		ID:           iv.ID,
		Status:       iv.Status,
		Type:         iv.Type,
		OverallScore: iv.OverallScore,
		CreatedAt:    iv.CreatedAt,
		CompletedAt:  iv.CompletedAt,
		Questions:    qdtos,
	}
}
