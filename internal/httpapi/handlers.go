package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/interviewsim/orchestrator/internal/apperrors"
	"github.com/interviewsim/orchestrator/internal/interview"
	"github.com/interviewsim/orchestrator/internal/notify"
)

const (
	defaultInterviewType  = "standard"
	maxDirectUploadBytes  = 200 << 20 // 200MiB, generous bound for a single answer clip
	sseRetryMillis        = 3000
)

// Handler serves the nine interview HTTP endpoints of spec.md §6.
type Handler struct {
	service *interview.Service
	hub     *notify.Hub
	auth    Authenticator
	log     *slog.Logger
}

// New constructs a Handler.
func New(service *interview.Service, hub *notify.Hub, auth Authenticator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, hub: hub, auth: auth, log: log}
}

// Register mounts every route on mux, wrapped in request logging and
// bearer-token authentication.
func (h *Handler) Register(mux *http.ServeMux) {
	authMW := requireAuth(h.auth, h.log)
	logMW := withRequestLogging(h.log)
	wrap := func(fn http.HandlerFunc) http.Handler {
		return chain(fn, logMW, authMW)
	}

	mux.Handle("POST /api/interviews/start", wrap(h.start))
	mux.Handle("GET /api/interviews/history", wrap(h.listHistory))
	mux.Handle("GET /api/interviews/{id}", wrap(h.get))
	mux.Handle("POST /api/interviews/{id}/upload-url", wrap(h.issueUploadURL))
	mux.Handle("POST /api/interviews/{id}/confirm-upload", wrap(h.confirmUpload))
	mux.Handle("POST /api/interviews/{id}/response", wrap(h.submitResponseDirect))
	mux.Handle("POST /api/interviews/{id}/complete", wrap(h.complete))
	mux.Handle("GET /api/interviews/{id}/feedback", wrap(h.getFeedback))
	mux.Handle("GET /api/interviews/{id}/events", wrap(h.events))
}

type startRequest struct {
	ResumeID  string `json:"resumeId"`
	JobRoleID string `json:"jobRoleId"`
	Type      string `json:"type,omitempty"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "body", Reason: "invalid JSON"})
		return
	}
	if req.ResumeID == "" || req.JobRoleID == "" {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "resumeId/jobRoleId", Reason: "both are required"})
		return
	}
	interviewType := req.Type
	if interviewType == "" {
		interviewType = defaultInterviewType
	}

	userID := userIDFromContext(r.Context())
	dto, err := h.service.Start(r.Context(), userID, req.ResumeID, req.JobRoleID, interviewType)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	id := r.PathValue("id")

	dto, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	summaries, err := h.service.ListHistory(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) issueUploadURL(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	id := r.PathValue("id")
	questionID := r.URL.Query().Get("questionId")
	if questionID == "" {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "questionId", Reason: "required query parameter"})
		return
	}
	contentType := r.URL.Query().Get("contentType")

	result, err := h.service.IssueUploadURL(r.Context(), userID, id, questionID, contentType)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type confirmUploadRequest struct {
	QuestionID  string   `json:"questionId"`
	S3Key       string   `json:"s3Key"`
	ContentType string   `json:"contentType,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
}

func (h *Handler) confirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "body", Reason: "invalid JSON"})
		return
	}
	if req.QuestionID == "" || req.S3Key == "" {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "questionId/s3Key", Reason: "both are required"})
		return
	}

	userID := userIDFromContext(r.Context())
	id := r.PathValue("id")
	if err := h.service.ConfirmUpload(r.Context(), userID, id, req.QuestionID, req.S3Key, req.Duration); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// submitResponseDirect implements the deprecated multipart-upload fallback
// endpoint of spec.md §6. It exists for clients that cannot perform a
// presigned PUT directly (e.g. constrained environments behind a proxy
// that strips the PUT method).
func (h *Handler) submitResponseDirect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxDirectUploadBytes); err != nil {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "body", Reason: "invalid multipart form"})
		return
	}
	questionID := r.FormValue("question_id")
	if questionID == "" {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "question_id", Reason: "required form field"})
		return
	}
	contentType := r.FormValue("content_type")

	var duration *float64
	if v := r.FormValue("duration"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, h.log, &apperrors.ValidationFailed{Field: "duration", Reason: "must be numeric"})
			return
		}
		duration = &parsed
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, h.log, &apperrors.ValidationFailed{Field: "video", Reason: "required file field"})
		return
	}
	defer file.Close()
	if contentType == "" {
		contentType = header.Header.Get("Content-Type")
	}

	videoBytes, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.log, &apperrors.Internal{Err: fmt.Errorf("read uploaded video: %w", err)})
		return
	}

	userID := userIDFromContext(r.Context())
	id := r.PathValue("id")
	if err := h.service.SubmitResponseDirect(r.Context(), userID, id, questionID, videoBytes, contentType, duration); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	id := r.PathValue("id")
	if err := h.service.Complete(r.Context(), userID, id); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(interview.StatusProcessing)})
}

func (h *Handler) getFeedback(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	id := r.PathValue("id")

	result, err := h.service.GetFeedback(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	switch {
	case result.Feedback != nil:
		writeJSON(w, http.StatusOK, result.Feedback)
	case result.Status == interview.StatusProcessing:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": string(result.Status)})
	default:
		writeError(w, h.log, &apperrors.NotFound{Entity: "feedback", ID: id})
	}
}

// events streams SSE progress updates for an interview, per spec.md §4.8.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.log, &apperrors.Internal{Err: fmt.Errorf("httpapi: response writer does not support flushing")})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.hub.Subscribe(id)
	defer sub.Close()

	for _, p := range h.hub.Snapshot(id) {
		kind := notify.EventAvatarFailed
		if p.HasAvatar {
			kind = notify.EventAvatarReady
		}
		writeSSEEvent(w, flusher, notify.Event{Kind: kind, QuestionID: p.QuestionID})
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			writeSSEEvent(w, flusher, evt)
			if evt.Kind == notify.EventInterviewReady {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, evt notify.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "retry: %d\n", sseRetryMillis)
	fmt.Fprintf(w, "event: %s\n", evt.Kind)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
