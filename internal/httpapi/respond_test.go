package httpapi

import (
	"net/http"
	"testing"

	"github.com/interviewsim/orchestrator/internal/apperrors"
)

func TestClassify_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", &apperrors.NotFound{Entity: "interview", ID: "x"}, http.StatusNotFound},
		{"upload not found", &apperrors.UploadNotFound{Key: "k"}, http.StatusNotFound},
		{"illegal state", &apperrors.IllegalState{From: "A", To: "B"}, http.StatusConflict},
		{"duplicate", &apperrors.Duplicate{Entity: "response"}, http.StatusConflict},
		{"validation failed", &apperrors.ValidationFailed{Field: "f", Reason: "r"}, http.StatusBadRequest},
		{"external failure", &apperrors.ExternalServiceFailure{Target: "tts", Kind: apperrors.KindOpen}, http.StatusBadGateway},
		{"blob failure", &apperrors.BlobStoreFailure{Op: "put", Err: nil}, http.StatusInternalServerError},
		{"timeout", &apperrors.Timeout{Stage: "stt"}, http.StatusGatewayTimeout},
		{"internal", &apperrors.Internal{Err: nil}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _, _ := classify(tc.err)
			if status != tc.status {
				t.Errorf("classify(%v) = %d, want %d", tc.err, status, tc.status)
			}
		})
	}
}

func TestClassify_5xxNeverLeaksDetail(t *testing.T) {
	_, message, logDetail := classify(&apperrors.Internal{Err: nil})
	if !logDetail {
		t.Error("expected internal errors to be logged")
	}
	if message == "" || message == "internal error: <nil>" {
		t.Errorf("expected a generic message, got %q", message)
	}
}
