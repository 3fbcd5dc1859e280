package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/interviewsim/orchestrator/pkg/provider/stt"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestSubmit_EmptyAudioURL(t *testing.T) {
	p, _ := New("key")
	if _, err := p.Submit(context.Background(), "", "en"); err == nil {
		t.Error("expected error for empty audioURL")
	}
}

func TestSubmitThenPoll_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("model") != defaultModel {
			t.Errorf("expected model %q, got %q", defaultModel, r.URL.Query().Get("model"))
		}
		if r.URL.Query().Get("language") != "en" {
			t.Errorf("expected language en, got %q", r.URL.Query().Get("language"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"results": {
				"channels": [
					{"alternatives": [{"transcript": "hello world", "confidence": 0.92}]}
				]
			}
		}`))
	}))
	defer srv.Close()

	p, _ := New("secret", WithHTTPClient(srv.Client()))
	prerecordedEndpointOverride(t, srv.URL)

	jobID, err := p.Submit(context.Background(), "https://example.com/answer.mp4", "en")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected non-empty job ID")
	}

	res, err := p.Poll(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Status != stt.StatusDone {
		t.Errorf("expected StatusDone, got %q", res.Status)
	}
	if res.Text != "hello world" {
		t.Errorf("expected transcript 'hello world', got %q", res.Text)
	}
	if res.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", res.Confidence)
	}
}

func TestPoll_UnknownJob(t *testing.T) {
	p, _ := New("key")
	if _, err := p.Poll(context.Background(), "nonexistent"); err == nil {
		t.Error("expected error for unknown job ID")
	}
}

func TestSubmit_VendorErrorSurfacesOnPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := New("bad-key", WithHTTPClient(srv.Client()))
	prerecordedEndpointOverride(t, srv.URL)

	jobID, err := p.Submit(context.Background(), "https://example.com/answer.mp4", "en")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err := p.Poll(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Status != stt.StatusError {
		t.Errorf("expected StatusError, got %q", res.Status)
	}
}

func prerecordedEndpointOverride(t *testing.T, baseURL string) {
	t.Helper()
	orig := prerecordedEndpoint
	prerecordedEndpoint = baseURL
	t.Cleanup(func() { prerecordedEndpoint = orig })
}
