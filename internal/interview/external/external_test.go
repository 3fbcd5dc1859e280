package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResumeClient_ResumeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(resumeResponse{UserID: "user-1", Text: "backend engineer, 5 years"})
	}))
	defer srv.Close()

	c := NewResumeClient(srv.URL, "key", time.Second)
	text, err := c.ResumeText(context.Background(), "user-1", "resume-1")
	if err != nil {
		t.Fatalf("ResumeText: %v", err)
	}
	if text != "backend engineer, 5 years" {
		t.Errorf("unexpected resume text: %q", text)
	}
}

func TestResumeClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewResumeClient(srv.URL, "key", time.Second)
	_, err := c.ResumeText(context.Background(), "user-1", "missing")
	if !ErrNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobRoleClient_RoleTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(jobRoleResponse{Title: "Senior Backend Engineer"})
	}))
	defer srv.Close()

	c := NewJobRoleClient(srv.URL, "key", time.Second)
	title, err := c.RoleTitle(context.Background(), "role-1")
	if err != nil {
		t.Fatalf("RoleTitle: %v", err)
	}
	if title != "Senior Backend Engineer" {
		t.Errorf("unexpected title: %q", title)
	}
}
