package notify_test

import (
	"testing"
	"time"

	"github.com/interviewsim/orchestrator/internal/notify"
)

func TestAvatarReady_DeliversEvent(t *testing.T) {
	h := notify.New()
	sub := h.Subscribe("iv-1")
	defer sub.Close()

	h.AvatarReady("iv-1", "q-1", "https://example.com/presigned")

	select {
	case evt := <-sub.Events():
		if evt.Kind != notify.EventAvatarReady {
			t.Errorf("expected EventAvatarReady, got %v", evt.Kind)
		}
		if evt.QuestionID != "q-1" {
			t.Errorf("expected q-1, got %q", evt.QuestionID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestInterviewReady_ClosesSubscription(t *testing.T) {
	h := notify.New()
	sub := h.Subscribe("iv-1")

	h.InterviewReady("iv-1")

	select {
	case _, ok := <-sub.Events():
		if ok {
			// drain the interview-ready event itself before closure.
			select {
			case _, ok2 := <-sub.Events():
				if ok2 {
					t.Fatal("expected channel to close after interview-ready")
				}
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for channel close")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestDeadSubscriberSendIsDropped(t *testing.T) {
	h := notify.New()
	sub := h.Subscribe("iv-1")
	defer sub.Close()

	// Fill the subscriber's buffer without draining it.
	for i := 0; i < 32; i++ {
		h.AvatarReady("iv-1", "q-x", "url")
	}
	// Should not block or panic.
}

func TestSnapshot_ReflectsProgress(t *testing.T) {
	h := notify.New()
	h.AvatarReady("iv-1", "q-1", "url-1")
	h.AvatarFailed("iv-1", "q-2")

	snap := h.Snapshot("iv-1")
	if len(snap) != 2 {
		t.Fatalf("expected 2 progress entries, got %d", len(snap))
	}

	byID := make(map[string]bool)
	for _, p := range snap {
		byID[p.QuestionID] = p.HasAvatar
	}
	if !byID["q-1"] {
		t.Error("expected q-1 to have an avatar")
	}
	if byID["q-2"] {
		t.Error("expected q-2 to not have an avatar")
	}
}

func TestSubscribe_IdleTimeoutClosesSubscription(t *testing.T) {
	h := notify.New(notify.WithIdleTimeout(20 * time.Millisecond))
	sub := h.Subscribe("iv-1")

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed channel after idle timeout")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for idle close")
	}
}
