package calls

import (
	"testing"
	"time"
)

func TestApplyAnswered(t *testing.T) {
	now := time.Now()
	for _, status := range []CallStatus{StatusPending, StatusInitiated, StatusRinging} {
		c := Call{CallControlID: "cc1", Status: status}
		if !c.apply(Answered(), now) {
			t.Fatalf("answered should be valid from %s", status)
		}
		if c.Status != StatusAnswered {
			t.Fatalf("status = %s, want %s", c.Status, StatusAnswered)
		}
		if c.AnsweredAt == nil || !c.AnsweredAt.Equal(now) {
			t.Fatalf("AnsweredAt not recorded")
		}
	}
}

func TestApplyAnsweredInvalidFrom(t *testing.T) {
	for _, status := range []CallStatus{StatusCompleted, StatusFailed, StatusTranscribed, StatusRecording} {
		c := Call{CallControlID: "cc1", Status: status}
		if c.apply(Answered(), time.Now()) {
			t.Fatalf("answered should be rejected from %s", status)
		}
		if c.Status != status {
			t.Fatalf("rejected transition mutated status to %s", c.Status)
		}
	}
}

func TestApplyRecordingStarted(t *testing.T) {
	c := Call{CallControlID: "cc1", Status: StatusAnswered}
	if !c.apply(RecordingStarted(), time.Now()) {
		t.Fatal("recording_started should be valid from answered")
	}
	if c.Status != StatusRecording {
		t.Fatalf("status = %s, want %s", c.Status, StatusRecording)
	}

	c = Call{CallControlID: "cc1", Status: StatusInitiated}
	if c.apply(RecordingStarted(), time.Now()) {
		t.Fatal("recording_started should be rejected from initiated")
	}
}

func TestApplyHangupProviderDuration(t *testing.T) {
	d := 42.5
	c := Call{CallControlID: "cc1", Status: StatusRecording}
	if !c.apply(Hangup(&d), time.Now()) {
		t.Fatal("hangup should be valid from recording")
	}
	if c.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", c.Status, StatusCompleted)
	}
	if c.DurationSeconds != 42.5 {
		t.Fatalf("duration = %v, want 42.5", c.DurationSeconds)
	}
	if c.EndedAt == nil {
		t.Fatal("EndedAt not recorded")
	}
}

func TestApplyHangupComputedDuration(t *testing.T) {
	answered := time.Now().Add(-30 * time.Second)
	c := Call{CallControlID: "cc1", Status: StatusAnswered, AnsweredAt: &answered}
	if !c.apply(Hangup(nil), time.Now()) {
		t.Fatal("hangup should be valid from answered")
	}
	if c.DurationSeconds < 29 || c.DurationSeconds > 31 {
		t.Fatalf("computed duration = %v, want ~30", c.DurationSeconds)
	}
}

func TestApplyHangupNeverAnswered(t *testing.T) {
	c := Call{CallControlID: "cc1", Status: StatusInitiated}
	if !c.apply(Hangup(nil), time.Now()) {
		t.Fatal("hangup should be valid from initiated")
	}
	if c.DurationSeconds != 0 {
		t.Fatalf("duration = %v, want 0 for unanswered call", c.DurationSeconds)
	}
}

func TestApplyFailedFromAnyActive(t *testing.T) {
	for _, status := range []CallStatus{StatusPending, StatusInitiated, StatusRinging, StatusAnswered, StatusRecording, StatusCompleted, StatusTranscribing} {
		c := Call{CallControlID: "cc1", Status: status}
		if !c.apply(Failed("provider timeout"), time.Now()) {
			t.Fatalf("failed should be valid from %s", status)
		}
		if c.Status != StatusFailed {
			t.Fatalf("status = %s, want %s", c.Status, StatusFailed)
		}
		if c.ErrorMessage != "provider timeout" {
			t.Fatalf("error message = %q", c.ErrorMessage)
		}
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	events := []Event{Answered(), RecordingStarted(), Hangup(nil), Failed("x"), RecordingURLSet("u"), Transcribed("t")}
	for _, status := range []CallStatus{StatusFailed, StatusTranscribed} {
		for _, e := range events {
			c := Call{CallControlID: "cc1", Status: status}
			if c.apply(e, time.Now()) {
				t.Fatalf("%s should be rejected from terminal %s", e.Name(), status)
			}
		}
	}
}

func TestApplyRecordingURLSet(t *testing.T) {
	for _, status := range []CallStatus{StatusAnswered, StatusRecording, StatusCompleted} {
		c := Call{CallControlID: "cc1", Status: status}
		if !c.apply(RecordingURLSet("https://r/rec.mp3"), time.Now()) {
			t.Fatalf("recording_url_set should be valid from %s", status)
		}
		if c.RecordingURL != "https://r/rec.mp3" {
			t.Fatalf("recording url = %q", c.RecordingURL)
		}
		if c.Status != status {
			t.Fatalf("recording_url_set must not change status, got %s from %s", c.Status, status)
		}
	}
}

func TestApplyTranscribed(t *testing.T) {
	c := Call{CallControlID: "cc1", Status: StatusCompleted}
	if !c.apply(Transcribed("hello world"), time.Now()) {
		t.Fatal("transcribed should be valid from completed")
	}
	if c.Status != StatusTranscribed {
		t.Fatalf("status = %s, want %s", c.Status, StatusTranscribed)
	}
	if c.Transcription != "hello world" {
		t.Fatalf("transcription = %q", c.Transcription)
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusFailed.Terminal() || !StatusTranscribed.Terminal() {
		t.Fatal("failed and transcribed are terminal")
	}
	if StatusCompleted.Terminal() {
		t.Fatal("completed is not terminal")
	}
	if StatusCompleted.Active() || StatusFailed.Active() || StatusTranscribed.Active() {
		t.Fatal("completed, failed, transcribed are not active")
	}
	if !StatusRecording.Active() {
		t.Fatal("recording is active")
	}
}
