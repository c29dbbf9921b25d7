package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/quotevox/quotevox/internal/dialog"
	"github.com/quotevox/quotevox/internal/interpret"
)

func TestSubmitter_MapsAnswer(t *testing.T) {
	t.Parallel()

	var got Submission
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	at := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)
	ans := dialog.Answer{
		SessionID:  "call-7",
		QuestionID: "policyholder",
		Text:       "SMITH",
		Source:     interpret.SourceSpelling,
		Raw:        "that's it",
		Confidence: 0.88,
		At:         at,
	}
	if err := NewSubmitter(c).SubmitAnswer(context.Background(), ans); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if got.SessionID != "call-7" || got.QuestionID != "policyholder" {
		t.Errorf("ids = %q/%q, want call-7/policyholder", got.SessionID, got.QuestionID)
	}
	if got.Answer != "SMITH" {
		t.Errorf("Answer = %q, want SMITH", got.Answer)
	}
	if got.Source != "spelling" {
		t.Errorf("Source = %q, want spelling", got.Source)
	}
	if got.RawText != "that's it" {
		t.Errorf("RawText = %q, want the raw transcript", got.RawText)
	}
	if got.Confidence != 0.88 {
		t.Errorf("Confidence = %v, want 0.88", got.Confidence)
	}
	if !got.AnsweredAt.Equal(at) {
		t.Errorf("AnsweredAt = %v, want %v", got.AnsweredAt, at)
	}
}
