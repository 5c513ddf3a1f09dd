package templates

import (
	"strings"
	"testing"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

func TestStagePrompt(t *testing.T) {
	r := NewReplies()
	pad := booking.NewScratchpad("conv-1")

	if got := r.StagePrompt(booking.StateGreeting, pad); !strings.Contains(got, "your name") {
		t.Errorf("greeting prompt = %q", got)
	}
	if got := r.StagePrompt(booking.StateDateSelection, pad); !strings.Contains(got, "date") {
		t.Errorf("date prompt = %q", got)
	}
}

func TestStagePromptUsesCollectedName(t *testing.T) {
	r := NewReplies()
	pad := booking.NewScratchpad("conv-1")
	if err := pad.AddField("customer", "first_name", "Amit", booking.SourceDirectExtraction, 1, 0.95); err != nil {
		t.Fatalf("AddField: %v", err)
	}

	got := r.StagePrompt(booking.StateVehicleDetails, pad)
	if !strings.Contains(got, "Amit") {
		t.Errorf("vehicle prompt should address the customer: %q", got)
	}
}

func TestConfirmationPrompt(t *testing.T) {
	r := NewReplies()

	full := r.ConfirmationPrompt("SUMMARY", false)
	if !strings.Contains(full, "SUMMARY") || !strings.Contains(full, "confirm") {
		t.Errorf("prompt = %q", full)
	}
	if strings.Contains(full, "still missing") {
		t.Errorf("full prompt should not carry the partial note: %q", full)
	}

	partial := r.ConfirmationPrompt("SUMMARY", true)
	if !strings.Contains(partial, "still missing") {
		t.Errorf("partial prompt = %q", partial)
	}
}

func TestConfirmedAndCompletedNameReference(t *testing.T) {
	r := NewReplies()

	if got := r.Confirmed("req-42"); !strings.Contains(got, "req-42") {
		t.Errorf("confirmed reply = %q", got)
	}
	if got := r.AlreadyCompleted("req-42"); !strings.Contains(got, "req-42") {
		t.Errorf("completed reply = %q", got)
	}
}

func TestMissingFields(t *testing.T) {
	r := NewReplies()

	got := r.MissingFields([]booking.FieldRef{
		{Section: "appointment", Field: "date"},
		{Section: "vehicle", Field: "plate"},
	})
	if !strings.Contains(got, "date") || !strings.Contains(got, "plate") {
		t.Errorf("missing-fields reply = %q", got)
	}

	if got := r.MissingFields(nil); got != r.Fallback() {
		t.Errorf("empty missing list should fall back, got %q", got)
	}
}

func TestSoften(t *testing.T) {
	r := NewReplies()

	plain := r.Soften("Got it.", false)
	if plain != "Got it." {
		t.Errorf("neutral reply changed: %q", plain)
	}

	soft := r.Soften("Got it.", true)
	if !strings.HasPrefix(soft, "I'm sorry") || !strings.Contains(soft, "Got it.") {
		t.Errorf("softened reply = %q", soft)
	}
}
