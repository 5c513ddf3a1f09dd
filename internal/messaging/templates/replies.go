package templates

import (
	"fmt"
	"strings"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

// Replies composes the canned outbound messages for each conversation stage.
type Replies struct {
	renderer Renderer
}

// NewReplies creates a reply composer.
func NewReplies() *Replies {
	return &Replies{}
}

const (
	greetingTmpl     = "Hi! Welcome to AquaShine Car Wash. I can help you book a wash. What's your name?"
	askVehicleTmpl   = "Thanks{{if .Name}}, {{.Name}}{{end}}! Which vehicle should we expect? Brand and plate number, please."
	askDateTmpl      = "Got it. What date works for you?"
	confirmTmpl      = "Here's what I have so far:\n\n{{.Summary}}\n\nReply \"confirm\" to book, \"change <field>\" to edit, or \"cancel\" to start over."
	partialNoteTmpl  = "A few details are still missing; you can fill them in or confirm anyway."
	confirmedTmpl    = "You're booked! Your reference is {{.RequestID}}. See you then."
	cancelledTmpl    = "No problem, I've cleared everything. Message me anytime to start a new booking."
	updatedTmpl      = "Updated! Here's the new summary:\n\n{{.Summary}}\n\nAnything else to change, or shall I confirm?"
	completedTmpl    = "This booking is already confirmed. Your reference is {{.RequestID}}."
	closedTmpl       = "This conversation was closed. Send a new message to start a fresh booking."
	fallbackReply    = "I couldn't quite get that, let's try again."
	empatheticPrefix = "I'm sorry about the trouble. "
)

// StagePrompt returns the collection prompt for the current stage.
func (r *Replies) StagePrompt(state booking.State, pad *booking.Scratchpad) string {
	switch state {
	case booking.StateGreeting, booking.StateNameCollection:
		return greetingTmpl
	case booking.StateVehicleDetails:
		name := ""
		if entry := pad.GetField(booking.SectionCustomer, "first_name"); entry.HasValue() {
			name = *entry.Value
		}
		out, err := r.renderer.Render("ask_vehicle", askVehicleTmpl, map[string]string{"Name": name})
		if err != nil {
			return fallbackReply
		}
		return out
	case booking.StateDateSelection:
		return askDateTmpl
	}
	return fallbackReply
}

// ConfirmationPrompt renders the summary with confirm/edit/cancel choices.
// partial appends the missing-details note.
func (r *Replies) ConfirmationPrompt(summary string, partial bool) string {
	out, err := r.renderer.Render("confirm", confirmTmpl, map[string]string{"Summary": summary})
	if err != nil {
		return fallbackReply
	}
	if partial {
		out += "\n\n" + partialNoteTmpl
	}
	return out
}

// Updated renders the post-edit summary.
func (r *Replies) Updated(summary string) string {
	out, err := r.renderer.Render("updated", updatedTmpl, map[string]string{"Summary": summary})
	if err != nil {
		return fallbackReply
	}
	return out
}

// Confirmed announces the finalized booking.
func (r *Replies) Confirmed(requestID string) string {
	out, err := r.renderer.Render("confirmed", confirmedTmpl, map[string]string{"RequestID": requestID})
	if err != nil {
		return fallbackReply
	}
	return out
}

// AlreadyCompleted answers a message on an already-confirmed conversation.
func (r *Replies) AlreadyCompleted(requestID string) string {
	out, err := r.renderer.Render("completed", completedTmpl, map[string]string{"RequestID": requestID})
	if err != nil {
		return fallbackReply
	}
	return out
}

// Cancelled acknowledges a cancellation.
func (r *Replies) Cancelled() string { return cancelledTmpl }

// Closed answers a message on a cancelled conversation.
func (r *Replies) Closed() string { return closedTmpl }

// Fallback is the defined user-visible message for collaborator failures.
func (r *Replies) Fallback() string { return fallbackReply }

// MissingFields asks for the listed fields by label.
func (r *Replies) MissingFields(missing []booking.FieldRef) string {
	if len(missing) == 0 {
		return fallbackReply
	}
	labels := make([]string, 0, len(missing))
	for _, ref := range missing {
		labels = append(labels, strings.ReplaceAll(ref.Field, "_", " "))
	}
	return fmt.Sprintf("I still need your %s before we can confirm.", strings.Join(labels, ", "))
}

// Soften prepends the empathetic variant when sentiment runs negative.
func (r *Replies) Soften(reply string, negative bool) string {
	if !negative {
		return reply
	}
	return empatheticPrefix + reply
}
