package booking

import "strings"

// Intent is the closed label set produced by the upstream intent classifier.
type Intent string

const (
	IntentBook       Intent = "book"
	IntentInquire    Intent = "inquire"
	IntentComplaint  Intent = "complaint"
	IntentSmallTalk  Intent = "small_talk"
	IntentCancel     Intent = "cancel"
	IntentReschedule Intent = "reschedule"
	IntentPayment    Intent = "payment"
	IntentUnknown    Intent = ""
)

// Valid reports whether i is one of the closed intent labels.
func (i Intent) Valid() bool {
	switch i {
	case IntentBook, IntentInquire, IntentComplaint, IntentSmallTalk,
		IntentCancel, IntentReschedule, IntentPayment, IntentUnknown:
		return true
	}
	return false
}

// defaultTriggerPhrases flip a conversation into the confirmation step when
// they appear anywhere in the message.
var defaultTriggerPhrases = []string{
	"confirm", "book", "schedule", "ready", "proceed",
}

// Detector decides whether a turn should enter the confirmation step. It is a
// pure classifier: false negatives keep collecting, false positives are
// harmless because the user can still edit or cancel.
type Detector struct {
	phrases []string
}

// NewDetector builds a detector, optionally overriding the trigger phrases.
func NewDetector(phrases []string) *Detector {
	if len(phrases) == 0 {
		phrases = defaultTriggerPhrases
	}
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Detector{phrases: normalized}
}

// ShouldTriggerConfirmation applies the decision order: trigger phrase,
// classified booking intent, then already-in-confirmation re-entrancy.
func (d *Detector) ShouldTriggerConfirmation(message string, intent Intent, current State) bool {
	text := strings.ToLower(message)
	for _, phrase := range d.phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	if intent == IntentBook {
		return true
	}
	return current == StateConfirmation
}
