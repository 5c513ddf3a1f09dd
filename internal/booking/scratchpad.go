package booking

import (
	"strings"
	"time"
)

// Scratchpad is the per-conversation store of collected booking fields with
// provenance metadata. It is owned by the conversation session and is not safe
// for concurrent use; callers serialize access per conversation.
type Scratchpad struct {
	ConversationID string                            `json:"conversation_id"`
	Sections       map[string]map[string]*FieldEntry `json:"sections"`
	CreatedAt      time.Time                         `json:"created_at"`
	LastUpdated    time.Time                         `json:"last_updated"`
}

// NewScratchpad creates an empty scratchpad with every schema field present
// and null.
func NewScratchpad(conversationID string) *Scratchpad {
	now := time.Now().UTC()
	sections := make(map[string]map[string]*FieldEntry, len(sectionFields))
	for section, fields := range sectionFields {
		entries := make(map[string]*FieldEntry, len(fields))
		for _, field := range fields {
			entries[field] = &FieldEntry{}
		}
		sections[section] = entries
	}
	return &Scratchpad{
		ConversationID: conversationID,
		Sections:       sections,
		CreatedAt:      now,
		LastUpdated:    now,
	}
}

// AddField records an extracted or inferred value. The write is validated up
// front and applied all-or-nothing; any rejection is surfaced to the caller.
func (p *Scratchpad) AddField(section, field, value string, source Source, turn int, confidence float64) error {
	if err := p.validateWrite(section, field, source, turn, confidence); err != nil {
		return err
	}
	entry := p.Sections[section][field]
	now := time.Now().UTC()

	v := strings.TrimSpace(value)
	entry.Value = &v
	entry.Source = source
	entry.Turn = turn
	entry.Confidence = confidence
	entry.Timestamp = now
	if entry.CollectedTurn == 0 {
		entry.CollectedTurn = turn
	}
	p.LastUpdated = now
	return nil
}

// UpdateField applies a user-initiated correction. Source is forced to
// user_input with full confidence; the original collection turn is preserved
// and the edit turn recorded.
func (p *Scratchpad) UpdateField(section, field, value string, turn int) error {
	if err := p.validateWrite(section, field, SourceUserInput, turn, 1.0); err != nil {
		return err
	}
	entry := p.Sections[section][field]
	now := time.Now().UTC()

	v := strings.TrimSpace(value)
	entry.Value = &v
	entry.Source = SourceUserInput
	entry.Turn = turn
	entry.Confidence = 1.0
	entry.Timestamp = now
	if entry.CollectedTurn == 0 {
		entry.CollectedTurn = turn
	}
	entry.EditedTurn = turn
	p.LastUpdated = now
	return nil
}

// GetField returns the entry for section.field, or nil when unknown.
func (p *Scratchpad) GetField(section, field string) *FieldEntry {
	entries, ok := p.Sections[section]
	if !ok {
		return nil
	}
	return entries[field]
}

// Completeness returns filled required fields / total required fields,
// recomputed on demand.
func (p *Scratchpad) Completeness(required []FieldRef) float64 {
	if len(required) == 0 {
		return 1.0
	}
	filled := 0
	for _, ref := range required {
		if p.GetField(ref.Section, ref.Field).HasValue() {
			filled++
		}
	}
	return float64(filled) / float64(len(required))
}

// MissingRequired lists required fields that are still null, in schema order.
func (p *Scratchpad) MissingRequired(required []FieldRef) []FieldRef {
	var missing []FieldRef
	for _, ref := range required {
		if !p.GetField(ref.Section, ref.Field).HasValue() {
			missing = append(missing, ref)
		}
	}
	return missing
}

// LowConfidenceFields lists filled fields whose confidence sits below the
// floor. They are flagged for review, never rejected.
func (p *Scratchpad) LowConfidenceFields(floor float64) []FieldRef {
	var flagged []FieldRef
	for _, section := range sectionOrder {
		for _, field := range sectionFields[section] {
			if p.Sections[section][field].BelowFloor(floor) {
				flagged = append(flagged, FieldRef{Section: section, Field: field})
			}
		}
	}
	return flagged
}

// Clear resets every entry to null. Used on cancellation.
func (p *Scratchpad) Clear() {
	for _, entries := range p.Sections {
		for field := range entries {
			entries[field] = &FieldEntry{}
		}
	}
	p.LastUpdated = time.Now().UTC()
}

func (p *Scratchpad) validateWrite(section, field string, source Source, turn int, confidence float64) error {
	if !KnownField(section, field) {
		return &ValidationError{Section: section, Field: field, Reason: "unknown section or field"}
	}
	if !source.Valid() {
		return &ValidationError{Section: section, Field: field, Reason: "source not in allowed set"}
	}
	if turn <= 0 {
		return &ValidationError{Section: section, Field: field, Reason: "turn must be a positive integer"}
	}
	if confidence < 0 || confidence > 1 {
		return &ValidationError{Section: section, Field: field, Reason: "confidence outside [0,1]"}
	}
	return nil
}
