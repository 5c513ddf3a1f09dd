package booking

import (
	"strings"
	"time"
)

// Source records how a field value was obtained.
type Source string

const (
	SourceDirectExtraction      Source = "direct_extraction"
	SourceRetroactiveExtraction Source = "retroactive_extraction"
	SourceUserInput             Source = "user_input"
	SourceInferred              Source = "inferred"
)

// Valid reports whether the source is a member of the allowed set.
func (s Source) Valid() bool {
	switch s {
	case SourceDirectExtraction, SourceRetroactiveExtraction, SourceUserInput, SourceInferred:
		return true
	}
	return false
}

// Scratchpad sections. The schema is closed: every section has a fixed set of
// known field names so completeness and validation stay statically checkable.
const (
	SectionCustomer    = "customer"
	SectionVehicle     = "vehicle"
	SectionAppointment = "appointment"
)

// sectionOrder fixes rendering and flattening order.
var sectionOrder = []string{SectionCustomer, SectionVehicle, SectionAppointment}

var sectionFields = map[string][]string{
	SectionCustomer:    {"first_name", "last_name", "phone"},
	SectionVehicle:     {"brand", "model", "plate"},
	SectionAppointment: {"date", "time_slot", "service_type"},
}

// KnownField reports whether section.field exists in the schema.
func KnownField(section, field string) bool {
	fields, ok := sectionFields[section]
	if !ok {
		return false
	}
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// FieldRef names one schema field as section.field.
type FieldRef struct {
	Section string `json:"section"`
	Field   string `json:"field"`
}

func (r FieldRef) String() string {
	return r.Section + "." + r.Field
}

// ParseFieldRef parses a "section.field" token against the schema.
func ParseFieldRef(s string) (FieldRef, bool) {
	section, field, ok := strings.Cut(strings.TrimSpace(strings.ToLower(s)), ".")
	if !ok || !KnownField(section, field) {
		return FieldRef{}, false
	}
	return FieldRef{Section: section, Field: field}, true
}

// FieldRefByName resolves a bare field name when it is unique across sections.
func FieldRefByName(name string) (FieldRef, bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	var match FieldRef
	count := 0
	for _, section := range sectionOrder {
		for _, field := range sectionFields[section] {
			if field == name {
				match = FieldRef{Section: section, Field: field}
				count++
			}
		}
	}
	return match, count == 1
}

// DefaultRequiredFields is the static required set used for completeness.
func DefaultRequiredFields() []FieldRef {
	return []FieldRef{
		{Section: SectionCustomer, Field: "first_name"},
		{Section: SectionVehicle, Field: "brand"},
		{Section: SectionVehicle, Field: "plate"},
		{Section: SectionAppointment, Field: "date"},
	}
}

// ParseRequiredFields converts "section.field" strings into refs, falling back
// to the defaults when the list is empty or entirely invalid.
func ParseRequiredFields(raw []string) []FieldRef {
	refs := make([]FieldRef, 0, len(raw))
	for _, s := range raw {
		if ref, ok := ParseFieldRef(s); ok {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return DefaultRequiredFields()
	}
	return refs
}

// DefaultConfidenceFloor flags (never rejects) low-confidence extractions.
const DefaultConfidenceFloor = 0.7

// FieldEntry is one collected datum with provenance metadata.
type FieldEntry struct {
	Value      *string   `json:"value"`
	Source     Source    `json:"source"`
	Turn       int       `json:"turn"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`

	// CollectedTurn keeps the turn the value was first captured; EditedTurn
	// records the latest user correction. Both survive edits for audit.
	CollectedTurn int `json:"collected_turn"`
	EditedTurn    int `json:"edited_turn,omitempty"`
}

// HasValue reports whether the entry carries a non-null value.
func (e *FieldEntry) HasValue() bool {
	return e != nil && e.Value != nil
}

// BelowFloor reports whether the entry should be flagged as low confidence.
func (e *FieldEntry) BelowFloor(floor float64) bool {
	return e.HasValue() && e.Confidence < floor
}
