package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle status of a finalized service request.
type RequestStatus string

const (
	RequestConfirmed RequestStatus = "confirmed"
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

// CollectionSource is one audit entry: where an included field value came
// from.
type CollectionSource struct {
	Field      string  `json:"field"` // section.field
	Source     Source  `json:"source"`
	Turn       int     `json:"turn"`
	Confidence float64 `json:"confidence"`
}

// ServiceRequest is the immutable, auditable booking record produced from a
// confirmed scratchpad. Once created it is never mutated; corrections require
// a new request.
type ServiceRequest struct {
	ID                string             `json:"id"`
	ConversationID    string             `json:"conversation_id"`
	IdempotencyKey    string             `json:"idempotency_key"`
	Fields            map[string]string  `json:"fields"` // section.field -> value, nulls filtered
	CollectionSources []CollectionSource `json:"collection_sources"`
	Status            RequestStatus      `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	ConfirmedAt       time.Time          `json:"confirmed_at"`
}

// Builder turns a fully collected scratchpad into a ServiceRequest.
type Builder struct {
	required []FieldRef
}

// NewBuilder creates a builder validating against the given required set, or
// the default set when nil.
func NewBuilder(required []FieldRef) *Builder {
	if len(required) == 0 {
		required = DefaultRequiredFields()
	}
	return &Builder{required: required}
}

// Build flattens the scratchpad's non-null fields into an immutable record
// with a per-field provenance audit list. It fails with
// MissingRequiredFieldError when any required field is still null; the
// scratchpad is left untouched either way.
func (b *Builder) Build(pad *Scratchpad, conversationID string) (*ServiceRequest, error) {
	if missing := pad.MissingRequired(b.required); len(missing) > 0 {
		return nil, &MissingRequiredFieldError{Missing: missing}
	}

	now := time.Now().UTC()
	req := &ServiceRequest{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		IdempotencyKey: IdempotencyKey(conversationID, pad),
		Fields:         make(map[string]string),
		Status:         RequestConfirmed,
		CreatedAt:      now,
		ConfirmedAt:    now,
	}

	for _, section := range sectionOrder {
		for _, field := range sectionFields[section] {
			entry := pad.GetField(section, field)
			if !entry.HasValue() {
				continue
			}
			name := section + "." + field
			req.Fields[name] = *entry.Value
			req.CollectionSources = append(req.CollectionSources, CollectionSource{
				Field:      name,
				Source:     entry.Source,
				Turn:       entry.Turn,
				Confidence: entry.Confidence,
			})
		}
	}
	return req, nil
}

// IdempotencyKey derives a deterministic key from the conversation id and the
// normalized customer and vehicle identities. Retried confirms for the same
// booking hash to the same key, which the persistence layer deduplicates.
func IdempotencyKey(conversationID string, pad *Scratchpad) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(conversationID)),
		normalizedIdentity(pad, SectionCustomer, "first_name", "last_name", "phone"),
		normalizedIdentity(pad, SectionVehicle, "brand", "model", "plate"),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func normalizedIdentity(pad *Scratchpad, section string, fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		entry := pad.GetField(section, field)
		if !entry.HasValue() {
			continue
		}
		v := strings.ToLower(strings.Join(strings.Fields(*entry.Value), " "))
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}
