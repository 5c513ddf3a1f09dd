package conversation

import (
	"context"
	"time"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

// Service describes how the conversation engine should behave.
type Service interface {
	ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
	Completeness(ctx context.Context, conversationID string) (float64, error)
}

// Message represents a single message in a conversation transcript.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ExtractedField is one field value proposed by an upstream extractor.
type ExtractedField struct {
	Section    string         `json:"section"`
	Field      string         `json:"field"`
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`
	Source     booking.Source `json:"source,omitempty"`
}

// TurnRequest represents a single inbound user message. Intent and Extracted
// may be pre-populated by the caller; when absent the engine consults its own
// collaborators.
type TurnRequest struct {
	ConversationID string           `json:"conversation_id"`
	Message        string           `json:"message"`
	Intent         booking.Intent   `json:"intent,omitempty"`
	Extracted      []ExtractedField `json:"extracted,omitempty"`
}

// TurnResponse is the DTO returned to the API layer.
type TurnResponse struct {
	ConversationID   string        `json:"conversation_id"`
	Message          string        `json:"message"`
	State            booking.State `json:"state"`
	ShouldConfirm    bool          `json:"should_confirm"`
	Completeness     float64       `json:"completeness"`
	ServiceRequestID string        `json:"service_request_id,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
}
