package conversation

import (
	"context"
	"time"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

// IntentClassification is the upstream classifier's verdict for one message.
type IntentClassification struct {
	Intent     booking.Intent `json:"intent"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// IntentClassifier labels a message against the closed intent set. Callers
// must treat it as a slow external call.
type IntentClassifier interface {
	Classify(ctx context.Context, history []Message, message string) (IntentClassification, error)
}

// FieldExtractor pulls structured booking fields out of a message. An empty
// result with a nil error means "no data present"; an error means the
// extractor itself failed, which is logged but never crashes the turn.
type FieldExtractor interface {
	Extract(ctx context.Context, message string, history []Message) ([]ExtractedField, error)
}

// SentimentScore is a multi-dimensional sentiment reading used by reply
// composition, not by the booking core itself.
type SentimentScore struct {
	Interest float64 `json:"interest"`
	Anger    float64 `json:"anger"`
	Disgust  float64 `json:"disgust"`
	Boredom  float64 `json:"boredom"`
	Neutral  float64 `json:"neutral"`
}

// Negative reports whether the reply composer should soften its tone.
func (s SentimentScore) Negative() bool {
	return s.Anger >= 0.5 || s.Disgust >= 0.5
}

// SentimentScorer scores a message's emotional tenor.
type SentimentScorer interface {
	Score(ctx context.Context, message string) (SentimentScore, error)
}

// timeoutOracle decorates a typo oracle with a bounded deadline so the
// resolver's fallback path triggers instead of a hang.
type timeoutOracle struct {
	inner   booking.TypoOracle
	timeout time.Duration
}

// NewTimeoutOracle wraps oracle; returns nil when oracle is nil so the
// resolver keeps its no-oracle default.
func NewTimeoutOracle(oracle booking.TypoOracle, timeout time.Duration) booking.TypoOracle {
	if oracle == nil {
		return nil
	}
	return &timeoutOracle{inner: oracle, timeout: timeout}
}

func (o *timeoutOracle) Suggest(ctx context.Context, lastShown, userText string, expected []string) (booking.TypoSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.inner.Suggest(ctx, lastShown, userText, expected)
}
