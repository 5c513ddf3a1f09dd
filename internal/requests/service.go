package requests

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

var requestsTracer = otel.Tracer("carwash.internal.requests")

// Service finalizes confirmed scratchpads into durable service requests.
type Service struct {
	repo    Repository
	builder *booking.Builder
	logger  *logging.Logger
}

// NewService constructs a requests service.
func NewService(repo Repository, builder *booking.Builder, logger *logging.Logger) *Service {
	if repo == nil {
		panic("requests: repository required")
	}
	if builder == nil {
		builder = booking.NewBuilder(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, builder: builder, logger: logger}
}

// Finalize builds the immutable record and persists it behind the idempotency
// key. A retried confirm returns the already-stored record; duplicate
// submission is not an error.
func (s *Service) Finalize(ctx context.Context, pad *booking.Scratchpad, conversationID string) (*booking.ServiceRequest, error) {
	ctx, span := requestsTracer.Start(ctx, "requests.finalize")
	defer span.End()
	span.SetAttributes(attribute.String("carwash.conversation_id", conversationID))

	req, err := s.builder.Build(pad, conversationID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	stored, created, err := s.repo.CreateOrGet(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if created {
		s.logger.Info("service request finalized",
			"conversation_id", conversationID,
			"request_id", stored.ID,
			"fields", len(stored.Fields),
		)
	} else {
		s.logger.Info("duplicate confirm resolved to existing request",
			"conversation_id", conversationID,
			"request_id", stored.ID,
		)
	}
	return stored, nil
}
