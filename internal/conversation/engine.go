package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
	"github.com/aquashine/carwash-ai-platform/internal/messaging/templates"
	"github.com/aquashine/carwash-ai-platform/internal/observability/metrics"
	"github.com/aquashine/carwash-ai-platform/internal/requests"
	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

// TranscriptStore records user/assistant messages for long-term history.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID, role, content string) error
}

// EngineConfig wires the engine's dependencies and policy knobs.
type EngineConfig struct {
	Store     SessionStore
	Finalizer *requests.Service
	Logger    *logging.Logger

	// Collaborators; all optional, each degrades to a defined fallback.
	Classifier IntentClassifier
	Extractor  FieldExtractor
	Sentiment  SentimentScorer
	Oracle     booking.TypoOracle

	Transcripts TranscriptStore
	Metrics     *metrics.ConversationMetrics

	RequiredFields           []booking.FieldRef
	TriggerPhrases           []string
	AllowPartialConfirmation bool
	ConfidenceFloor          float64
	CollaboratorTimeout      time.Duration
}

// Engine drives one conversation turn at a time: state machine, scratchpad,
// confirmation flow, and finalization. Turns for the same conversation are
// serialized; distinct conversations run in parallel.
type Engine struct {
	store     SessionStore
	locks     *conversationLocks
	detector  *booking.Detector
	resolver  *booking.Resolver
	finalizer *requests.Service
	replies   *templates.Replies
	logger    *logging.Logger

	classifier  IntentClassifier
	extractor   FieldExtractor
	sentiment   SentimentScorer
	transcripts TranscriptStore
	metrics     *metrics.ConversationMetrics

	required        []booking.FieldRef
	allowPartial    bool
	confidenceFloor float64
	timeout         time.Duration
}

var _ Service = (*Engine)(nil)

// NewEngine constructs the conversation engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Store == nil {
		panic("conversation: session store required")
	}
	if cfg.Finalizer == nil {
		panic("conversation: request finalizer required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if len(cfg.RequiredFields) == 0 {
		cfg.RequiredFields = booking.DefaultRequiredFields()
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = booking.DefaultConfidenceFloor
	}
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = 8 * time.Second
	}

	return &Engine{
		store:           cfg.Store,
		locks:           newConversationLocks(),
		detector:        booking.NewDetector(cfg.TriggerPhrases),
		resolver:        booking.NewResolver(NewTimeoutOracle(cfg.Oracle, cfg.CollaboratorTimeout)),
		finalizer:       cfg.Finalizer,
		replies:         templates.NewReplies(),
		logger:          cfg.Logger,
		classifier:      cfg.Classifier,
		extractor:       cfg.Extractor,
		sentiment:       cfg.Sentiment,
		transcripts:     cfg.Transcripts,
		metrics:         cfg.Metrics,
		required:        cfg.RequiredFields,
		allowPartial:    cfg.AllowPartialConfirmation,
		confidenceFloor: cfg.ConfidenceFloor,
		timeout:         cfg.CollaboratorTimeout,
	}
}

// ProcessTurn handles one inbound user message for a conversation.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if strings.TrimSpace(req.ConversationID) == "" {
		return nil, errors.New("conversation: conversation id required")
	}

	e.locks.Lock(req.ConversationID)
	defer e.locks.Unlock(req.ConversationID)
	start := time.Now()

	session, err := e.store.Get(ctx, req.ConversationID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		session = NewSession(req.ConversationID)
	case err != nil:
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	session.Turn++
	e.appendTranscript(ctx, req.ConversationID, "user", req.Message)

	resp, err := e.processTurnLocked(ctx, session, req)
	if err != nil {
		e.observeTurn(session, "error", start)
		return nil, err
	}

	if err := e.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("conversation: save session: %w", err)
	}

	resp.ConversationID = req.ConversationID
	resp.State = session.Machine.Current
	resp.Completeness = session.Pad.Completeness(e.required)
	resp.Timestamp = time.Now().UTC()

	e.appendTranscript(ctx, req.ConversationID, "assistant", resp.Message)
	e.observeTurn(session, "ok", start)
	return resp, nil
}

// Completeness returns the required-field completeness for a conversation.
func (e *Engine) Completeness(ctx context.Context, conversationID string) (float64, error) {
	session, err := e.store.Get(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	return session.Pad.Completeness(e.required), nil
}

func (e *Engine) processTurnLocked(ctx context.Context, session *Session, req TurnRequest) (*TurnResponse, error) {
	// Terminal conversations answer without touching the scratchpad. A
	// retried confirm on a completed conversation returns the same request id.
	switch session.Machine.Current {
	case booking.StateCompleted:
		return &TurnResponse{
			Message:          e.replies.AlreadyCompleted(session.ServiceRequestID),
			ServiceRequestID: session.ServiceRequestID,
		}, nil
	case booking.StateCancelled:
		return &TurnResponse{Message: e.replies.Closed()}, nil
	}

	negative := e.score(ctx, req.Message).Negative()

	if session.Machine.Current == booking.StateConfirmation {
		return e.handleConfirmation(ctx, session, req, negative)
	}
	return e.handleCollection(ctx, session, req, negative)
}

func (e *Engine) handleCollection(ctx context.Context, session *Session, req TurnRequest, negative bool) (*TurnResponse, error) {
	intent := req.Intent
	if intent == booking.IntentUnknown {
		intent = e.classify(ctx, req.Message).Intent
	}

	extracted := req.Extracted
	if len(extracted) == 0 {
		extracted = e.extract(ctx, req.Message)
	}
	e.applyExtracted(session, extracted)

	if err := session.Machine.AdvanceCollection(session.Pad, wantsSkip(req.Message)); err != nil {
		return nil, err
	}

	if e.detector.ShouldTriggerConfirmation(req.Message, intent, session.Machine.Current) {
		entered, err := session.Machine.EnterConfirmation(session.Pad, e.required, e.allowPartial)
		if err != nil {
			return nil, err
		}
		if entered {
			partial := session.Pad.Completeness(e.required) < 1.0
			summary := booking.RenderSummary(session.Pad, booking.SummaryOptions{
				ShowMissing: partial,
				Required:    e.required,
			})
			session.LastSummary = summary
			return &TurnResponse{
				Message:       e.replies.Soften(e.replies.ConfirmationPrompt(summary, partial), negative),
				ShouldConfirm: true,
			}, nil
		}
		// Not enough data to confirm; stay where collection prompts are legal.
		return &TurnResponse{
			Message: e.replies.Soften(e.replies.MissingFields(session.Pad.MissingRequired(e.required)), negative),
		}, nil
	}

	return &TurnResponse{
		Message: e.replies.Soften(e.replies.StagePrompt(session.Machine.Current, session.Pad), negative),
	}, nil
}

func (e *Engine) handleConfirmation(ctx context.Context, session *Session, req TurnRequest, negative bool) (*TurnResponse, error) {
	res := e.resolver.Resolve(ctx, session.LastSummary, req.Message)
	e.metrics.ObserveConfirmationAction(string(res.Action))

	// Edits carrying a parseable target and value are applied even when a
	// clarifying question follows; everything else with a clarification waits
	// for the user's answer.
	if res.Action == booking.ActionEdit && res.EditTarget != nil && res.EditValue != "" {
		return e.applyEdit(session, res, negative)
	}
	if res.Clarification != "" {
		return &TurnResponse{
			Message:       e.replies.Soften(res.Clarification, negative),
			ShouldConfirm: true,
		}, nil
	}

	switch res.Action {
	case booking.ActionConfirm:
		return e.finalize(ctx, session, negative)
	case booking.ActionCancel:
		if err := session.Machine.Transition(booking.StateCancelled); err != nil {
			return nil, err
		}
		session.Pad.Clear()
		session.LastSummary = ""
		return &TurnResponse{Message: e.replies.Soften(e.replies.Cancelled(), negative)}, nil
	default:
		// Edit with nothing to apply and no clarification should not occur;
		// answer with the recoverable prompt anyway.
		return &TurnResponse{
			Message:       e.replies.Soften(e.replies.Fallback(), negative),
			ShouldConfirm: true,
		}, nil
	}
}

// finalize persists the service request and only then marks the conversation
// completed. The two act as one logical unit: a failed write leaves the
// machine in confirmation so the user can retry.
func (e *Engine) finalize(ctx context.Context, session *Session, negative bool) (*TurnResponse, error) {
	stored, err := e.finalizer.Finalize(ctx, session.Pad, session.ConversationID)
	if err != nil {
		var merr *booking.MissingRequiredFieldError
		if errors.As(err, &merr) {
			return &TurnResponse{
				Message:       e.replies.Soften(e.replies.MissingFields(merr.Missing), negative),
				ShouldConfirm: true,
			}, nil
		}
		e.logger.Error("service request persistence failed",
			"conversation_id", session.ConversationID, "error", err)
		e.metrics.ObserveCollaboratorFailure("persistence")
		return &TurnResponse{
			Message:       e.replies.Soften(e.replies.Fallback(), negative),
			ShouldConfirm: true,
		}, nil
	}

	if err := session.Machine.Transition(booking.StateCompleted); err != nil {
		return nil, err
	}
	session.ServiceRequestID = stored.ID
	return &TurnResponse{
		Message:          e.replies.Soften(e.replies.Confirmed(stored.ID), negative),
		ServiceRequestID: stored.ID,
	}, nil
}

func (e *Engine) applyEdit(session *Session, res booking.Resolution, negative bool) (*TurnResponse, error) {
	target := *res.EditTarget
	if err := session.Pad.UpdateField(target.Section, target.Field, res.EditValue, session.Turn); err != nil {
		e.logger.Warn("edit rejected", "conversation_id", session.ConversationID,
			"field", target.String(), "error", err)
		return &TurnResponse{
			Message:       e.replies.Soften(e.replies.Fallback(), negative),
			ShouldConfirm: true,
		}, nil
	}
	// Self-loop keeps the transition on the books.
	if err := session.Machine.Transition(booking.StateConfirmation); err != nil {
		return nil, err
	}

	summary := booking.RenderSummary(session.Pad, booking.SummaryOptions{
		ShowMissing: session.Pad.Completeness(e.required) < 1.0,
		Required:    e.required,
	})
	session.LastSummary = summary
	return &TurnResponse{
		Message:       e.replies.Soften(e.replies.Updated(summary), negative),
		ShouldConfirm: true,
	}, nil
}

// applyExtracted writes extractor output into the scratchpad, ignoring any
// section the current stage did not ask for. During greeting every section is
// accepted since the first message often carries several details at once.
func (e *Engine) applyExtracted(session *Session, fields []ExtractedField) {
	allowed := session.Machine.CollectionSection()
	for _, f := range fields {
		if allowed != "" && f.Section != allowed {
			e.logger.Warn("cross-section extraction ignored",
				"conversation_id", session.ConversationID,
				"stage", session.Machine.Current,
				"proposed", f.Section+"."+f.Field)
			continue
		}
		source := f.Source
		if source == "" {
			source = booking.SourceDirectExtraction
		}
		if err := session.Pad.AddField(f.Section, f.Field, f.Value, source, session.Turn, f.Confidence); err != nil {
			e.logger.Warn("extracted field rejected",
				"conversation_id", session.ConversationID,
				"field", f.Section+"."+f.Field, "error", err)
			continue
		}
		if f.Confidence < e.confidenceFloor {
			e.logger.Info("low confidence field flagged",
				"conversation_id", session.ConversationID,
				"field", f.Section+"."+f.Field, "confidence", f.Confidence)
		}
	}
}

func (e *Engine) classify(ctx context.Context, message string) IntentClassification {
	if e.classifier == nil {
		return IntentClassification{Intent: booking.IntentUnknown}
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.classifier.Classify(ctx, nil, message)
	if err != nil {
		e.logger.Warn("intent classifier failed, treating intent as unknown", "error", err)
		e.metrics.ObserveCollaboratorFailure("intent_classifier")
		return IntentClassification{Intent: booking.IntentUnknown}
	}
	return result
}

func (e *Engine) extract(ctx context.Context, message string) []ExtractedField {
	if e.extractor == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	fields, err := e.extractor.Extract(ctx, message, nil)
	if err != nil {
		e.logger.Warn("field extractor failed, proceeding without extraction", "error", err)
		e.metrics.ObserveCollaboratorFailure("field_extractor")
		return nil
	}
	return fields
}

func (e *Engine) score(ctx context.Context, message string) SentimentScore {
	if e.sentiment == nil {
		return SentimentScore{Neutral: 1}
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	score, err := e.sentiment.Score(ctx, message)
	if err != nil {
		e.logger.Warn("sentiment scorer failed, assuming neutral", "error", err)
		e.metrics.ObserveCollaboratorFailure("sentiment_scorer")
		return SentimentScore{Neutral: 1}
	}
	return score
}

func (e *Engine) appendTranscript(ctx context.Context, conversationID, role, content string) {
	if e.transcripts == nil || content == "" {
		return
	}
	if err := e.transcripts.Append(ctx, conversationID, role, content); err != nil {
		e.logger.Warn("transcript append failed", "conversation_id", conversationID, "error", err)
	}
}

func (e *Engine) observeTurn(session *Session, outcome string, start time.Time) {
	state := string(session.Machine.Current)
	e.metrics.ObserveTurn(state, outcome)
	e.metrics.ObserveTurnLatency(state, time.Since(start).Seconds())
}

var skipPhrases = []string{"skip", "move on", "next question"}

// wantsSkip detects the explicit move-forward signal.
func wantsSkip(message string) bool {
	text := strings.ToLower(message)
	for _, p := range skipPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
