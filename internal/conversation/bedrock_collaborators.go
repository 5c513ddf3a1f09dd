package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

const (
	intentSystemPrompt = `You label one customer message from a car wash booking chat.
Respond with JSON only: {"intent": "...", "confidence": 0.0, "reasoning": "..."}.
intent must be one of: book, inquire, complaint, small_talk, cancel, reschedule, payment, unknown.`

	extractionSystemPrompt = `You extract booking details from one customer message in a car wash chat.
Respond with JSON only: {"fields": [{"section": "...", "field": "...", "value": "...", "confidence": 0.0}]}.
Valid fields: customer.first_name, customer.last_name, customer.phone,
vehicle.brand, vehicle.model, vehicle.plate,
appointment.date, appointment.time_slot, appointment.service_type.
Dates must be ISO 8601. Return an empty list when the message carries no booking data.`

	sentimentSystemPrompt = `You score the emotional tenor of one customer message.
Respond with JSON only: {"interest": 0.0, "anger": 0.0, "disgust": 0.0, "boredom": 0.0, "neutral": 0.0}.
Each score is between 0 and 1.`

	typoSystemPrompt = `A customer saw a booking summary and replied with something unrecognized.
Decide whether the reply is a typo of one of the expected words.
Respond with JSON only: {"is_typo": false, "suggestion": "", "confidence": 0.0}.`
)

// BedrockCollaborators implements the engine's LLM-backed collaborators on a
// single Bedrock Converse model. Every method returns an error on model or
// parse failure; the engine owns the fallback behavior.
type BedrockCollaborators struct {
	api     bedrockConverseAPI
	modelID string
}

var (
	_ IntentClassifier  = (*BedrockCollaborators)(nil)
	_ FieldExtractor    = (*BedrockCollaborators)(nil)
	_ SentimentScorer   = (*BedrockCollaborators)(nil)
	_ booking.TypoOracle = (*BedrockCollaborators)(nil)
)

// NewBedrockCollaborators wraps a Bedrock runtime client.
func NewBedrockCollaborators(api bedrockConverseAPI, modelID string) *BedrockCollaborators {
	if api == nil {
		panic("conversation: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		panic("conversation: bedrock model id cannot be empty")
	}
	return &BedrockCollaborators{api: api, modelID: modelID}
}

func (b *BedrockCollaborators) Classify(ctx context.Context, history []Message, message string) (IntentClassification, error) {
	prompt := message
	if len(history) > 0 {
		var sb strings.Builder
		sb.WriteString("Recent messages:\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
		sb.WriteString("\nLabel this message: ")
		sb.WriteString(message)
		prompt = sb.String()
	}

	text, err := b.converse(ctx, intentSystemPrompt, prompt)
	if err != nil {
		return IntentClassification{}, err
	}

	var result IntentClassification
	if err := json.Unmarshal(stripCodeFences(text), &result); err != nil {
		return IntentClassification{}, fmt.Errorf("conversation: intent response parse: %w", err)
	}
	if !result.Intent.Valid() {
		result.Intent = booking.IntentUnknown
	}
	return result, nil
}

func (b *BedrockCollaborators) Extract(ctx context.Context, message string, _ []Message) ([]ExtractedField, error) {
	text, err := b.converse(ctx, extractionSystemPrompt, message)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Fields []ExtractedField `json:"fields"`
	}
	if err := json.Unmarshal(stripCodeFences(text), &decoded); err != nil {
		return nil, fmt.Errorf("conversation: extraction response parse: %w", err)
	}
	return decoded.Fields, nil
}

func (b *BedrockCollaborators) Score(ctx context.Context, message string) (SentimentScore, error) {
	text, err := b.converse(ctx, sentimentSystemPrompt, message)
	if err != nil {
		return SentimentScore{}, err
	}

	var score SentimentScore
	if err := json.Unmarshal(stripCodeFences(text), &score); err != nil {
		return SentimentScore{}, fmt.Errorf("conversation: sentiment response parse: %w", err)
	}
	return score, nil
}

func (b *BedrockCollaborators) Suggest(ctx context.Context, lastShown, userText string, expected []string) (booking.TypoSuggestion, error) {
	prompt := fmt.Sprintf("Summary shown:\n%s\n\nCustomer reply: %q\nExpected words: %s",
		lastShown, userText, strings.Join(expected, ", "))

	text, err := b.converse(ctx, typoSystemPrompt, prompt)
	if err != nil {
		return booking.TypoSuggestion{}, err
	}

	var decoded struct {
		IsTypo     bool    `json:"is_typo"`
		Suggestion string  `json:"suggestion"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(stripCodeFences(text), &decoded); err != nil {
		return booking.TypoSuggestion{}, fmt.Errorf("conversation: typo response parse: %w", err)
	}
	return booking.TypoSuggestion{
		IsTypo:     decoded.IsTypo,
		Suggestion: decoded.Suggestion,
		Confidence: decoded.Confidence,
	}, nil
}

func (b *BedrockCollaborators) converse(ctx context.Context, system, user string) (string, error) {
	out, err := b.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: system},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: user},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(512),
			Temperature: aws.Float32(0),
		},
	})
	if err != nil {
		return "", err
	}

	return bedrockExtractOutputText(out)
}

func bedrockExtractOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("conversation: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("conversation: bedrock response did not include a message output")
	}

	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.New("conversation: bedrock response contained no text content blocks")
	}
	return text, nil
}

// stripCodeFences removes a wrapping markdown fence some models emit around
// JSON output.
func stripCodeFences(text string) []byte {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return []byte(strings.TrimSpace(trimmed))
}
