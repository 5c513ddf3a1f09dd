package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

type fakeConverseAPI struct {
	reply string
	err   error
	calls int
}

func (f *fakeConverseAPI) Converse(_ context.Context, _ *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: f.reply},
				},
			},
		},
	}, nil
}

func TestBedrockClassify(t *testing.T) {
	api := &fakeConverseAPI{reply: `{"intent": "book", "confidence": 0.91, "reasoning": "asks for a wash"}`}
	c := NewBedrockCollaborators(api, "anthropic.claude-3-haiku")

	got, err := c.Classify(context.Background(), nil, "I'd like a wash tomorrow")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Intent != booking.IntentBook || got.Confidence != 0.91 {
		t.Errorf("classification = %+v", got)
	}
}

func TestBedrockClassifyInvalidLabel(t *testing.T) {
	api := &fakeConverseAPI{reply: `{"intent": "banana", "confidence": 0.4}`}
	c := NewBedrockCollaborators(api, "anthropic.claude-3-haiku")

	got, err := c.Classify(context.Background(), nil, "???")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Intent != booking.IntentUnknown {
		t.Errorf("intent = %q, want unknown", got.Intent)
	}
}

func TestBedrockExtractWithCodeFence(t *testing.T) {
	api := &fakeConverseAPI{reply: "```json\n{\"fields\": [{\"section\": \"vehicle\", \"field\": \"plate\", \"value\": \"KA01AB1234\", \"confidence\": 0.97}]}\n```"}
	c := NewBedrockCollaborators(api, "anthropic.claude-3-haiku")

	fields, err := c.Extract(context.Background(), "plate is KA01AB1234", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(fields) != 1 || fields[0].Field != "plate" || fields[0].Value != "KA01AB1234" {
		t.Errorf("fields = %+v", fields)
	}
}

func TestBedrockSuggest(t *testing.T) {
	api := &fakeConverseAPI{reply: `{"is_typo": true, "suggestion": "confirm", "confidence": 0.9}`}
	c := NewBedrockCollaborators(api, "anthropic.claude-3-haiku")

	got, err := c.Suggest(context.Background(), "summary", "confrim", []string{"confirm", "edit", "cancel"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if !got.IsTypo || got.Suggestion != "confirm" {
		t.Errorf("suggestion = %+v", got)
	}
}

func TestBedrockErrorsPropagate(t *testing.T) {
	boom := errors.New("throttled")
	c := NewBedrockCollaborators(&fakeConverseAPI{err: boom}, "anthropic.claude-3-haiku")

	if _, err := c.Score(context.Background(), "hello"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestBedrockParseFailure(t *testing.T) {
	c := NewBedrockCollaborators(&fakeConverseAPI{reply: "not json"}, "anthropic.claude-3-haiku")

	if _, err := c.Classify(context.Background(), nil, "hi"); err == nil {
		t.Fatal("expected parse error")
	}
}
