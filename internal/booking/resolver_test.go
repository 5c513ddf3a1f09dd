package booking

import (
	"context"
	"errors"
	"testing"
)

type fakeOracle struct {
	suggestion TypoSuggestion
	err        error
	called     bool
}

func (f *fakeOracle) Suggest(_ context.Context, _, _ string, _ []string) (TypoSuggestion, error) {
	f.called = true
	return f.suggestion, f.err
}

func TestResolveKeywords(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  Action
	}{
		{"yes confirms", "yes", ActionConfirm},
		{"confirm confirms", "Confirm please", ActionConfirm},
		{"ok confirms", "ok!", ActionConfirm},
		{"looks correct", "that looks correct", ActionConfirm},
		{"cancel cancels", "cancel it", ActionCancel},
		{"no cancels", "no", ActionCancel},
		{"nevermind cancels", "nevermind", ActionCancel},
		{"change edits", "change the date", ActionEdit},
		{"wrong edits", "the plate is wrong", ActionEdit},
		{"confirm wins over edit", "ok but change nothing", ActionConfirm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(ctx, "", tt.input)
			if res.Action != tt.want {
				t.Errorf("Resolve(%q).Action = %s, want %s", tt.input, res.Action, tt.want)
			}
		})
	}
}

// Resolve is a total function: any input yields exactly one defined action.
func TestResolveTotalFunction(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()
	inputs := []string{"", "   ", "??", "confrim", "asdf qwer", "日本語", "yes no", "💧"}

	for _, input := range inputs {
		res := r.Resolve(ctx, "", input)
		switch res.Action {
		case ActionConfirm, ActionEdit, ActionCancel:
		default:
			t.Errorf("Resolve(%q) returned undefined action %q", input, res.Action)
		}
	}
}

func TestResolveTypoWithoutOracleDefaultsToEdit(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(context.Background(), "", "confrim")

	if res.Action != ActionEdit {
		t.Fatalf("action = %s, want edit (safe default)", res.Action)
	}
	if res.Clarification == "" {
		t.Fatal("unclear input should carry a clarification prompt")
	}
}

func TestResolveTypoWithOracleAsksFirst(t *testing.T) {
	oracle := &fakeOracle{suggestion: TypoSuggestion{IsTypo: true, Suggestion: "confirm", Confidence: 0.93}}
	r := NewResolver(oracle)

	res := r.Resolve(context.Background(), "summary text", "confrim")

	if !oracle.called {
		t.Fatal("oracle should be consulted for unrecognized input")
	}
	if res.Clarification == "" {
		t.Fatal("oracle suggestion must produce a clarification question, never an automatic confirm")
	}
	if res.Action != ActionConfirm {
		t.Fatalf("provisional action = %s, want confirm", res.Action)
	}
}

func TestResolveOracleLowConfidenceIgnored(t *testing.T) {
	oracle := &fakeOracle{suggestion: TypoSuggestion{IsTypo: true, Suggestion: "confirm", Confidence: 0.4}}
	r := NewResolver(oracle)

	res := r.Resolve(context.Background(), "", "confrim")
	if res.Action != ActionEdit || res.Clarification == "" {
		t.Fatalf("low-confidence guess should fall back to edit+clarify, got %+v", res)
	}
}

func TestResolveOracleFailureFallsBack(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("oracle unavailable")}
	r := NewResolver(oracle)

	res := r.Resolve(context.Background(), "", "confrim")
	if res.Action != ActionEdit || res.Clarification == "" {
		t.Fatalf("oracle failure should fall back to edit+clarify, got %+v", res)
	}
}

func TestResolveEditSubParse(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()

	t.Run("section.field with value", func(t *testing.T) {
		res := r.Resolve(ctx, "", "change vehicle.plate to KA05CD9876")
		if res.EditTarget == nil || res.EditTarget.String() != "vehicle.plate" {
			t.Fatalf("target = %v", res.EditTarget)
		}
		if res.EditValue != "ka05cd9876" {
			t.Fatalf("value = %q", res.EditValue)
		}
	})

	t.Run("unique bare field name", func(t *testing.T) {
		res := r.Resolve(ctx, "", "update plate to MH12XY0001")
		if res.EditTarget == nil || res.EditTarget.String() != "vehicle.plate" {
			t.Fatalf("target = %v", res.EditTarget)
		}
	})

	t.Run("target without value asks for one", func(t *testing.T) {
		res := r.Resolve(ctx, "", "fix the date")
		if res.EditTarget == nil || res.EditTarget.String() != "appointment.date" {
			t.Fatalf("target = %v", res.EditTarget)
		}
		if res.Clarification == "" {
			t.Fatal("missing value should prompt for one")
		}
	})

	t.Run("no target asks which field", func(t *testing.T) {
		res := r.Resolve(ctx, "", "change it")
		if res.EditTarget != nil {
			t.Fatalf("unexpected target %v", res.EditTarget)
		}
		if res.Clarification == "" {
			t.Fatal("unlocatable edit should prompt for the field")
		}
	})
}
