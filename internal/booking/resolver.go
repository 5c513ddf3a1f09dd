package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Action is the terminal outcome of resolving a confirmation-step reply.
// Resolve is total: every input maps to exactly one action.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionEdit    Action = "edit"
	ActionCancel  Action = "cancel"
)

// Resolution carries the resolved action plus any edit payload or follow-up
// question the user should be asked before the action is acted on.
type Resolution struct {
	Action Action
	// EditTarget and EditValue are set when an EDIT carried a parseable
	// section.field and replacement value.
	EditTarget *FieldRef
	EditValue  string
	// Clarification is a question to put to the user. When set, the action is
	// provisional and nothing should be finalized this turn.
	Clarification string
}

// TypoSuggestion is the typo oracle's verdict on an unrecognized reply.
type TypoSuggestion struct {
	IsTypo     bool
	Suggestion string
	Confidence float64
}

// TypoOracle is an optional external collaborator (typically LLM-backed) that
// guesses what an unrecognized confirmation reply meant.
type TypoOracle interface {
	Suggest(ctx context.Context, lastShown, userText string, expected []string) (TypoSuggestion, error)
}

var (
	confirmWords = map[string]bool{
		"yes": true, "confirm": true, "correct": true, "proceed": true,
		"ok": true, "okay": true, "ready": true, "yep": true, "yeah": true,
	}
	cancelWords = map[string]bool{
		"cancel": true, "no": true, "stop": true, "abort": true,
		"nevermind": true, "nope": true,
	}
	editWords = map[string]bool{
		"edit": true, "change": true, "update": true, "fix": true, "wrong": true,
	}
)

// oracleSuggestionFloor: below this the oracle guess is ignored and the safe
// default applies.
const oracleSuggestionFloor = 0.8

var wordRE = regexp.MustCompile(`[a-z0-9_.]+`)

// Resolver classifies a user reply at the confirmation step into CONFIRM,
// EDIT, or CANCEL. Unclear input always resolves to a defined, recoverable
// action; it never throws and never returns a null action.
type Resolver struct {
	oracle TypoOracle
}

// NewResolver builds a resolver. oracle may be nil, in which case unclear
// input defaults to EDIT with a clarification prompt.
func NewResolver(oracle TypoOracle) *Resolver {
	return &Resolver{oracle: oracle}
}

// Resolve maps userText to an action. lastShown is the confirmation summary
// most recently presented, passed through to the typo oracle for context.
func (r *Resolver) Resolve(ctx context.Context, lastShown, userText string) Resolution {
	words := wordRE.FindAllString(strings.ToLower(userText), -1)

	for _, w := range words {
		if confirmWords[w] {
			return Resolution{Action: ActionConfirm}
		}
	}
	for _, w := range words {
		if cancelWords[w] {
			return Resolution{Action: ActionCancel}
		}
	}
	for i, w := range words {
		if editWords[w] {
			return r.resolveEdit(words[i+1:])
		}
	}

	// Nothing matched. Short acknowledgments never reach the oracle; anything
	// else may be a typo worth asking about.
	if r.oracle != nil && len(words) > 0 {
		suggestion, err := r.oracle.Suggest(ctx, lastShown, userText, []string{"confirm", "edit", "cancel"})
		if err == nil && suggestion.IsTypo && suggestion.Confidence >= oracleSuggestionFloor {
			if action, ok := actionForWord(suggestion.Suggestion); ok {
				// Never auto-apply the guess; ask first.
				return Resolution{
					Action:        action,
					Clarification: fmt.Sprintf("Did you mean %q?", suggestion.Suggestion),
				}
			}
		}
	}

	return Resolution{
		Action:        ActionEdit,
		Clarification: "I didn't catch that. Would you like to confirm, change something, or cancel?",
	}
}

// resolveEdit sub-parses the words following an edit keyword, looking for a
// section.field token (or a unique bare field name) and a replacement value.
func (r *Resolver) resolveEdit(rest []string) Resolution {
	for i, w := range rest {
		ref, ok := ParseFieldRef(w)
		if !ok {
			ref, ok = FieldRefByName(w)
		}
		if !ok {
			continue
		}
		value := editValue(rest[i+1:])
		if value == "" {
			return Resolution{
				Action:        ActionEdit,
				EditTarget:    &ref,
				Clarification: fmt.Sprintf("What should %s be?", fieldLabel(ref.Field)),
			}
		}
		return Resolution{Action: ActionEdit, EditTarget: &ref, EditValue: value}
	}
	return Resolution{
		Action:        ActionEdit,
		Clarification: "Which detail would you like to change?",
	}
}

// editValue joins the remaining words into the new value, dropping a leading
// "to" ("change plate to KA01AB1234").
func editValue(words []string) string {
	if len(words) > 0 && words[0] == "to" {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func actionForWord(word string) (Action, bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	switch {
	case confirmWords[w]:
		return ActionConfirm, true
	case cancelWords[w]:
		return ActionCancel, true
	case editWords[w]:
		return ActionEdit, true
	}
	return "", false
}
