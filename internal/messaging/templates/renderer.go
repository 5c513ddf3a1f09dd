package templates

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Renderer renders small text templates for outbound messaging. Parsed
// templates are cached by name, so reply composition does not reparse the
// same template on every turn.
type Renderer struct {
	cache sync.Map // name -> *template.Template
}

// Render executes the named template text with strict missing-key semantics.
func (r *Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("templates: template text required")
	}

	t, err := r.parsed(name, tmpl)
	if err != nil {
		return "", fmt.Errorf("templates: parse: %w", err)
	}

	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("templates: execute: %w", err)
	}
	return sb.String(), nil
}

func (r *Renderer) parsed(name, tmpl string) (*template.Template, error) {
	if cached, ok := r.cache.Load(name); ok {
		return cached.(*template.Template), nil
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, err
	}
	r.cache.Store(name, t)
	return t, nil
}
