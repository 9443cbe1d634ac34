package tmpl

import (
	"fmt"
)

// TemplateString is an inline template, typically a configuration value.
// It unmarshals from a plain YAML or JSON string.
type TemplateString string

func (t TemplateString) Validate() error {
	if _, err := Parse("<inline>", string(t)); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

// Render renders t with e. A nil engine renders with the default filters
// and no loader, so the template cannot extend or include others.
func (t TemplateString) Render(e *Engine, data map[string]any) (string, error) {
	if e == nil {
		e = New(Options{})
	}
	out, err := e.RenderString("<inline>", string(t), data)
	if err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return out, nil
}
