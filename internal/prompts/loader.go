// Package prompts holds the model prompts embedded at compile time. Prompts
// are text/template bodies keyed by name in analysis.json.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// AuditChecklist is the prompt that asks for the full checklist verdict on a
// financial statement. It expects a Schema field.
const AuditChecklist = "audit-checklist"

//go:embed analysis.json
var analysisJSON []byte

var parsed = sync.OnceValues(func() (map[string]*template.Template, error) {
	return parse(analysisJSON)
})

func parse(data []byte) (map[string]*template.Template, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file: %w", err)
	}

	set := make(map[string]*template.Template, len(raw))
	for name, body := range raw {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %q: %w", name, err)
		}
		set[name] = tmpl
	}
	return set, nil
}

// Render executes the named prompt with data.
func Render(name string, data any) (string, error) {
	set, err := parsed()
	if err != nil {
		return "", err
	}
	tmpl, ok := set[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", name)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", name, err)
	}
	return sb.String(), nil
}

// AuditChecklistPrompt renders the checklist prompt with the result schema
// inlined.
func AuditChecklistPrompt(schema string) (string, error) {
	return Render(AuditChecklist, struct{ Schema string }{Schema: schema})
}
