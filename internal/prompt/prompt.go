// Package prompt renders the user prompts workflows send to agents.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var files embed.FS

var templates = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"inc":  func(i int) int { return i + 1 },
	"trim": strings.TrimSpace,
}).ParseFS(files, "templates/*.tmpl"))

// Template names.
const (
	Clarify     = "clarify.tmpl"
	Title       = "title.tmpl"
	SERPQueries = "serp_queries.tmpl"
	WebSearch   = "web_search.tmpl"
	Learnings   = "learnings.tmpl"
	Report      = "report.tmpl"
	Route       = "route.tmpl"
	Plan        = "plan.tmpl"
	Retrieve    = "retrieve.tmpl"
	Rerank      = "rerank.tmpl"
	Evidence    = "evidence.tmpl"
	Answer      = "answer.tmpl"
)

// Render executes the named template with data.
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Names lists the parsed template names.
func Names() []string {
	var names []string
	for _, t := range templates.Templates() {
		if strings.HasSuffix(t.Name(), ".tmpl") {
			names = append(names, t.Name())
		}
	}
	return names
}
