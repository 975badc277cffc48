// Package prompt renders system prompts for the executor agent and for
// general orchestrator turns.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/internal/mode"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// phaseTemplate renders general phase turns.
const phaseTemplate = "phase"

// Data is the input of every template. Fields a template does not use are
// ignored.
type Data struct {
	Project       string
	Title         string
	Description   string
	Instructions  string
	PhaseContext  string
	ExecutionCue  string
	CompletionCue string
	// Tools reports whether orchestrator tools are offered on this turn.
	Tools bool
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Must is like New but panics on error. The templates are compiled into the
// binary, so a failure is a programming error.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes the named template ("planning", "execution",
// "completion" or "phase").
func (r *Renderer) Render(name string, data Data) (string, error) {
	t := r.tmpl.Lookup(name + ".tmpl")
	if t == nil {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	if data.Project == "" {
		data.Project = delegate.ProjectName
	}
	data.ExecutionCue = mode.ExecutionCue
	data.CompletionCue = mode.CompletionCue

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}

// Executor renders the executor's system prompt for a mode.
func (r *Renderer) Executor(m mode.Mode, p delegate.Payload) (string, error) {
	return r.Render(m.Template(), Data{
		Title:        p.Title,
		Description:  p.Description,
		Instructions: p.Instructions,
	})
}

// Phase renders the system prompt of a general phase turn. phaseContext is
// the orchestrator's "Current development phase: X" line.
func (r *Renderer) Phase(phaseContext string, tools bool) (string, error) {
	return r.Render(phaseTemplate, Data{PhaseContext: phaseContext, Tools: tools})
}
