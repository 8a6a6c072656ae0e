// Package tui renders engine output for interactive terminals: markdown
// replies through glamour, prompts and banners styled with termenv. In
// non-interactive mode everything degrades to plain text.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/parleyhq/parley/pkg/domain"
)

// Renderer formats replies, prompts, and the startup banner.
type Renderer struct {
	markdown *glamour.TermRenderer
	output   *termenv.Output
	plain    bool
}

// NewRenderer builds a renderer. When interactive is false, output is plain
// text suitable for pipes and logs.
func NewRenderer(interactive bool) *Renderer {
	r := &Renderer{
		output: termenv.DefaultOutput(),
		plain:  !interactive,
	}
	if interactive {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

// Reply renders the engine's response text.
func (r *Renderer) Reply(text string) string {
	if text == "" {
		return ""
	}
	if r.plain || r.markdown == nil {
		return text + "\n"
	}
	rendered, err := r.markdown.Render(text)
	if err != nil {
		return text + "\n"
	}
	return rendered
}

// Prompt renders the pending question, with a yes/no hint on confirmations.
func (r *Renderer) Prompt(p *domain.PendingPrompt) string {
	if p == nil {
		return ""
	}
	text := p.Prompt
	if p.Kind == domain.PromptConfirm {
		text += " (yes/no)"
	}
	if r.plain {
		return text + "\n"
	}
	return r.output.String(text).Bold().Foreground(r.output.Color("6")).String() + "\n"
}

// Banner renders the startup line listing the loaded flows.
func (r *Renderer) Banner(flows []string) string {
	line := fmt.Sprintf("parley ready with %d flow(s): %s", len(flows), strings.Join(flows, ", "))
	if r.plain {
		return line + "\n"
	}
	return r.output.String(line).Faint().String() + "\n"
}
