// Package ui prints a conversation to a terminal as it streams.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/suPer8Hu/alira/internal/chat"
	"github.com/suPer8Hu/alira/internal/conversation"
)

// Renderer writes only what changed since the last state it saw, so a
// reply appears fragment by fragment.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer

	assistantTag lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style

	// printed counts the bytes of the running reply already written.
	printed   int
	streaming bool
}

func NewRenderer(out io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out: out,
		assistantTag: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208")),
		errorStyle: r.NewStyle().
			Foreground(lipgloss.Color("196")),
		dimStyle: r.NewStyle().
			Foreground(lipgloss.Color("242")),
	}
}

// Greet prints the opening assistant message.
func (r *Renderer) Greet(s conversation.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(s.Transcript) == 0 {
		return
	}
	r.line(s.Transcript[0])
}

// Hint prints a dim one-line note.
func (r *Renderer) Hint(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.dimStyle.Render(text))
}

// Update is meant to be passed to conversation.WithOnChange.
func (r *Renderer) Update(s conversation.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch s.Phase {
	case conversation.PhaseSending:
		r.printed = 0
		r.streaming = false

	case conversation.PhaseStreaming:
		p, ok := s.Placeholder()
		if !ok {
			return
		}
		if !r.streaming {
			fmt.Fprint(r.out, r.assistantTag.Render("alira")+" ")
			r.streaming = true
		}
		r.flush(p.Content)

	case conversation.PhaseSettled:
		last := s.Transcript[len(s.Transcript)-1]
		if !r.streaming {
			fmt.Fprint(r.out, r.assistantTag.Render("alira")+" ")
			r.streaming = true
		}
		r.flush(last.Content)
		fmt.Fprintln(r.out)
		r.streaming = false

	case conversation.PhaseErrored:
		if r.streaming {
			fmt.Fprintln(r.out)
		}
		r.streaming = false
		fmt.Fprintln(r.out, r.assistantTag.Render("alira")+" "+r.errorStyle.Render(conversation.FallbackText))
		if s.Err != nil {
			fmt.Fprintln(r.out, r.dimStyle.Render(s.Err.Error()))
		}
	}
}

func (r *Renderer) flush(content string) {
	if len(content) > r.printed {
		_, _ = io.WriteString(r.out, content[r.printed:])
		r.printed = len(content)
	}
}

func (r *Renderer) line(m chat.Message) {
	tag := "you"
	if m.Role == chat.RoleAssistant {
		tag = r.assistantTag.Render("alira")
	}
	fmt.Fprintln(r.out, tag+" "+m.Content)
}
