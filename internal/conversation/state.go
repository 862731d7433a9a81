// Package conversation keeps a chat transcript consistent while an
// assistant reply streams in.
//
// All transcript changes go through Reduce, a pure function of the current
// State and one Event. Ids and timestamps arrive inside events, so the same
// event log always rebuilds the same transcript.
package conversation

import (
	"slices"
	"strings"
	"time"

	"github.com/suPer8Hu/alira/internal/chat"
)

// FallbackText replaces the reply of a failed turn.
const FallbackText = "Sorry, something went wrong. Please try again."

// DefaultGreeting seeds every new conversation.
const DefaultGreeting = "Hello! I'm your ALIRA strategic planning assistant. Let's create your personalized 90-day action plan. What project or idea are you working on?"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseSettled
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseSettled:
		return "settled"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// InFlight reports whether a turn is running.
func (p Phase) InFlight() bool {
	return p == PhaseSending || p == PhaseStreaming
}

type State struct {
	Phase      Phase
	Transcript []chat.Message
	Input      string
	// Reply is the concatenation of every fragment of the running turn.
	Reply string
	// Err is the cause of the last failed turn.
	Err error
}

// NewState returns a conversation holding only the greeting.
func NewState(greeting string, at time.Time) State {
	return State{
		Phase: PhaseIdle,
		Transcript: []chat.Message{{
			ID:        chat.GreetingID,
			Role:      chat.RoleAssistant,
			Content:   greeting,
			Timestamp: at,
		}},
	}
}

// CanSubmit reports whether a Submit event would start a turn.
func (s State) CanSubmit() bool {
	return !s.Phase.InFlight() && strings.TrimSpace(s.Input) != ""
}

// Placeholder returns the in-progress assistant message, if any.
func (s State) Placeholder() (chat.Message, bool) {
	if n := len(s.Transcript); n > 0 && s.Transcript[n-1].IsPlaceholder() {
		return s.Transcript[n-1], true
	}
	return chat.Message{}, false
}

type Event interface{ isEvent() }

// EditInput replaces the input buffer.
type EditInput struct{ Text string }

// Submit starts a turn with the current input.
type Submit struct {
	ID string
	At time.Time
}

// Fragment carries the next piece of the reply.
type Fragment struct {
	Text string
	At   time.Time
}

// EndOfStream finalizes the reply under ID.
type EndOfStream struct {
	ID string
	At time.Time
}

// Failure ends the turn with FallbackText under ID.
type Failure struct {
	ID  string
	At  time.Time
	Err error
}

// Reset returns a settled or errored conversation to idle.
type Reset struct{}

func (EditInput) isEvent()   {}
func (Submit) isEvent()      {}
func (Fragment) isEvent()    {}
func (EndOfStream) isEvent() {}
func (Failure) isEvent()     {}
func (Reset) isEvent()       {}

// Reduce applies e to s. Events that do not fit the current phase return s
// unchanged. The transcript of s is never modified in place.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case EditInput:
		s.Input = e.Text
		return s

	case Submit:
		if !s.CanSubmit() {
			return s
		}
		s.Transcript = appendMessage(s.Transcript, chat.Message{
			ID:        e.ID,
			Role:      chat.RoleUser,
			Content:   s.Input,
			Timestamp: e.At,
		})
		s.Input = ""
		s.Reply = ""
		s.Err = nil
		s.Phase = PhaseSending
		return s

	case Fragment:
		switch s.Phase {
		case PhaseSending:
			s.Reply += e.Text
			s.Transcript = appendMessage(s.Transcript, chat.Message{
				ID:        chat.PlaceholderID,
				Role:      chat.RoleAssistant,
				Content:   s.Reply,
				Timestamp: e.At,
			})
			s.Phase = PhaseStreaming
		case PhaseStreaming:
			s.Reply += e.Text
			p, _ := s.Placeholder()
			p.Content = s.Reply
			s.Transcript = replaceLast(s.Transcript, p)
		}
		return s

	case EndOfStream:
		final := chat.Message{
			ID:        e.ID,
			Role:      chat.RoleAssistant,
			Content:   s.Reply,
			Timestamp: e.At,
		}
		switch s.Phase {
		case PhaseSending:
			s.Transcript = appendMessage(s.Transcript, final)
		case PhaseStreaming:
			s.Transcript = replaceLast(s.Transcript, final)
		default:
			return s
		}
		s.Phase = PhaseSettled
		return s

	case Failure:
		if !s.Phase.InFlight() {
			return s
		}
		transcript := s.Transcript
		if _, ok := s.Placeholder(); ok {
			transcript = transcript[:len(transcript)-1]
		}
		s.Transcript = appendMessage(transcript, chat.Message{
			ID:        e.ID,
			Role:      chat.RoleAssistant,
			Content:   FallbackText,
			Timestamp: e.At,
		})
		s.Reply = ""
		s.Err = e.Err
		s.Phase = PhaseErrored
		return s

	case Reset:
		if s.Phase == PhaseSettled || s.Phase == PhaseErrored {
			s.Phase = PhaseIdle
		}
		return s
	}
	return s
}

func appendMessage(transcript []chat.Message, m chat.Message) []chat.Message {
	out := make([]chat.Message, len(transcript), len(transcript)+1)
	copy(out, transcript)
	return append(out, m)
}

func replaceLast(transcript []chat.Message, m chat.Message) []chat.Message {
	out := slices.Clone(transcript)
	out[len(out)-1] = m
	return out
}
