package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/suPer8Hu/alira/internal/conversation"
)

func play(r *Renderer, events ...conversation.Event) {
	s := conversation.NewState("Welcome", time.Time{})
	s = conversation.Reduce(s, conversation.EditInput{Text: "Hello"})
	s = conversation.Reduce(s, conversation.Submit{ID: "1"})
	r.Update(s)
	for _, e := range events {
		s = conversation.Reduce(s, e)
		r.Update(s)
	}
}

func TestRendererPrintsDeltas(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	play(r,
		conversation.Fragment{Text: "Hi"},
		conversation.Fragment{Text: " there"},
		conversation.Fragment{Text: "!"},
		conversation.EndOfStream{ID: "2"},
		conversation.Reset{},
	)

	assert.Equal(t, "alira Hi there!\n", out.String())
}

func TestRendererEmptyReply(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	play(r, conversation.EndOfStream{ID: "2"})

	assert.Equal(t, "alira \n", out.String())
}

func TestRendererFailure(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	play(r,
		conversation.Fragment{Text: "Wor"},
		conversation.Failure{ID: "2", Err: errors.New("stream cut")},
	)

	assert.Equal(t, "alira Wor\nalira "+conversation.FallbackText+"\nstream cut\n", out.String())
}

func TestRendererGreet(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	r.Greet(conversation.NewState("Welcome", time.Time{}))

	assert.Equal(t, "alira Welcome\n", out.String())
}
