package chat

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

const (
	// PlaceholderID marks the assistant message that is still receiving
	// fragments. Finalized messages never carry it.
	PlaceholderID = "streaming"
	// GreetingID is the id of the synthetic greeting every conversation starts with.
	GreetingID = "0"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (m Message) IsPlaceholder() bool { return m.ID == PlaceholderID }

// TurnRequest is the body of one turn sent to the relay.
type TurnRequest struct {
	UserMessage         string    `json:"userMessage"`
	ConversationHistory []Message `json:"conversationHistory"`
}

func (r TurnRequest) Validate() error {
	for i, m := range r.ConversationHistory {
		if !m.Role.Valid() {
			return fmt.Errorf("conversationHistory[%d]: invalid role %q", i, m.Role)
		}
	}
	return nil
}
