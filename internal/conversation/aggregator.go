package conversation

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/suPer8Hu/alira/internal/chat"
	"go.uber.org/zap"
)

var (
	ErrEmptyInput   = errors.New("conversation: input is empty")
	ErrTurnInFlight = errors.New("conversation: a turn is already in flight")
)

type Option func(*Aggregator)

func WithIDGenerator(ids IDGenerator) Option {
	return func(a *Aggregator) { a.ids = ids }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

func WithGreeting(greeting string) Option {
	return func(a *Aggregator) { a.greeting = greeting }
}

// WithOnChange registers a callback that receives every new state. It runs
// on the goroutine that caused the change, outside the aggregator lock.
func WithOnChange(fn func(State)) Option {
	return func(a *Aggregator) { a.onChange = fn }
}

// Aggregator runs turns against a TurnSender and folds the streamed reply
// into the transcript. Only one turn runs at a time; a submission while a
// turn is in flight is rejected, not queued.
type Aggregator struct {
	sender   TurnSender
	ids      IDGenerator
	now      func() time.Time
	logger   *zap.Logger
	greeting string
	onChange func(State)

	mu    sync.Mutex
	state State
}

func New(sender TurnSender, opts ...Option) *Aggregator {
	a := &Aggregator{
		sender:   sender,
		ids:      NewULIDGenerator(),
		now:      time.Now,
		logger:   zap.NewNop(),
		greeting: DefaultGreeting,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.state = NewState(a.greeting, a.now())
	return a
}

// Snapshot returns the current state. Transcripts are never modified in
// place, so the result stays valid after further updates.
func (a *Aggregator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Aggregator) SetInput(text string) {
	a.dispatch(EditInput{Text: text})
}

// Send submits the current input and blocks until the turn settles or
// fails. A failed turn still leaves a finalized fallback message in the
// transcript; the error is returned for the caller's information.
func (a *Aggregator) Send(ctx context.Context) error {
	return a.send(ctx, nil)
}

// Submit sets the input to text and sends it.
func (a *Aggregator) Submit(ctx context.Context, text string) error {
	return a.send(ctx, &text)
}

func (a *Aggregator) send(ctx context.Context, text *string) error {
	a.mu.Lock()
	s := a.state
	if s.Phase.InFlight() {
		a.mu.Unlock()
		return ErrTurnInFlight
	}
	if text != nil {
		s = Reduce(s, EditInput{Text: *text})
	}
	if !s.CanSubmit() {
		a.mu.Unlock()
		return ErrEmptyInput
	}
	input := s.Input
	s = Reduce(s, Submit{ID: a.ids.NewID(), At: a.now()})
	a.state = s
	a.mu.Unlock()
	a.notify(s)

	return a.run(ctx, chat.TurnRequest{
		UserMessage:         input,
		ConversationHistory: s.Transcript,
	})
}

func (a *Aggregator) run(ctx context.Context, turn chat.TurnRequest) error {
	body, err := a.sender.SendTurn(ctx, turn)
	if err != nil {
		return a.fail(err)
	}
	defer body.Close()

	frags := NewFragmentReader(body)
	for {
		text, err := frags.Next()
		if errors.Is(err, io.EOF) {
			a.dispatch(EndOfStream{ID: a.ids.NewID(), At: a.now()})
			a.dispatch(Reset{})
			return nil
		}
		if err != nil {
			return a.fail(&TransportError{Err: err})
		}
		a.dispatch(Fragment{Text: text, At: a.now()})
	}
}

func (a *Aggregator) fail(err error) error {
	a.logger.Warn("turn failed", zap.Error(err))
	a.dispatch(Failure{ID: a.ids.NewID(), At: a.now(), Err: err})
	a.dispatch(Reset{})
	return err
}

func (a *Aggregator) dispatch(e Event) {
	a.mu.Lock()
	s := Reduce(a.state, e)
	a.state = s
	a.mu.Unlock()
	a.notify(s)
}

func (a *Aggregator) notify(s State) {
	if a.onChange != nil {
		a.onChange(s)
	}
}
