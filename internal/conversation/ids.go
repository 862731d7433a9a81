package conversation

import (
	"crypto/rand"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator hands out message ids that are unique for the lifetime of a
// conversation. Implementations must never return chat.PlaceholderID or
// chat.GreetingID.
type IDGenerator interface {
	NewID() string
}

// ULIDGenerator produces monotonic ULIDs.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// Sequence is a counter starting at 1; 0 belongs to the greeting.
type Sequence struct {
	mu   sync.Mutex
	next uint64
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return strconv.FormatUint(s.next, 10)
}
