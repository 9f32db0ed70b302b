// Package confirm implements the yes/no confirmation prompts. At most one
// prompt may be pending per author.
package confirm

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/raykavin/alphabot/pkg/core"
)

const DefaultTimeout = 60 * time.Second

type State int

const (
	Idle State = iota
	Prompted
	Accepted
	Declined
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Prompted:
		return "prompted"
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	case TimedOut:
		return "timed_out"
	}
	return "unknown"
}

var (
	affirmative = []string{"y", "yes", "sure", "confirm", "execute"}
	negative    = []string{"n", "no", "cancel", "discard", "reject"}
)

// Classify maps a reply to Accepted, Declined or Prompted when it does not
// answer the prompt.
func Classify(reply string) State {
	reply = strings.Join(strings.Fields(strings.ToLower(reply)), " ")
	for _, prefix := range affirmative {
		if strings.HasPrefix(reply, prefix) {
			return Accepted
		}
	}
	for _, prefix := range negative {
		if strings.HasPrefix(reply, prefix) {
			return Declined
		}
	}
	return Prompted
}

// Machine holds the pending prompts keyed by author.
type Machine struct {
	mu       sync.Mutex
	pending  map[int64]*Prompt
	timeout  time.Duration
	observer func(State)
}

type Option func(*Machine)

func WithTimeout(timeout time.Duration) Option {
	return func(m *Machine) {
		m.timeout = timeout
	}
}

// WithObserver registers a callback invoked once per terminal state.
func WithObserver(observer func(State)) Option {
	return func(m *Machine) {
		m.observer = observer
	}
}

func New(options ...Option) *Machine {
	m := &Machine{
		pending: make(map[int64]*Prompt),
		timeout: DefaultTimeout,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Prompt is a single-shot future resolved by a reply, a timeout or a cancelled
// context.
type Prompt struct {
	author   int64
	machine  *Machine
	deadline time.Time
	replies  chan State
	once     sync.Once
}

// Begin places the lock for author.
func (m *Machine) Begin(author int64) (*Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending[author]; ok {
		return nil, core.ErrAlreadyPending
	}

	p := &Prompt{
		author:   author,
		machine:  m,
		deadline: time.Now().Add(m.timeout),
		replies:  make(chan State, 1),
	}
	m.pending[author] = p
	return p, nil
}

// Locked reports whether author has a pending prompt.
func (m *Machine) Locked(author int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[author]
	return ok
}

// Offer hands a message of author to its pending prompt. It returns true when
// the author is locked, in which case the message must not be processed as a
// command.
func (m *Machine) Offer(author int64, text string) bool {
	m.mu.Lock()
	p, ok := m.pending[author]
	m.mu.Unlock()
	if !ok {
		return false
	}

	if state := Classify(text); state != Prompted {
		select {
		case p.replies <- state:
		default:
		}
	}
	return true
}

// Deadline is the instant the prompt times out.
func (p *Prompt) Deadline() time.Time {
	return p.deadline
}

// Wait blocks until the prompt resolves. The lock is released before Wait
// returns, whatever the outcome.
func (p *Prompt) Wait(ctx context.Context) (State, error) {
	defer p.Release()

	timer := time.NewTimer(time.Until(p.deadline))
	defer timer.Stop()

	var state State
	select {
	case state = <-p.replies:
	case <-timer.C:
		state = TimedOut
	case <-ctx.Done():
		p.machine.notify(TimedOut)
		return TimedOut, ctx.Err()
	}

	p.machine.notify(state)
	switch state {
	case Declined:
		return state, core.ErrConfirmationDeclined
	case TimedOut:
		return state, core.ErrConfirmationTimedOut
	}
	return state, nil
}

// Release drops the lock. It is safe to call more than once.
func (p *Prompt) Release() {
	p.once.Do(func() {
		m := p.machine
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.pending[p.author] == p {
			delete(m.pending, p.author)
		}
	})
}

func (m *Machine) notify(state State) {
	if m.observer != nil {
		m.observer(state)
	}
}

// Ask runs a whole confirmation: lock, send the prompt, wait for the reply and
// run cancel on any outcome other than Accepted. A failing send still releases
// the lock. cancel is best effort and its failure is ignored.
func (m *Machine) Ask(ctx context.Context, author int64, send func(context.Context) error,
	cancel func(context.Context, State)) (State, error) {

	p, err := m.Begin(author)
	if err != nil {
		return Idle, err
	}
	defer p.Release()

	if err := send(ctx); err != nil {
		return Idle, err
	}

	state, err := p.Wait(ctx)
	if state != Accepted && cancel != nil {
		cancel(context.WithoutCancel(ctx), state)
	}
	return state, err
}
