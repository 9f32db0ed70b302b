package confirm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	for reply, expected := range map[string]State{
		"yes":           Accepted,
		"  Sure thing ": Accepted,
		"execute":       Accepted,
		"no":            Declined,
		"CANCEL":        Declined,
		"reject it":     Declined,
		"maybe later":   Prompted,
		"":              Prompted,
	} {
		require.Equal(t, expected, Classify(reply), reply)
	}
}

func TestMachine_OnePromptPerAuthor(t *testing.T) {
	m := New()

	p, err := m.Begin(1)
	require.NoError(t, err)
	require.True(t, m.Locked(1))

	_, err = m.Begin(1)
	require.ErrorIs(t, err, core.ErrAlreadyPending)

	_, err = m.Begin(2)
	require.NoError(t, err)

	p.Release()
	p.Release()
	require.False(t, m.Locked(1))
}

func TestMachine_Accept(t *testing.T) {
	m := New(WithTimeout(time.Second))
	p, err := m.Begin(5)
	require.NoError(t, err)

	require.False(t, m.Offer(6, "yes"), "other authors are not consumed")
	require.True(t, m.Offer(5, "what?"), "locked author messages are consumed")
	require.True(t, m.Offer(5, "yes please"))

	state, err := p.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Accepted, state)
	require.False(t, m.Locked(5))
}

func TestMachine_Decline(t *testing.T) {
	m := New(WithTimeout(time.Second))
	p, err := m.Begin(5)
	require.NoError(t, err)
	m.Offer(5, "no")

	state, err := p.Wait(context.Background())
	require.ErrorIs(t, err, core.ErrConfirmationDeclined)
	require.Equal(t, Declined, state)
}

func TestMachine_TimeoutReleasesLock(t *testing.T) {
	var observed atomic.Int32
	m := New(WithTimeout(20*time.Millisecond), WithObserver(func(s State) {
		if s == TimedOut {
			observed.Add(1)
		}
	}))

	p, err := m.Begin(9)
	require.NoError(t, err)

	state, err := p.Wait(context.Background())
	require.ErrorIs(t, err, core.ErrConfirmationTimedOut)
	require.Equal(t, TimedOut, state)
	require.False(t, m.Locked(9))
	require.EqualValues(t, 1, observed.Load())

	_, err = m.Begin(9)
	require.NoError(t, err, "a new prompt can be created after a timeout")
}

func TestMachine_AskReleasesOnSendFailure(t *testing.T) {
	m := New(WithTimeout(time.Second))
	sendErr := errors.New("transport down")

	state, err := m.Ask(context.Background(), 3, func(context.Context) error { return sendErr }, nil)
	require.ErrorIs(t, err, sendErr)
	require.Equal(t, Idle, state)
	require.False(t, m.Locked(3))
}

func TestMachine_AskCancelNotice(t *testing.T) {
	m := New(WithTimeout(time.Second))
	var canceled State

	go func() {
		for !m.Locked(4) {
			time.Sleep(time.Millisecond)
		}
		m.Offer(4, "discard")
	}()

	state, err := m.Ask(context.Background(), 4,
		func(context.Context) error { return nil },
		func(_ context.Context, s State) { canceled = s })

	require.ErrorIs(t, err, core.ErrConfirmationDeclined)
	require.Equal(t, Declined, state)
	require.Equal(t, Declined, canceled)
	require.False(t, m.Locked(4))
}

func TestMachine_ContextCancel(t *testing.T) {
	m := New()
	p, err := m.Begin(11)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, m.Locked(11))
}
