package status

import (
	"errors"
	"testing"

	"github.com/matheus3301/wppchat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(LinkPush, nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Connecting, Connected},
		{Connecting, Error},
		{Connected, Disconnected},
		{Connected, Error},
		{Error, Connecting},
		{Error, Connected},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(LinkPush, nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransitionLeavesState(t *testing.T) {
	m := NewMachine(LinkPush, nil)
	walkTo(t, m, Connected)
	if err := m.Transition(Connecting); err == nil {
		t.Error("Transition(CONNECTED -> CONNECTING) should fail")
	}
	if m.Current() != Connected {
		t.Errorf("state = %s, want CONNECTED", m.Current())
	}
}

func TestSameStateIsNoop(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(KindChanged, 10)
	defer unsub()

	m := NewMachine(LinkAPI, b)
	if err := m.Transition(Disconnected); err != nil {
		t.Fatal(err)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %v", evt)
	default:
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("link.", 10)
	defer unsub()

	m := NewMachine(LinkPush, b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != KindChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, KindChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.Link != LinkPush || change.From != Disconnected || change.To != Connecting {
		t.Errorf("change = %+v", change)
	}
}

func TestFailRecordsCause(t *testing.T) {
	m := NewMachine(LinkPush, nil)
	walkTo(t, m, Connected)

	cause := errors.New("stream reset")
	if err := m.Fail(cause); err != nil {
		t.Fatal(err)
	}
	if m.Current() != Error || !errors.Is(m.Err(), cause) {
		t.Errorf("state = %s err = %v", m.Current(), m.Err())
	}

	_ = m.Transition(Connecting)
	if m.Err() != nil {
		t.Errorf("err should clear after leaving ERROR, got %v", m.Err())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected: {},
		Connecting:   {Connecting},
		Connected:    {Connecting, Connected},
		Error:        {Connecting, Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
