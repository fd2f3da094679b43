package workflow

import (
	"context"
	"errors"
	"testing"
)

const (
	stateDraft    State = "draft"
	statePending  State = "pending"
	stateAccepted State = "accepted"
	stateRejected State = "rejected"
)

type ctxKey string

func testStates() StateSet {
	return NewStateSet(stateDraft, statePending, stateAccepted, stateRejected)
}

func TestStateSet_Contains(t *testing.T) {
	set := testStates()

	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"member", stateDraft, true},
		{"another member", stateRejected, true},
		{"unknown", State("archived"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Contains(tt.state); got != tt.expected {
				t.Errorf("Contains(%q) = %v, want %v", tt.state, got, tt.expected)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if got := stateAccepted.String(); got != "accepted" {
		t.Errorf("State.String() = %v, want %v", got, "accepted")
	}
	if got := TriggerBookSurvey.String(); got != "book_survey" {
		t.Errorf("Trigger.String() = %v, want %v", got, "book_survey")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder(testStates())

	config := builder.Configure(stateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(stateDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}

	if !builder.Valid(statePending) || builder.Valid(State("archived")) {
		t.Error("Valid() should follow the state set")
	}
}

func TestBuilder_PanicsOnUnknownStates(t *testing.T) {
	tests := []struct {
		name string
		fn   func(b StateMachineBuilder)
	}{
		{"configure", func(b StateMachineBuilder) { b.Configure(State("archived")) }},
		{"build", func(b StateMachineBuilder) { b.Build(State("archived")) }},
		{"permit target", func(b StateMachineBuilder) { b.Configure(stateDraft).Permit(TriggerSubmit, State("archived")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("%s should panic on unknown state", tt.name)
				}
			}()
			tt.fn(NewBuilder(testStates()))
		})
	}
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).Permit(TriggerSubmit, statePending)

	machine := builder.Build(stateDraft)

	if !machine.CanFire(TriggerSubmit) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if err := machine.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine.State() != statePending {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), statePending)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).
		PermitIf(TriggerSubmit, statePending, func(ctx context.Context) bool { return false })

	machine := builder.Build(stateDraft)

	err := machine.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != stateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", stateDraft, machine.State())
	}
}

func TestStateConfiguration_PermitIf_MultipleTransitions(t *testing.T) {
	key := ctxKey("fast_track")
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).
		PermitIf(TriggerSubmit, stateAccepted, func(ctx context.Context) bool {
			return ctx.Value(key) == true
		}).
		PermitIf(TriggerSubmit, statePending, func(ctx context.Context) bool {
			return ctx.Value(key) != true
		})

	fast := builder.Build(stateDraft)
	if err := fast.Fire(context.WithValue(context.Background(), key, true), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if fast.State() != stateAccepted {
		t.Errorf("State after Fire() = %v, want %v", fast.State(), stateAccepted)
	}

	slow := builder.Build(stateDraft)
	if err := slow.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if slow.State() != statePending {
		t.Errorf("State after Fire() = %v, want %v", slow.State(), statePending)
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).Permit(TriggerSubmit, statePending)

	machine := builder.Build(stateDraft)

	err := machine.Fire(context.Background(), TriggerAccept)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != stateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", stateDraft, machine.State())
	}
}

func TestStateMachine_TerminalState(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).Permit(TriggerReject, stateRejected)

	machine := builder.Build(stateRejected)

	if !machine.IsTerminal() {
		t.Error("IsTerminal() should be true for a state without transitions")
	}
	if len(machine.PermittedTriggers()) != 0 {
		t.Errorf("PermittedTriggers() = %v, want none", machine.PermittedTriggers())
	}
	if err := machine.Fire(context.Background(), TriggerSubmit); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_PermittedTriggersSorted(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(statePending).
		Permit(TriggerReject, stateRejected).
		Permit(TriggerAccept, stateAccepted)

	got := builder.Build(statePending).PermittedTriggers()
	want := []Trigger{TriggerAccept, TriggerReject}

	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := NewBuilder(testStates())
	builder.Configure(stateDraft).Permit(TriggerSubmit, statePending)

	machine1 := builder.Build(stateDraft)
	machine2 := builder.Build(stateDraft)

	// configuring after Build must not affect built machines
	builder.Configure(stateDraft).Permit(TriggerReject, stateRejected)

	if err := machine1.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine2.State() != stateDraft {
		t.Errorf("machine2 state = %v, want %v", machine2.State(), stateDraft)
	}
	if machine2.CanFire(TriggerReject) {
		t.Error("machine2 should not see transitions configured after Build")
	}
}
