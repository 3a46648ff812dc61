package orchestrator

import (
	"errors"
	"testing"

	"github.com/shaiso/Rowpipe/internal/domain"
)

func TestRowState_HappyPath(t *testing.T) {
	state := NewRowState(1)

	if state.Status() != domain.RowStatusPending {
		t.Errorf("expected PENDING, got %s", state.Status())
	}
	if state.Step() != -1 {
		t.Errorf("expected step -1 before start, got %d", state.Step())
	}

	if err := state.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := state.Advance(i); err != nil {
			t.Fatalf("Advance(%d): %v", i, err)
		}
	}
	if err := state.Succeed(); err != nil {
		t.Fatalf("Succeed: %v", err)
	}

	if state.Status() != domain.RowStatusSucceeded || !state.Status().IsTerminal() {
		t.Errorf("expected terminal SUCCEEDED, got %s", state.Status())
	}
}

func TestRowState_Fail(t *testing.T) {
	state := NewRowState(4)
	state.Start()
	state.Advance(0)

	if err := state.Fail("Create"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if state.Status() != domain.RowStatusFailed || state.FailedStep() != "Create" {
		t.Errorf("unexpected state: %s %q", state.Status(), state.FailedStep())
	}
}

func TestRowState_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *RowState) error
	}{
		{
			name: "succeed before start",
			run:  func(s *RowState) error { return s.Succeed() },
		},
		{
			name: "advance before start",
			run:  func(s *RowState) error { return s.Advance(0) },
		},
		{
			name: "start twice",
			run: func(s *RowState) error {
				s.Start()
				return s.Start()
			},
		},
		{
			name: "step goes backwards",
			run: func(s *RowState) error {
				s.Start()
				s.Advance(2)
				return s.Advance(1)
			},
		},
		{
			name: "fail after success",
			run: func(s *RowState) error {
				s.Start()
				s.Succeed()
				return s.Fail("x")
			},
		},
		{
			name: "advance after failure",
			run: func(s *RowState) error {
				s.Start()
				s.Fail("x")
				return s.Advance(1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(NewRowState(1))
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}
