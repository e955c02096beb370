package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errDownstream = errors.New("downstream failed")

func fail() error    { return errDownstream }
func succeed() error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errDownstream) {
			t.Fatalf("call %d error = %v", i, err)
		}
	}
	if cb.State() != Open {
		t.Fatalf("state = %s after threshold failures, want open", cb.State())
	}
	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open circuit error = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(3, 1, time.Minute)

	cb.Execute(fail)
	cb.Execute(fail)
	cb.Execute(succeed)
	cb.Execute(fail)
	cb.Execute(fail)

	if cb.State() != Closed {
		t.Errorf("state = %s, want closed: failures were never consecutive", cb.State())
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New(1, 2, 10*time.Millisecond)

	cb.Execute(fail)
	if cb.State() != Open {
		t.Fatalf("state = %s, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// Two trial successes close the circuit again.
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("first trial error = %v", err)
	}
	if cb.State() != HalfOpen {
		t.Fatalf("state = %s after first trial, want half-open", cb.State())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("second trial error = %v", err)
	}
	if cb.State() != Closed {
		t.Errorf("state = %s after recovery, want closed", cb.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 1, 10*time.Millisecond)

	cb.Execute(fail)
	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(fail); !errors.Is(err, errDownstream) {
		t.Fatalf("trial error = %v", err)
	}
	if cb.State() != Open {
		t.Errorf("state = %s after failed trial, want open", cb.State())
	}
}
