package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDoReturnsNilOnSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected success on second attempt, got %d calls", calls)
	}
}

func TestDoAbortSkipsRemainingAttempts(t *testing.T) {
	quota := errors.New("quota exceeded")
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 5, Delay: time.Millisecond}, func() error {
		calls++
		return Abort(quota)
	})
	if !errors.Is(err, quota) {
		t.Fatalf("expected quota error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("abort must stop after first attempt, got %d calls", calls)
	}
}
