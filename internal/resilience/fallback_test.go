package resilience

import (
	"errors"
	"testing"
	"time"
)

func newJudgeGroup(maxFailures int) *FallbackGroup[string] {
	fg := NewFallbackGroup("gpt-4o", "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  maxFailures,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("anthropic", "claude-sonnet")
	return fg
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := newJudgeGroup(3)

	var called string
	err := fg.Execute(func(model string) error {
		called = model
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "gpt-4o" {
		t.Fatalf("called = %q, want the primary judge model", called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := newJudgeGroup(3)

	var called string
	err := fg.Execute(func(model string) error {
		if model == "gpt-4o" {
			return errTest
		}
		called = model
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "claude-sonnet" {
		t.Fatalf("called = %q, want the fallback judge model", called)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := newJudgeGroup(3)

	err := fg.Execute(func(string) error {
		return errTest
	})
	if err == nil {
		t.Fatal("expected error when every judge model fails")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_CircuitBreakerSkipsOpenProvider(t *testing.T) {
	fg := newJudgeGroup(2)

	// Fail the primary enough to open its breaker.
	for i := 0; i < 2; i++ {
		_ = fg.Execute(func(model string) error {
			if model == "gpt-4o" {
				return errTest
			}
			return nil
		})
	}

	// The primary's breaker is open now; calls should go straight to the
	// fallback model.
	var called string
	err := fg.Execute(func(model string) error {
		called = model
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "claude-sonnet" {
		t.Fatalf("called = %q, want the fallback (primary circuit should be open)", called)
	}
}

func TestExecuteWithResult_Success(t *testing.T) {
	fg := newJudgeGroup(3)

	result, err := ExecuteWithResult(fg, func(model string) (string, error) {
		return "scored by " + model, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "scored by gpt-4o" {
		t.Fatalf("result = %q, want the primary's answer", result)
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	fg := newJudgeGroup(3)

	result, err := ExecuteWithResult(fg, func(model string) (string, error) {
		if model == "gpt-4o" {
			return "", errTest
		}
		return "scored by " + model, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "scored by claude-sonnet" {
		t.Fatalf("result = %q, want the fallback's answer", result)
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	fg := NewFallbackGroup("gpt-4o", "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(fg, func(string) (string, error) {
		return "", errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
