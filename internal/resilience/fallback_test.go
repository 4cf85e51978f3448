package resilience

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestChainPrimarySuccess(t *testing.T) {
	c := NewChain("primary", "primary", BreakerConfig{MaxFailures: 3}).
		AddFallback("secondary", "secondary")

	var called string
	err := c.Execute(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "primary" {
		t.Fatalf("called = %q, want primary", called)
	}
}

func TestChainFailover(t *testing.T) {
	c := NewChain("primary", "primary", BreakerConfig{MaxFailures: 3}).
		AddFallback("secondary", "secondary")

	var called string
	err := c.Execute(func(v string) error {
		if v == "primary" {
			return errTest
		}
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary", called)
	}
}

func TestChainAllFail(t *testing.T) {
	c := NewChain("primary", "primary", BreakerConfig{MaxFailures: 3}).
		AddFallback("secondary", "secondary")

	err := c.Execute(func(string) error { return errTest })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestChainSkipsOpenBreaker(t *testing.T) {
	c := NewChain("primary", "primary", BreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	}).AddFallback("secondary", "secondary")

	// Trip the primary's breaker.
	for i := 0; i < 2; i++ {
		_ = c.Execute(func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var called string
	err := c.Execute(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary with primary circuit open", called)
	}
}

func TestChainNames(t *testing.T) {
	c := NewChain("a", 1, BreakerConfig{}).
		AddFallback("b", 2).
		AddFallback("c", 3)
	if got, want := c.Names(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestExecuteReturnsResult(t *testing.T) {
	c := NewChain("ten", 10, BreakerConfig{MaxFailures: 3}).
		AddFallback("twenty", 20)

	result, err := Execute(c, func(v int) (string, error) {
		if v == 10 {
			return "from-ten", nil
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-ten" {
		t.Fatalf("result = %q, want from-ten", result)
	}
}

func TestExecuteFailsOver(t *testing.T) {
	c := NewChain("ten", 10, BreakerConfig{MaxFailures: 3}).
		AddFallback("twenty", 20)

	result, err := Execute(c, func(v int) (string, error) {
		if v == 10 {
			return "", errTest
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-twenty" {
		t.Fatalf("result = %q, want from-twenty", result)
	}
}

func TestExecuteAllFail(t *testing.T) {
	c := NewChain("ten", 10, BreakerConfig{MaxFailures: 3})
	_, err := Execute(c, func(int) (string, error) { return "", errTest })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
