package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:    maxRetries,
		BackoffFactor: 2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		Jitter:        time.Millisecond,
	}
}

func TestRetry_SuccessOnFirstTry(t *testing.T) {
	counter := 0
	err := NewRetrier(fastConfig(3)).Do(context.Background(), func() error {
		counter++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	counter := 0
	err := NewRetrier(fastConfig(3)).Do(context.Background(), func() error {
		counter++
		if counter < 2 {
			return errors.New("temporary error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 2 {
		t.Errorf("expected 2 attempts, got %d", counter)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	expectedErr := errors.New("permanent error")
	counter := 0
	err := NewRetrier(fastConfig(2)).Do(context.Background(), func() error {
		counter++
		return expectedErr
	})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if counter != 3 { // Initial try + 2 retries
		t.Errorf("expected 3 attempts, got %d", counter)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewDefaultRetrier()

	err := retrier.Do(ctx, func() error {
		cancel()
		return errors.New("operation error after cancel")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("bad request")
	counter := 0
	err := NewRetrier(fastConfig(5)).Do(context.Background(), func() error {
		counter++
		return Permanent(cause)
	})
	if err != cause {
		t.Errorf("expected unwrapped cause, got %v", err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_RetryablePredicate(t *testing.T) {
	transient := errors.New("503")
	fatal := errors.New("401")

	cfg := fastConfig(5)
	cfg.Retryable = func(err error) bool { return errors.Is(err, transient) }

	counter := 0
	err := NewRetrier(cfg).Do(context.Background(), func() error {
		counter++
		if counter < 3 {
			return transient
		}
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if counter != 3 {
		t.Errorf("expected 3 attempts, got %d", counter)
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
