package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		index int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, MaxBackoff},
		{34, MaxBackoff},
		{40, MaxBackoff},
		{63, MaxBackoff},
		{1 << 20, MaxBackoff},
	}

	for _, tt := range tests {
		if got := backoff(time.Second, tt.index); got != tt.want {
			t.Errorf("backoff(1s, %d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestBackoff_NeverNegative(t *testing.T) {
	for _, base := range []time.Duration{time.Nanosecond, time.Millisecond, time.Hour, time.Duration(1<<62 - 1)} {
		for i := 0; i < 128; i++ {
			got := backoff(base, i)
			if got <= 0 || got > MaxBackoff {
				t.Fatalf("backoff(%v, %d) = %v, want within (0, %v]", base, i, got, MaxBackoff)
			}
		}
	}
}

func TestRetryWithBackoff(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")

	tests := []struct {
		name         string
		retries      int
		failures     []error
		wantAttempts int
		wantErr      error
		wantDelays   int
	}{
		{
			name:         "first attempt succeeds",
			retries:      3,
			wantAttempts: 1,
		},
		{
			name:         "succeeds on last attempt",
			retries:      2,
			failures:     []error{errTransient, errTransient},
			wantAttempts: 3,
			wantDelays:   2,
		},
		{
			name:         "exhausts retries",
			retries:      2,
			failures:     []error{errTransient, errTransient, errTransient, errTransient},
			wantAttempts: 3,
			wantErr:      errTransient,
			wantDelays:   2,
		},
		{
			name:         "stops on non-retryable error",
			retries:      5,
			failures:     []error{errTransient, errFatal},
			wantAttempts: 2,
			wantErr:      errFatal,
			wantDelays:   1,
		},
		{
			name:         "negative retries means one attempt",
			retries:      -4,
			failures:     []error{errTransient},
			wantAttempts: 1,
			wantErr:      errTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sleepRecorder{}
			attempts := 0

			got, err := retryWithBackoff(context.Background(), tt.retries, time.Second, rec.sleep,
				func(attempt int) (int, error) {
					if attempt != attempts {
						t.Errorf("attempt index = %d, want %d", attempt, attempts)
					}
					attempts++
					if attempt < len(tt.failures) {
						return 0, tt.failures[attempt]
					}
					return 42, nil
				},
				func(err error) bool { return errors.Is(err, errTransient) },
			)

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != 42 {
				t.Errorf("result = %d, want 42", got)
			}
			if len(rec.delays) != tt.wantDelays {
				t.Errorf("delays = %v, want %d entries", rec.delays, tt.wantDelays)
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	_, err := retryWithBackoff(ctx, 3, time.Hour, sleepContext,
		func(int) (struct{}, error) {
			attempts++
			cancel()
			return struct{}{}, errors.New("down")
		},
		func(error) bool { return true },
	)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext(cancelled) = %v, want context.Canceled", err)
	}
}
