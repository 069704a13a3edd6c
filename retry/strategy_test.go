package retry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStrategy(t *testing.T) {
	strategy := DefaultStrategy()

	assert.Equal(t, 6, strategy.MaxAttempts)
	assert.Equal(t, time.Second, strategy.BaseDelay)
	assert.Equal(t, time.Minute, strategy.MaxDelay)
	assert.Equal(t, 2.0, strategy.ExponentialBase)
}

func TestClaimStrategy(t *testing.T) {
	strategy := ClaimStrategy()

	assert.Equal(t, 5, strategy.MaxAttempts)
	assert.True(t, strategy.MaxDelay < time.Second, "claim backoff must stay well under a request timeout")
}

func TestStrategy_CalculateRetryDelay(t *testing.T) {
	strategy := DefaultStrategy()

	tests := []struct {
		name          string
		attemptNumber int
		expectedDelay time.Duration
	}{
		{name: "Negative attempt - base delay", attemptNumber: -1, expectedDelay: time.Second},
		{name: "Zero attempts - base delay", attemptNumber: 0, expectedDelay: time.Second},
		{name: "First attempt", attemptNumber: 1, expectedDelay: 2 * time.Second},
		{name: "Second attempt", attemptNumber: 2, expectedDelay: 4 * time.Second},
		{name: "Fifth attempt", attemptNumber: 5, expectedDelay: 32 * time.Second},
		{name: "Sixth attempt - capped", attemptNumber: 6, expectedDelay: time.Minute},
		{name: "Far beyond - capped", attemptNumber: 50, expectedDelay: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedDelay, strategy.CalculateRetryDelay(tt.attemptNumber))
		})
	}
}

func TestStrategy_IsRetryable(t *testing.T) {
	strategy := DefaultStrategy()

	tests := []struct {
		name         string
		attemptCount int
		expected     bool
	}{
		{name: "No attempts", attemptCount: 0, expected: true},
		{name: "Few attempts", attemptCount: 3, expected: true},
		{name: "At max attempts", attemptCount: 6, expected: false},
		{name: "Beyond max attempts", attemptCount: 15, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, strategy.IsRetryable(tt.attemptCount))
		})
	}
}

func TestStrategy_Wait(t *testing.T) {
	t.Run("Returns after the delay", func(t *testing.T) {
		strategy := Strategy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, ExponentialBase: 2.0}

		start := time.Now()
		err := strategy.Wait(context.Background(), 1)

		assert.NoError(t, err)
		assert.True(t, time.Since(start) >= 2*time.Millisecond)
	})

	t.Run("Interrupted by context", func(t *testing.T) {
		strategy := Strategy{MaxAttempts: 1, BaseDelay: time.Hour, MaxDelay: time.Hour, ExponentialBase: 2.0}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := strategy.Wait(ctx, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Zero delay returns immediately", func(t *testing.T) {
		strategy := Strategy{MaxAttempts: 1}

		assert.NoError(t, strategy.Wait(context.Background(), 3))
	})
}

func TestStrategy_GetRetrySchedule(t *testing.T) {
	strategy := Strategy{
		MaxAttempts:     4,
		BaseDelay:       10 * time.Second,
		MaxDelay:        time.Minute,
		ExponentialBase: 2.0,
	}

	schedule := strategy.GetRetrySchedule()

	assert.Contains(t, schedule, "Retry Schedule:")
	assert.Contains(t, schedule, "Attempt 1: after 20s")
	assert.Contains(t, schedule, "Attempt 2: after 40s")
	assert.Contains(t, schedule, "Attempt 3: after 1m0s")
	assert.Contains(t, schedule, "Attempt 4: after 1m0s")
	assert.Contains(t, schedule, "→ Give up")

	lines := strings.Split(strings.TrimSpace(schedule), "\n")
	assert.Len(t, lines, 6)
}

func TestStrategy_BoundaryValues(t *testing.T) {
	t.Run("Zero base delay", func(t *testing.T) {
		strategy := Strategy{BaseDelay: 0, ExponentialBase: 2.0, MaxDelay: time.Minute}

		assert.Equal(t, time.Duration(0), strategy.CalculateRetryDelay(5))
	})

	t.Run("Exponential base of 1", func(t *testing.T) {
		strategy := Strategy{BaseDelay: 30 * time.Second, ExponentialBase: 1.0, MaxDelay: time.Minute}

		assert.Equal(t, strategy.CalculateRetryDelay(1), strategy.CalculateRetryDelay(5))
	})

	t.Run("Max delay equals base delay", func(t *testing.T) {
		strategy := Strategy{BaseDelay: 30 * time.Second, ExponentialBase: 2.0, MaxDelay: 30 * time.Second}

		assert.Equal(t, 30*time.Second, strategy.CalculateRetryDelay(1))
	})
}

func BenchmarkCalculateRetryDelay(b *testing.B) {
	strategy := DefaultStrategy()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = strategy.CalculateRetryDelay(i % 10)
	}
}
