package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStrategy(t *testing.T) {
	strategy := DefaultStrategy()

	assert.Equal(t, 5, strategy.MaxAttempts)
	assert.Equal(t, 1*time.Second, strategy.BaseDelay)
	assert.Equal(t, 30*time.Second, strategy.MaxDelay)
}

func TestStrategy_Delay(t *testing.T) {
	strategy := DefaultStrategy()

	tests := []struct {
		name          string
		attempt       int
		expectedDelay time.Duration
	}{
		{
			name:          "Zero attempt falls back to base delay",
			attempt:       0,
			expectedDelay: 1 * time.Second,
		},
		{
			name:          "First attempt",
			attempt:       1,
			expectedDelay: 1 * time.Second,
		},
		{
			name:          "Second attempt doubles",
			attempt:       2,
			expectedDelay: 2 * time.Second,
		},
		{
			name:          "Third attempt",
			attempt:       3,
			expectedDelay: 3 * time.Second,
		},
		{
			name:          "Large attempt capped at max delay",
			attempt:       100,
			expectedDelay: 30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedDelay, strategy.Delay(tt.attempt))
		})
	}
}

func TestStrategy_Delay_Uncapped(t *testing.T) {
	strategy := Strategy{
		MaxAttempts: 10,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    0, // no cap
	}

	assert.Equal(t, 500*time.Millisecond, strategy.Delay(1))
	assert.Equal(t, 5*time.Second, strategy.Delay(10))
	assert.Equal(t, 50*time.Second, strategy.Delay(100))
}

func TestStrategy_Delay_GrowsLinearly(t *testing.T) {
	strategy := Strategy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
	}

	// Successive uncapped delays differ by exactly one base step.
	for attempt := 2; attempt <= 5; attempt++ {
		diff := strategy.Delay(attempt) - strategy.Delay(attempt-1)
		assert.Equal(t, strategy.BaseDelay, diff, "attempt %d", attempt)
	}
}

func TestStrategy_IsRetryable(t *testing.T) {
	strategy := DefaultStrategy()

	tests := []struct {
		name         string
		attemptCount int
		expected     bool
	}{
		{
			name:         "No attempts",
			attemptCount: 0,
			expected:     true,
		},
		{
			name:         "Below max",
			attemptCount: 4,
			expected:     true,
		},
		{
			name:         "At max attempts",
			attemptCount: 5,
			expected:     false,
		},
		{
			name:         "Beyond max attempts",
			attemptCount: 8,
			expected:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, strategy.IsRetryable(tt.attemptCount))
		})
	}
}

func TestStrategy_Schedule(t *testing.T) {
	strategy := Strategy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    time.Minute,
	}

	schedule := strategy.Schedule()

	assert.Contains(t, schedule, "Retry Schedule:")
	assert.Contains(t, schedule, "Attempt 1, then wait 2s")
	assert.Contains(t, schedule, "Attempt 2, then wait 4s")
	assert.Contains(t, schedule, "Attempt 3: give up")
}

func BenchmarkDelay(b *testing.B) {
	strategy := DefaultStrategy()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = strategy.Delay(i % 10)
	}
}
