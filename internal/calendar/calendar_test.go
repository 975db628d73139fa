package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeliveryDateFor(t *testing.T) {
	rule := NewRule(10)

	// 2026-08-24 is a Monday.
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "monday before cutoff is same day",
			now:  time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC),
			want: date(2026, time.August, 24),
		},
		{
			name: "monday after cutoff is next day",
			now:  time.Date(2026, time.August, 24, 11, 0, 0, 0, time.UTC),
			want: date(2026, time.August, 25),
		},
		{
			name: "exactly at cutoff counts as after",
			now:  time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC),
			want: date(2026, time.August, 25),
		},
		{
			name: "friday after cutoff skips the weekend",
			now:  time.Date(2026, time.August, 28, 14, 30, 0, 0, time.UTC),
			want: date(2026, time.August, 31),
		},
		{
			name: "saturday before cutoff is same day",
			now:  time.Date(2026, time.August, 29, 8, 0, 0, 0, time.UTC),
			want: date(2026, time.August, 29),
		},
		{
			name: "saturday after cutoff lands on monday",
			now:  time.Date(2026, time.August, 29, 11, 0, 0, 0, time.UTC),
			want: date(2026, time.August, 31),
		},
		{
			name: "sunday morning rolls to monday",
			now:  time.Date(2026, time.August, 30, 7, 0, 0, 0, time.UTC),
			want: date(2026, time.August, 31),
		},
		{
			name: "sunday evening rolls to monday",
			now:  time.Date(2026, time.August, 30, 22, 0, 0, 0, time.UTC),
			want: date(2026, time.August, 31),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := rule.DeliveryDateFor(tc.now)
			require.Equal(t, tc.want, got)
			require.Equal(t, 0, got.Hour(), "delivery date must have no time component")
		})
	}
}

func TestNewRuleDefaultsCutoff(t *testing.T) {
	rule := NewRule(0)
	require.Equal(t, DefaultCutoffHour, rule.CutoffHour)
}
