package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveEnd(t *testing.T) {
	start := date(2025, time.March, 10)

	cases := []struct {
		name string
		unit string
		want time.Time
	}{
		{"day", Day, date(2025, time.March, 11)},
		{"week", Week, date(2025, time.March, 17)},
		{"month", Month, date(2025, time.April, 10)},
		{"year", Year, date(2026, time.March, 10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			end, err := ResolveEnd(start, tc.unit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, end)
		})
	}
}

func TestResolveEndClampsMonthEnd(t *testing.T) {
	// Jan 31 plus a month lands on the last day of February.
	end, err := ResolveEnd(date(2025, time.January, 31), Month)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.February, 28), end)

	end, err = ResolveEnd(date(2024, time.January, 31), Month)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), end)
}

func TestResolveEndInvalidUnit(t *testing.T) {
	_, err := ResolveEnd(date(2025, time.March, 10), "fortnight")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(Day))
	assert.True(t, IsValid(Year))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("decade"))
}
