package clinic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*time.Hour+30*time.Minute), tod)
	assert.Equal(t, "09:30", tod.String())

	tod, err = ParseTimeOfDay("17:45:10")
	require.NoError(t, err)
	assert.Equal(t, "17:45:10", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("noon")
	assert.Error(t, err)
}

func TestTimeOfDayOfUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC) // 09:30 in IST

	assert.Equal(t, "04:00", TimeOfDayOf(ts).String())
	assert.Equal(t, "09:30", TimeOfDayOf(ts.In(kolkata)).String())
}

func TestTimeOfDayOn(t *testing.T) {
	day := time.Date(2024, 6, 3, 15, 4, 5, 0, time.UTC)
	tod, _ := ParseTimeOfDay("09:00")
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), tod.On(day))
}

func TestConsultingHoursContainsIsInclusive(t *testing.T) {
	start, _ := ParseTimeOfDay("09:00")
	end, _ := ParseTimeOfDay("12:00")
	h := ConsultingHours{StartTime: start, EndTime: end, MaxPatients: 2}

	for _, tc := range []struct {
		at   string
		want bool
	}{
		{"08:59:59", false},
		{"09:00", true},
		{"10:30", true},
		{"12:00", true},
		{"12:00:01", false},
		{"13:00", false},
	} {
		tod, err := ParseTimeOfDay(tc.at)
		require.NoError(t, err)
		assert.Equal(t, tc.want, h.Contains(tod), tc.at)
	}
	assert.Equal(t, "09:00-12:00", h.Bounds())
}
