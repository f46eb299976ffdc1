package stress

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rundemo/rundemo/pkg/failure"
)

func TestRunZero(t *testing.T) {
	res := New(nil).Run(0)
	assert.Equal(t, 0, res.Iterations)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
	assert.Zero(t, res.Result)
}

func TestRunCountsIterations(t *testing.T) {
	res := New(nil).Run(10_000)
	assert.Equal(t, 10_000, res.Iterations)
	assert.Greater(t, res.Result, 0.0)
	assert.GreaterOrEqual(t, res.CPUTimeMs, 0.0)
}

func TestRunNegativeIsZero(t *testing.T) {
	assert.Equal(t, 0, New(nil).Run(-5).Iterations)
}

func TestRunUsesCPUClock(t *testing.T) {
	readings := []time.Duration{100 * time.Millisecond, 350 * time.Millisecond}
	i := 0
	clock := func() (time.Duration, error) {
		d := readings[i]
		i++
		return d, nil
	}

	res := New(clock).Run(10)
	assert.InDelta(t, 250.0, res.CPUTimeMs, 1e-9)
	assert.Equal(t, 2, i, "clock is read once before and once after the loop")
}

func TestRunCPUClockFailure(t *testing.T) {
	clock := func() (time.Duration, error) { return 0, errors.New("no procfs") }
	res := New(clock).Run(10)
	assert.Equal(t, 10, res.Iterations)
	assert.Zero(t, res.CPUTimeMs)
}

func TestRunDurationGrows(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	g := New(nil)
	var small, large int64
	for range 3 {
		small += g.Run(1_000).DurationMs
		large += g.Run(20_000_000).DurationMs
	}
	assert.GreaterOrEqual(t, large, small)
}

func TestParseIterations(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 1_000_000, false},
		{"null", 1_000_000, false},
		{"5000", 5000, false},
		{"1e3", 1000, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"1.5", 0, true},
		{`"100"`, 0, true},
		{"true", 0, true},
		{"2000000001", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseIterations(json.RawMessage(tt.raw), DefaultIterations, 2_000_000_000)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, failure.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
