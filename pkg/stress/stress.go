// Package stress runs a synthetic CPU-bound workload and reports how much wall
// clock and process CPU time it consumed.
package stress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/rundemo/rundemo/pkg/failure"
	"github.com/rundemo/rundemo/pkg/models"
)

// DefaultIterations is used when a caller does not choose a count.
const DefaultIterations = 1_000_000

// CPUClock returns the cumulative user+system CPU time of the process.
type CPUClock func() (time.Duration, error)

// ProcessCPUTime reads the current process's CPU times.
func ProcessCPUTime() (time.Duration, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	t, err := p.Times()
	if err != nil {
		return 0, err
	}
	return time.Duration((t.User + t.System) * float64(time.Second)), nil
}

// Generator runs the workload. The zero value is not usable; use New.
type Generator struct {
	cpu CPUClock
}

// New returns a Generator measuring CPU time with clock. A nil clock selects
// ProcessCPUTime.
func New(clock CPUClock) *Generator {
	if clock == nil {
		clock = ProcessCPUTime
	}
	return &Generator{cpu: clock}
}

// Run executes exactly iterations steps of sqrt(i) * rand. Only the loop is
// timed. A negative count is treated as zero.
func (g *Generator) Run(iterations int) models.StressResult {
	if iterations < 0 {
		iterations = 0
	}

	cpuStart, cpuErr := g.cpu()
	start := time.Now()

	var sum float64
	for i := 0; i < iterations; i++ {
		sum += math.Sqrt(float64(i)) * rand.Float64()
	}

	elapsed := time.Since(start)
	res := models.StressResult{
		DurationMs: elapsed.Milliseconds(),
		Iterations: iterations,
		Result:     sum,
	}
	if cpuErr == nil {
		if cpuEnd, err := g.cpu(); err == nil && cpuEnd >= cpuStart {
			res.CPUTimeMs = float64(cpuEnd-cpuStart) / float64(time.Millisecond)
		}
	}
	return res
}

// ParseIterations validates a raw JSON iterations value. Absent or null
// selects def; anything that is not a positive integer no larger than limit is
// an invalid argument.
func ParseIterations(raw json.RawMessage, def, limit int) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return def, nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, failure.Wrap("iterations", failure.ErrInvalidArgument, fmt.Errorf("must be a number"))
	}
	if f != math.Trunc(f) || f <= 0 {
		return 0, failure.Wrap("iterations", failure.ErrInvalidArgument, fmt.Errorf("must be a positive integer"))
	}
	if limit > 0 && f > float64(limit) {
		return 0, failure.Wrap("iterations", failure.ErrInvalidArgument, fmt.Errorf("must not exceed %d", limit))
	}
	return int(f), nil
}
