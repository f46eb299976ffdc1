// Package hostinfo reports deployment identifiers and host metadata.
package hostinfo

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/rundemo/rundemo/pkg/config"
	"github.com/rundemo/rundemo/pkg/models"
)

const gib = 1024 * 1024 * 1024

// MemoryFunc returns total and available memory in bytes.
type MemoryFunc func() (total, free uint64, err error)

// Reporter assembles InfoSnapshots. It never fails; fields it cannot read
// are left at their defaults.
type Reporter struct {
	deployment config.DeploymentConfig
	project    string
	hostname   func() (string, error)
	memory     MemoryFunc
	now        func() time.Time
}

// New creates a Reporter for the given deployment.
func New(deployment config.DeploymentConfig, project string) *Reporter {
	return &Reporter{
		deployment: deployment,
		project:    project,
		hostname:   os.Hostname,
		memory:     virtualMemory,
		now:        time.Now,
	}
}

func virtualMemory() (uint64, uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return vm.Total, vm.Available, nil
}

// Snapshot reads the current state.
func (r *Reporter) Snapshot() models.InfoSnapshot {
	s := models.InfoSnapshot{
		Service:       orLocal(r.deployment.Service),
		Revision:      orLocal(r.deployment.Revision),
		Configuration: orLocal(r.deployment.Configuration),
		Region:        r.deployment.Region,
		ProjectID:     r.project,
		Memory:        r.deployment.Memory,
		CPU:           r.deployment.CPU,
		Timestamp:     r.now().UTC().Format(time.RFC3339Nano),
		Platform:      runtime.GOOS,
		CPUs:          runtime.NumCPU(),
		TotalMemory:   formatGB(0),
		FreeMemory:    formatGB(0),
	}
	if h, err := r.hostname(); err == nil {
		s.Hostname = h
	}
	if total, free, err := r.memory(); err == nil {
		s.TotalMemory = formatGB(total)
		s.FreeMemory = formatGB(free)
	}
	return s
}

func orLocal(v string) string {
	if v == "" {
		return "local"
	}
	return v
}

func formatGB(b uint64) string {
	return fmt.Sprintf("%.2f GB", float64(b)/gib)
}
