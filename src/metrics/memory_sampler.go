package metrics

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

type MemorySampler interface {
	ResidentBytes() (uint64, error)
}

// ProcessMemorySampler reports the resident set size of this process. When the
// platform gives gopsutil no process handle it falls back to the Go runtime's
// view of memory obtained from the OS.
type ProcessMemorySampler struct {
	proc *process.Process
}

func NewProcessMemorySampler() *ProcessMemorySampler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("Process stats unavailable, sampling runtime memory instead", "error", err)
		proc = nil
	}
	return &ProcessMemorySampler{proc: proc}
}

func (s *ProcessMemorySampler) ResidentBytes() (uint64, error) {
	if s.proc != nil {
		info, err := s.proc.MemoryInfo()
		if err == nil {
			return info.RSS, nil
		}
		slog.Debug("Failed to read process memory, using runtime stats", "error", err)
	}
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return memStats.Sys, nil
}
