package web

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is the host load shown next to the frame rate.
type SystemStats struct {
	CPUPercent float64   `json:"cpu_percent"`
	MemPercent float64   `json:"mem_percent"`
	MemUsedMB  uint64    `json:"mem_used_mb"`
	SampledAt  time.Time `json:"sampled_at"`
}

// SampleSystem reads current CPU and memory usage.
func SampleSystem(ctx context.Context) (SystemStats, error) {
	st := SystemStats{SampledAt: time.Now()}

	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return st, err
	}
	if len(pct) > 0 {
		st.CPUPercent = pct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return st, err
	}
	st.MemPercent = vm.UsedPercent
	st.MemUsedMB = vm.Used / (1024 * 1024)
	return st, nil
}

func (s *Server) sampleSystem(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		st, err := SampleSystem(ctx)
		if err != nil {
			s.logger.Debug("system sample failed", "error", err)
		} else {
			s.sysMu.Lock()
			s.sys = st
			s.sysMu.Unlock()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
