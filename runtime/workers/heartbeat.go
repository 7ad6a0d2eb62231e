package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HubStats is what the hub reports about itself on every beat.
type HubStats struct {
	LiveConnections int
	PendingReplies  int
}

type Beat struct {
	HubStats
	Pid        int
	RamBytes   uint64
	CpuPercent float64
	Status     string
}

// HeartbeatWorker periodically logs the hub load and the process footprint.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    func() HubStats
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration, stats func() HubStats) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, stats: stats}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			beat, err := w.beat(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			w.log.Info("Heartbeat",
				"live_connections", beat.LiveConnections,
				"pending_replies", beat.PendingReplies,
				"pid", beat.Pid,
				"status", beat.Status,
				"ram_bytes", beat.RamBytes,
				"cpu_percent", beat.CpuPercent)
		}
	}
}

// beat retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func (w *HeartbeatWorker) beat(p *process.Process) (Beat, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return Beat{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return Beat{}, err
	}
	status, err := p.Status()
	if err != nil {
		return Beat{}, err
	}
	return Beat{
		HubStats:   w.stats(),
		Pid:        int(p.Pid),
		RamBytes:   memInfo.RSS,
		CpuPercent: cpuPercent,
		Status:     status,
	}, nil
}
