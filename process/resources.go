package process

import (
	"log"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"vidfilter/config"
)

// warnLowResources logs when the host looks too loaded for another
// pipeline run. It never blocks the job: submit must stay infallible
// and the error taxonomy fixed, so this is advisory only.
func warnLowResources(cfg *config.Config) {
	p, err := cpu.Percent(0, false)
	if err != nil {
		log.Printf("Warning: could not get CPU usage: %v", err)
	} else if len(p) > 0 && p[0] > (100.0-cfg.ThrottleCPU) {
		log.Printf("Warning: starting job under CPU pressure (%.2f%% used, idle threshold %.2f%%)", p[0], cfg.ThrottleCPU)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("Warning: could not get memory usage: %v", err)
	} else if vm.Available < uint64(cfg.ThrottleFreeMem) {
		log.Printf("Warning: starting job with low free memory (%d available, %d preferred)", vm.Available, cfg.ThrottleFreeMem)
	}

	d, err := disk.Usage(cfg.OutputDir)
	if err != nil {
		log.Printf("Warning: could not get disk usage for %s: %v", cfg.OutputDir, err)
	} else if d.Free < uint64(cfg.ThrottleFreeDisk) {
		log.Printf("Warning: starting job with low free disk (%d free, %d preferred)", d.Free, cfg.ThrottleFreeDisk)
	}
}

// SystemInfo is the resource snapshot served by the transport layer.
type SystemInfo struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemAvailable  uint64  `json:"mem_available_bytes"`
	MemTotal      uint64  `json:"mem_total_bytes"`
	DiskFree      uint64  `json:"disk_free_bytes"`
	DiskTotal     uint64  `json:"disk_total_bytes"`
	QueueCapacity int     `json:"queue_capacity"`
	QueueLength   int     `json:"queue_length"`
}

// System reports host resource usage plus the processing queue's fill
// level.
func (p *Processor) System() SystemInfo {
	info := SystemInfo{
		QueueCapacity: cap(p.queue),
		QueueLength:   len(p.queue),
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		info.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemAvailable = vm.Available
		info.MemTotal = vm.Total
	}
	if d, err := disk.Usage(p.cfg.OutputDir); err == nil {
		info.DiskFree = d.Free
		info.DiskTotal = d.Total
	}
	return info
}
