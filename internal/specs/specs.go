// Package specs reports host hardware for the status panel: static CPU, RAM
// and GPU details plus a sampled CPU/GPU load reading.
package specs

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/patrickmn/go-cache"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/singleflight"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

const (
	cacheKeyStatic = "static"
	cacheKeyGPU    = "gpu"

	// gpuPlaceholder is shown when no NVIDIA GPU could be queried.
	gpuPlaceholder = "\u2014"

	bytesPerGiB = 1024 * 1024 * 1024
)

// SystemSpecs is the one-shot hardware summary.
type SystemSpecs struct {
	OS             string `json:"os"`
	OSVersion      string `json:"os_version,omitempty"`
	Processor      string `json:"processor"`
	TotalRAMGB     string `json:"total_ram_gb"`
	AvailableRAMGB string `json:"available_ram_gb"`
	RAMPercent     string `json:"ram_percent"`
	CPUCores       int    `json:"cpu_cores"`
	CPUThreads     int    `json:"cpu_threads"`
	GPU            string `json:"gpu"`
	GPUMemory      string `json:"gpu_memory"`
}

// RealtimeUsage is one load sample. GPU fields are nil without nvidia-smi.
type RealtimeUsage struct {
	CPUPercent       float64 `json:"cpu_percent"`
	GPUPercent       *uint32 `json:"gpu_percent,omitempty"`
	GPUMemoryUsedMB  *uint64 `json:"gpu_memory_used_mb,omitempty"`
	GPUMemoryTotalMB *uint64 `json:"gpu_memory_total_mb,omitempty"`
	GPUTempC         *uint32 `json:"gpu_temp_c,omitempty"`
}

// staticInfo is the part of SystemSpecs that does not change while running.
type staticInfo struct {
	os        string
	osVersion string
	processor string
	cores     int
	threads   int
}

type gpuInfo struct {
	name   string
	memory string
}

// Options configures a Probe.
type Options struct {
	// CPUSampleInterval is the blocking window for RealtimeUsage. Zero
	// compares against the previous call instead of blocking.
	CPUSampleInterval time.Duration
	CacheTTL          time.Duration
	NvidiaSMI         string
}

// Probe collects specs. Safe for concurrent use; concurrent callers share one
// collection.
type Probe struct {
	opts   Options
	log    logger.Logger
	cache  *cache.Cache
	group  singleflight.Group
	runner Runner

	cpuPercent    func(ctx context.Context, interval time.Duration, perCPU bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	hostInfo      func(ctx context.Context) (*host.InfoStat, error)
	cpuCounts     func(ctx context.Context, logical bool) (int, error)
	cpuInfo       func(ctx context.Context) ([]cpu.InfoStat, error)
}

// NewProbe creates a probe. A nil runner executes real commands.
func NewProbe(opts Options, runner Runner, log logger.Logger) *Probe {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.NvidiaSMI == "" {
		opts.NvidiaSMI = "nvidia-smi"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Probe{
		opts: opts,
		log:  log,
		// No janitor: expired entries are simply not returned.
		cache:         cache.New(opts.CacheTTL, 0),
		runner:        runner,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		hostInfo:      host.InfoWithContext,
		cpuCounts:     cpu.CountsWithContext,
		cpuInfo:       cpu.InfoWithContext,
	}
}

// SystemSpecs returns the hardware summary. Only memory figures are read
// fresh; CPU, OS and GPU details come from cache after the first call.
func (p *Probe) SystemSpecs(ctx context.Context) (*SystemSpecs, error) {
	vm, err := p.virtualMemory(ctx)
	if err != nil {
		return nil, errors.New(err).
			Component("specs").
			Category(errors.CategorySystem).
			Context("operation", "virtual-memory").
			Build()
	}

	st := p.static(ctx)
	gpu := p.gpu(ctx)

	used := vm.Total - min(vm.Available, vm.Total)
	var pct float64
	if vm.Total > 0 {
		pct = float64(used) / float64(vm.Total) * 100
	}

	return &SystemSpecs{
		OS:             st.os,
		OSVersion:      st.osVersion,
		Processor:      st.processor,
		TotalRAMGB:     formatGiB(vm.Total),
		AvailableRAMGB: formatGiB(vm.Available),
		RAMPercent:     fmt.Sprintf("%.0f%%", pct),
		CPUCores:       st.cores,
		CPUThreads:     st.threads,
		GPU:            gpu.name,
		GPUMemory:      gpu.memory,
	}, nil
}

// RealtimeUsage samples CPU load over the configured interval and reads GPU
// load when nvidia-smi is available.
func (p *Probe) RealtimeUsage(ctx context.Context) (*RealtimeUsage, error) {
	percents, err := p.cpuPercent(ctx, p.opts.CPUSampleInterval, false)
	if err != nil {
		return nil, errors.New(err).
			Component("specs").
			Category(errors.CategorySystem).
			Context("operation", "cpu-percent").
			Build()
	}
	usage := &RealtimeUsage{}
	if len(percents) > 0 {
		usage.CPUPercent = percents[0]
	}

	if sample, ok := p.gpuUsage(ctx); ok {
		usage.GPUPercent = &sample.utilization
		usage.GPUMemoryUsedMB = &sample.memUsedMB
		usage.GPUMemoryTotalMB = &sample.memTotalMB
		usage.GPUTempC = &sample.tempC
	}
	return usage, nil
}

func (p *Probe) static(ctx context.Context) staticInfo {
	if v, ok := p.cache.Get(cacheKeyStatic); ok {
		return v.(staticInfo)
	}
	v, _, _ := p.group.Do(cacheKeyStatic, func() (any, error) {
		st := p.collectStatic(ctx)
		// CPU and OS details cannot change while the process runs.
		p.cache.Set(cacheKeyStatic, st, cache.NoExpiration)
		return st, nil
	})
	return v.(staticInfo)
}

func (p *Probe) collectStatic(ctx context.Context) staticInfo {
	st := staticInfo{
		os:        osDisplayName(runtime.GOOS),
		processor: cpuid.CPU.BrandName,
		cores:     cpuid.CPU.PhysicalCores,
		threads:   cpuid.CPU.LogicalCores,
	}

	if info, err := p.hostInfo(ctx); err == nil && info != nil {
		st.osVersion = info.PlatformVersion
		if info.Platform != "" && runtime.GOOS == "linux" {
			st.osVersion = info.Platform + " " + info.PlatformVersion
		}
	} else if err != nil {
		p.log.Debug("host info unavailable", logger.Error(err))
	}

	if st.processor == "" {
		if infos, err := p.cpuInfo(ctx); err == nil && len(infos) > 0 {
			st.processor = infos[0].ModelName
		}
	}
	if st.processor == "" {
		st.processor = "Unknown"
	}
	if st.cores <= 0 {
		if n, err := p.cpuCounts(ctx, false); err == nil {
			st.cores = n
		}
	}
	if st.threads <= 0 {
		if n, err := p.cpuCounts(ctx, true); err == nil && n > 0 {
			st.threads = n
		} else {
			st.threads = runtime.NumCPU()
		}
	}
	return st
}

func (p *Probe) gpu(ctx context.Context) gpuInfo {
	if v, ok := p.cache.Get(cacheKeyGPU); ok {
		return v.(gpuInfo)
	}
	v, _, _ := p.group.Do(cacheKeyGPU, func() (any, error) {
		g := gpuInfo{name: gpuPlaceholder}
		if name, memMB, err := queryGPUName(ctx, p.runner, p.opts.NvidiaSMI); err == nil {
			g = gpuInfo{name: name, memory: fmt.Sprintf("%.1f GB", float64(memMB)/1024)}
		} else {
			p.log.Debug("nvidia-smi query failed", logger.Error(err))
		}
		p.cache.SetDefault(cacheKeyGPU, g)
		return g, nil
	})
	return v.(gpuInfo)
}

// gpuUsage skips nvidia-smi while the GPU descriptor says there is none.
func (p *Probe) gpuUsage(ctx context.Context) (gpuSample, bool) {
	if p.gpu(ctx).name == gpuPlaceholder {
		return gpuSample{}, false
	}
	sample, err := queryGPUUsage(ctx, p.runner, p.opts.NvidiaSMI)
	if err != nil {
		p.log.Debug("gpu usage query failed", logger.Error(err))
		return gpuSample{}, false
	}
	return sample, true
}

func osDisplayName(goos string) string {
	switch goos {
	case "windows":
		return "Windows"
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	default:
		return goos
	}
}

func formatGiB(b uint64) string {
	return fmt.Sprintf("%.1f", float64(b)/bytesPerGiB)
}
