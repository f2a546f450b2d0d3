package specs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// fakeRunner answers nvidia-smi queries from a table keyed by the query argument.
type fakeRunner struct {
	calls   atomic.Int32
	replies map[string]string
	err     error
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range args {
		if q, ok := strings.CutPrefix(a, "--query-gpu="); ok {
			if out, ok := f.replies[q]; ok {
				return []byte(out), nil
			}
		}
	}
	return nil, fmt.Errorf("%s: unexpected args %v", name, args)
}

func newTestProbe(runner Runner) *Probe {
	p := NewProbe(Options{CPUSampleInterval: 0, CacheTTL: time.Minute}, runner,
		logger.NewSlogLogger(io.Discard, logger.LogLevelDebug))
	p.virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 16 * bytesPerGiB, Available: 4 * bytesPerGiB}, nil
	}
	p.hostInfo = func(context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{Platform: "ubuntu", PlatformVersion: "22.04"}, nil
	}
	p.cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{37.5}, nil
	}
	return p
}

func TestSystemSpecs_WithNvidiaGPU(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{replies: map[string]string{
		"name,memory.total": "NVIDIA GeForce RTX 3060, 12288\n",
	}}
	p := newTestProbe(runner)

	s, err := p.SystemSpecs(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "16.0", s.TotalRAMGB)
	assert.Equal(t, "4.0", s.AvailableRAMGB)
	assert.Equal(t, "75%", s.RAMPercent)
	assert.Equal(t, "NVIDIA GeForce RTX 3060", s.GPU)
	assert.Equal(t, "12.0 GB", s.GPUMemory)
	assert.NotEmpty(t, s.Processor)
	assert.Positive(t, s.CPUThreads)

	_, err = p.SystemSpecs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(1), runner.calls.Load(), "GPU descriptor is cached")
}

func TestSystemSpecs_NoGPU(t *testing.T) {
	t.Parallel()

	p := newTestProbe(&fakeRunner{err: fmt.Errorf("executable file not found in $PATH")})

	s, err := p.SystemSpecs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, gpuPlaceholder, s.GPU)
	assert.Empty(t, s.GPUMemory)
}

func TestSystemSpecs_MemoryFailure(t *testing.T) {
	t.Parallel()

	p := newTestProbe(&fakeRunner{})
	p.virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, fmt.Errorf("no /proc")
	}

	_, err := p.SystemSpecs(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySystem))
}

func TestSystemSpecs_ConcurrentCallersShareCollection(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{replies: map[string]string{"name,memory.total": "GPU, 1024"}}
	p := newTestProbe(runner)

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			_, err := p.SystemSpecs(t.Context())
			assert.NoError(t, err)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, runner.calls.Load(), int32(16))
	assert.Positive(t, runner.calls.Load())
}

func TestRealtimeUsage(t *testing.T) {
	t.Parallel()

	t.Run("with gpu", func(t *testing.T) {
		p := newTestProbe(&fakeRunner{replies: map[string]string{
			"name,memory.total": "NVIDIA RTX A2000, 6144",
			"utilization.gpu,memory.used,memory.total,temperature.gpu": "42, 1500, 6144, 61\n",
		}})

		u, err := p.RealtimeUsage(t.Context())
		require.NoError(t, err)
		assert.InDelta(t, 37.5, u.CPUPercent, 0.001)
		require.NotNil(t, u.GPUPercent)
		assert.Equal(t, uint32(42), *u.GPUPercent)
		assert.Equal(t, uint64(1500), *u.GPUMemoryUsedMB)
		assert.Equal(t, uint64(6144), *u.GPUMemoryTotalMB)
		assert.Equal(t, uint32(61), *u.GPUTempC)
	})

	t.Run("without gpu", func(t *testing.T) {
		runner := &fakeRunner{err: fmt.Errorf("not found")}
		p := newTestProbe(runner)

		u, err := p.RealtimeUsage(t.Context())
		require.NoError(t, err)
		assert.Nil(t, u.GPUPercent)
		assert.Nil(t, u.GPUTempC)

		_, err = p.RealtimeUsage(t.Context())
		require.NoError(t, err)
		assert.Equal(t, int32(1), runner.calls.Load(), "missing GPU is remembered")
	})

	t.Run("cpu failure", func(t *testing.T) {
		p := newTestProbe(&fakeRunner{})
		p.cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
			return nil, fmt.Errorf("boom")
		}
		_, err := p.RealtimeUsage(t.Context())
		require.Error(t, err)
	})
}

func TestQueryFirstGPU_Malformed(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{replies: map[string]string{"name,memory.total": "only-one-field\n"}}
	_, _, err := queryGPUName(t.Context(), r, "nvidia-smi")
	require.Error(t, err)

	r = &fakeRunner{replies: map[string]string{"name,memory.total": "\n\n"}}
	_, _, err = queryGPUName(t.Context(), r, "nvidia-smi")
	require.Error(t, err)
}

func TestOSDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Windows", osDisplayName("windows"))
	assert.Equal(t, "macOS", osDisplayName("darwin"))
	assert.Equal(t, "Linux", osDisplayName("linux"))
	assert.Equal(t, "freebsd", osDisplayName("freebsd"))
}
