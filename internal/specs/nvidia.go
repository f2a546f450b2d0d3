package specs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// nvidiaTimeout bounds every nvidia-smi invocation.
const nvidiaTimeout = 3 * time.Second

// Runner runs an external command and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type gpuSample struct {
	utilization uint32
	memUsedMB   uint64
	memTotalMB  uint64
	tempC       uint32
}

// queryGPUName returns the first GPU's name and total memory in MiB.
func queryGPUName(ctx context.Context, r Runner, bin string) (string, uint64, error) {
	fields, err := queryFirstGPU(ctx, r, bin, "name,memory.total", 2)
	if err != nil {
		return "", 0, err
	}
	memMB, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse memory.total %q: %w", fields[1], err)
	}
	return fields[0], memMB, nil
}

// queryGPUUsage reads utilization, memory and temperature of the first GPU.
func queryGPUUsage(ctx context.Context, r Runner, bin string) (gpuSample, error) {
	fields, err := queryFirstGPU(ctx, r, bin, "utilization.gpu,memory.used,memory.total,temperature.gpu", 4)
	if err != nil {
		return gpuSample{}, err
	}
	var s gpuSample
	nums := make([]uint64, 4)
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return gpuSample{}, fmt.Errorf("parse %q: %w", f, err)
		}
		nums[i] = n
	}
	s.utilization = uint32(nums[0])
	s.memUsedMB = nums[1]
	s.memTotalMB = nums[2]
	s.tempC = uint32(nums[3])
	return s, nil
}

// queryFirstGPU runs nvidia-smi in CSV mode and splits the first non-empty line.
func queryFirstGPU(ctx context.Context, r Runner, bin, query string, want int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, nvidiaTimeout)
	defer cancel()

	out, err := r.Output(ctx, bin, "--query-gpu="+query, "--format=csv,noheader,nounits")
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != want {
			return nil, fmt.Errorf("unexpected nvidia-smi output %q", line)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
	return nil, fmt.Errorf("nvidia-smi reported no GPU")
}
