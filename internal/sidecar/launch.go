package sidecar

import (
	"fmt"
	"syscall"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

// launchError wraps a spawn failure, keeping the OS error code and adding a
// hint for the codes that mean "this file cannot run here".
func launchError(err error, executable string) error {
	wrapped := fmt.Errorf("failed to start infer_worker: %w", err)
	hint := launchHint(err)
	if hint != "" {
		wrapped = fmt.Errorf("failed to start infer_worker: %w (%s)", err, hint)
	}

	b := errors.New(wrapped).
		Component("sidecar").
		Category(errors.CategorySidecarLaunch).
		Context("executable", executable)

	var errno syscall.Errno
	if errors.As(err, &errno) {
		b = b.Context("os_error_code", int(errno))
	}
	if hint != "" {
		b = b.Context("hint", hint)
	}
	return b.Build()
}
