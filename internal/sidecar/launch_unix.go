//go:build unix

package sidecar

import (
	"golang.org/x/sys/unix"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

func launchHint(err error) string {
	switch {
	case errors.Is(err, unix.ENOEXEC):
		return "the file is not an executable for this platform; the AI pack may target another OS or architecture"
	case errors.Is(err, unix.EACCES):
		return "permission denied; the sidecar is not marked executable, reinstall the AI pack"
	case errors.Is(err, unix.ENOENT):
		return "the sidecar or its interpreter is missing"
	default:
		return ""
	}
}
