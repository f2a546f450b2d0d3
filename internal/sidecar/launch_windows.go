//go:build windows

package sidecar

import (
	"golang.org/x/sys/windows"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

func launchHint(err error) string {
	switch {
	case errors.Is(err, windows.ERROR_BAD_EXE_FORMAT):
		return "not a valid Win32 application (error 193); the AI pack may be for another architecture or the download is corrupt"
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return "access denied; antivirus software may be blocking infer_worker.exe"
	case errors.Is(err, windows.ERROR_FILE_NOT_FOUND):
		return "the sidecar file is missing"
	default:
		return ""
	}
}
