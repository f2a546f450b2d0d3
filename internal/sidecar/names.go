package sidecar

import "runtime"

// ExecutableNames returns the sidecar file names accepted on goos, in lookup order.
func ExecutableNames(goos string) []string {
	if goos == "windows" {
		return []string{"infer_worker.exe", "infer_worker-x86_64-pc-windows-msvc.exe"}
	}
	return []string{
		"infer_worker",
		"infer_worker-x86_64-unknown-linux-gnu",
		"infer_worker-aarch64-apple-darwin",
		"infer_worker-x86_64-apple-darwin",
	}
}

// PlatformExecutableNames returns ExecutableNames for the running OS.
func PlatformExecutableNames() []string {
	return ExecutableNames(runtime.GOOS)
}
