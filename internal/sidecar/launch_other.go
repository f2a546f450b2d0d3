//go:build !unix && !windows

package sidecar

func launchHint(error) string { return "" }
