package main

import (
	"os"

	"github.com/jaja2302/Palm-counting-AI/cmd"
	"github.com/jaja2302/Palm-counting-AI/internal/buildinfo"
	"github.com/jaja2302/Palm-counting-AI/internal/session"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	env := session.NewEnv(buildinfo.NewContext(version, buildDate))
	if err := cmd.RootCommand(env).Execute(); err != nil {
		os.Exit(1)
	}
}
