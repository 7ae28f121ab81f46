package main

import (
	"mdqengine/internal/cli"
	_ "mdqengine/internal/executor/javascript"
	_ "mdqengine/internal/executor/lua"
	_ "mdqengine/internal/executor/native"
	_ "mdqengine/internal/executor/process"
)

// These variables are populated by the build via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
