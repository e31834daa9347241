// Package main is a smoke-test launcher for the embedded script runtime.
// It brings the runtime up in isolated mode, runs a fixed script, and tears
// the runtime down again, turning every lifecycle failure into a distinct
// process exit.
package main

import (
	"fmt"
	"os"

	"github.com/buildpy-dev/buildpy/internal/interp"
)

// finalizeFailureCode is the exit code reserved for a teardown failure so it
// can be told apart from initialization and script errors.
const finalizeFailureCode = 120

const dateScript = `print("Today is " .. os.date("%c"))`

func main() {
	os.Exit(run())
}

func run() int {
	cfg := interp.NewConfig()
	cfg.Isolated = true

	if status := cfg.SetArgs(os.Args); status.Exception() {
		cfg.Clear()
		if code, ok := status.ExitRequested(); ok {
			return code
		}
		interp.ReportFailure(status)
		return 1
	}

	in, status := interp.InitializeFromConfig(cfg)
	cfg.Clear()
	if status.Exception() {
		if code, ok := status.ExitRequested(); ok {
			return code
		}
		interp.ReportFailure(status)
		return 1
	}

	if err := in.RunString(dateScript); err != nil {
		fmt.Fprintln(os.Stderr, err)
		in.Finalize()
		return 1
	}

	if err := in.Finalize(); err != nil {
		return finalizeFailureCode
	}

	fmt.Println("Works")
	return 0
}
