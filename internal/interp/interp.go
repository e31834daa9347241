// Package interp hosts an embedded script runtime behind an explicit
// configure/initialize/run/finalize lifecycle. The interpreter is gopher-lua;
// callers never touch the lua state directly.
package interp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

// Sentinel errors for lifecycle misuse.
var (
	ErrConfigCleared  = errors.New("configuration already cleared")
	ErrNotInitialized = errors.New("runtime not initialized")
	ErrFinalized      = errors.New("runtime already finalized")
)

// Status is the outcome of a configuration or initialization step. The zero
// value is success; a status may instead carry an exception or a requested
// process exit code (for example after --help handling).
type Status struct {
	err      error
	exitCode int
	hasExit  bool
}

// OK is the success status.
var OK = Status{}

func exception(err error) Status { return Status{err: err} }
func exitStatus(code int) Status { return Status{exitCode: code, hasExit: true} }

// Exception reports whether the status carries an error or a requested exit.
func (s Status) Exception() bool { return s.err != nil || s.hasExit }

// ExitRequested returns the requested process exit code, if any.
func (s Status) ExitRequested() (int, bool) { return s.exitCode, s.hasExit }

// Err returns the diagnostic error carried by an exception status.
func (s Status) Err() error { return s.err }

// Config collects interpreter settings before initialization. A config is
// consumed by InitializeFromConfig and must be released with Clear on every
// exit path.
type Config struct {
	// Isolated disables host integration: no module loading from the host
	// filesystem, no io library, and no environment, filesystem, or process
	// access through the os library.
	Isolated bool

	program string
	args    []string
	cleared bool
}

// NewConfig returns a config with default (non-isolated) settings.
func NewConfig() *Config {
	return &Config{}
}

// SetArgs decodes the process argument vector into the config. Option
// decoding is owned by the runtime: -h/--help requests an early exit with
// code 0, any other option is rejected, and the remaining arguments become
// the script argument table.
func (c *Config) SetArgs(argv []string) Status {
	if c.cleared {
		return exception(ErrConfigCleared)
	}
	if len(argv) == 0 {
		return exception(errors.New("empty argument vector"))
	}
	c.program = argv[0]
	for _, a := range argv[1:] {
		switch a {
		case "-h", "--help":
			fmt.Printf("usage: %s [args...]\n", filepath.Base(c.program))
			return exitStatus(0)
		}
		if len(a) > 1 && a[0] == '-' {
			return exception(fmt.Errorf("unknown option: %s", a))
		}
		c.args = append(c.args, a)
	}
	return OK
}

// Clear releases the config. Safe to call more than once.
func (c *Config) Clear() {
	c.args = nil
	c.cleared = true
}

// Interp is an initialized runtime instance.
type Interp struct {
	state     *lua.LState
	finalized bool
}

// InitializeFromConfig builds a runtime from the config. In isolated mode
// only the base, table, string, math, and os libraries are opened; otherwise
// the full standard library (including io and package) is available.
func InitializeFromConfig(cfg *Config) (*Interp, Status) {
	if cfg == nil || cfg.cleared {
		return nil, exception(ErrConfigCleared)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	type stdlib struct {
		name string
		open lua.LGFunction
	}
	var libs []stdlib
	if !cfg.Isolated {
		// The loader must be opened before the base library.
		libs = append(libs, stdlib{lua.LoadLibName, lua.OpenPackage})
	}
	libs = append(libs,
		stdlib{lua.BaseLibName, lua.OpenBase},
		stdlib{lua.TabLibName, lua.OpenTable},
		stdlib{lua.StringLibName, lua.OpenString},
		stdlib{lua.MathLibName, lua.OpenMath},
		stdlib{lua.OsLibName, lua.OpenOs},
	)
	if !cfg.Isolated {
		libs = append(libs, stdlib{lua.IoLibName, lua.OpenIo})
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, exception(fmt.Errorf("open library %q: %w", lib.name, err))
		}
	}

	if cfg.Isolated {
		// The os library stays for the clock functions, but its host-facing
		// entries (environment, filesystem, process exit) are removed.
		if tbl, ok := L.GetGlobal(lua.OsLibName).(*lua.LTable); ok {
			for _, name := range []string{"getenv", "setenv", "remove", "rename", "tmpname", "exit", "execute"} {
				tbl.RawSetString(name, lua.LNil)
			}
		}
	}

	// Expose decoded arguments the way the standalone interpreter would.
	argTable := L.NewTable()
	argTable.RawSetInt(0, lua.LString(cfg.program))
	for i, a := range cfg.args {
		argTable.RawSetInt(i+1, lua.LString(a))
	}
	L.SetGlobal("arg", argTable)

	return &Interp{state: L}, OK
}

// RunString executes a script fragment in the runtime.
func (in *Interp) RunString(script string) error {
	if in.state == nil || in.finalized {
		return ErrNotInitialized
	}
	if err := in.state.DoString(script); err != nil {
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// Finalize tears the runtime down. Finalizing twice is an error; that is the
// only failure mode without fault injection into the interpreter itself.
func (in *Interp) Finalize() error {
	if in.state == nil {
		return ErrNotInitialized
	}
	if in.finalized {
		return ErrFinalized
	}
	in.finalized = true
	in.state.Close()
	return nil
}

// ReportFailure writes an initialization diagnostic to standard error.
func ReportFailure(status Status) {
	if err := status.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime initialization failed: %v\n", err)
	}
}
