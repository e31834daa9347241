package interp

import (
	"errors"
	"strings"
	"testing"
)

func TestSetArgs(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantErr  bool
		wantExit bool
		wantCode int
		wantArgs []string
	}{
		{
			name:     "plain arguments",
			argv:     []string{"embedcheck", "alpha", "beta"},
			wantArgs: []string{"alpha", "beta"},
		},
		{
			name: "no arguments",
			argv: []string{"embedcheck"},
		},
		{
			name:     "short help requests exit zero",
			argv:     []string{"embedcheck", "-h"},
			wantExit: true,
			wantCode: 0,
		},
		{
			name:     "long help requests exit zero",
			argv:     []string{"embedcheck", "--help"},
			wantExit: true,
			wantCode: 0,
		},
		{
			name:    "unknown option rejected",
			argv:    []string{"embedcheck", "--verbose"},
			wantErr: true,
		},
		{
			name:    "empty argument vector rejected",
			argv:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			status := cfg.SetArgs(tt.argv)

			code, exited := status.ExitRequested()
			if exited != tt.wantExit {
				t.Fatalf("ExitRequested() = %v, want %v", exited, tt.wantExit)
			}
			if exited && code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if gotErr := status.Err() != nil; gotErr != tt.wantErr {
				t.Fatalf("Err() = %v, wantErr %v", status.Err(), tt.wantErr)
			}
			if tt.wantErr || tt.wantExit {
				if !status.Exception() {
					t.Error("Exception() = false, want true")
				}
				return
			}
			if status.Exception() {
				t.Errorf("Exception() = true for status %+v", status)
			}
			if len(cfg.args) != len(tt.wantArgs) {
				t.Fatalf("decoded args = %v, want %v", cfg.args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if cfg.args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %q, want %q", i, cfg.args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestSetArgsOnClearedConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Clear()

	status := cfg.SetArgs([]string{"embedcheck"})
	if !errors.Is(status.Err(), ErrConfigCleared) {
		t.Errorf("Err() = %v, want %v", status.Err(), ErrConfigCleared)
	}
}

func TestInitializeFromClearedConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Clear()

	in, status := InitializeFromConfig(cfg)
	if in != nil {
		t.Error("expected nil interpreter for cleared config")
	}
	if !errors.Is(status.Err(), ErrConfigCleared) {
		t.Errorf("Err() = %v, want %v", status.Err(), ErrConfigCleared)
	}
}

func TestIsolatedLibraryVisibility(t *testing.T) {
	tests := []struct {
		name     string
		isolated bool
		script   string
		wantErr  bool
	}{
		{
			name:     "os available in isolated mode",
			isolated: true,
			script:   `assert(type(os.date) == "function")`,
		},
		{
			name:     "io hidden in isolated mode",
			isolated: true,
			script:   `assert(io == nil)`,
		},
		{
			name:     "require hidden in isolated mode",
			isolated: true,
			script:   `assert(package == nil)`,
		},
		{
			name:     "getenv hidden in isolated mode",
			isolated: true,
			script:   `assert(os.getenv == nil)`,
		},
		{
			name:     "filesystem os functions hidden in isolated mode",
			isolated: true,
			script:   `assert(os.remove == nil and os.rename == nil and os.tmpname == nil)`,
		},
		{
			name:     "exit and execute hidden in isolated mode",
			isolated: true,
			script:   `assert(os.exit == nil and os.execute == nil)`,
		},
		{
			name:     "clock functions stay in isolated mode",
			isolated: true,
			script:   `assert(type(os.time) == "function" and type(os.clock) == "function")`,
		},
		{
			name:   "io available without isolation",
			script: `assert(type(io.write) == "function")`,
		},
		{
			name:   "getenv available without isolation",
			script: `assert(type(os.getenv) == "function")`,
		},
		{
			name:   "package available without isolation",
			script: `assert(type(package) == "table")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Isolated = tt.isolated
			if status := cfg.SetArgs([]string{"embedcheck"}); status.Exception() {
				t.Fatalf("SetArgs: %v", status.Err())
			}

			in, status := InitializeFromConfig(cfg)
			if status.Exception() {
				t.Fatalf("InitializeFromConfig: %v", status.Err())
			}
			defer in.Finalize()

			err := in.RunString(tt.script)
			if (err != nil) != tt.wantErr {
				t.Errorf("RunString(%q) = %v, wantErr %v", tt.script, err, tt.wantErr)
			}
		})
	}
}

func TestArgumentTable(t *testing.T) {
	cfg := NewConfig()
	cfg.Isolated = true
	if status := cfg.SetArgs([]string{"embedcheck", "first", "second"}); status.Exception() {
		t.Fatalf("SetArgs: %v", status.Err())
	}

	in, status := InitializeFromConfig(cfg)
	if status.Exception() {
		t.Fatalf("InitializeFromConfig: %v", status.Err())
	}
	defer in.Finalize()

	script := `
		assert(arg[0] == "embedcheck")
		assert(arg[1] == "first")
		assert(arg[2] == "second")
		assert(arg[3] == nil)
	`
	if err := in.RunString(script); err != nil {
		t.Errorf("RunString: %v", err)
	}
}

func TestRunStringErrors(t *testing.T) {
	cfg := NewConfig()
	cfg.Isolated = true
	cfg.SetArgs([]string{"embedcheck"})

	in, status := InitializeFromConfig(cfg)
	if status.Exception() {
		t.Fatalf("InitializeFromConfig: %v", status.Err())
	}
	defer in.Finalize()

	err := in.RunString(`this is not a script`)
	if err == nil {
		t.Fatal("expected error for invalid script")
	}
	if !strings.Contains(err.Error(), "script execution failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFinalizeTwice(t *testing.T) {
	cfg := NewConfig()
	cfg.Isolated = true
	cfg.SetArgs([]string{"embedcheck"})

	in, status := InitializeFromConfig(cfg)
	if status.Exception() {
		t.Fatalf("InitializeFromConfig: %v", status.Err())
	}

	if err := in.Finalize(); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if err := in.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Errorf("second Finalize = %v, want %v", err, ErrFinalized)
	}
	if err := in.RunString(`print("late")`); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RunString after Finalize = %v, want %v", err, ErrNotInitialized)
	}
}

func TestDateScript(t *testing.T) {
	cfg := NewConfig()
	cfg.Isolated = true
	cfg.SetArgs([]string{"embedcheck"})

	in, status := InitializeFromConfig(cfg)
	if status.Exception() {
		t.Fatalf("InitializeFromConfig: %v", status.Err())
	}
	defer in.Finalize()

	script := `
		local line = "Today is " .. os.date("%c")
		assert(line:sub(1, 9) == "Today is ")
		assert(#line > 9)
	`
	if err := in.RunString(script); err != nil {
		t.Errorf("RunString: %v", err)
	}
}
