package pyconfig

import (
	"fmt"
	"strings"
)

// Variants lists the supported build variant names, grouped by build type.
var Variants = []string{
	"static_max",
	"static_mid",
	"static_tiny",
	"static_bootstrap",
	"shared_max",
	"shared_mid",
	"shared_vanilla",
	"framework_max",
	"framework_mid",
}

// SplitVariant separates a variant name into its build type and size parts,
// for example static_mid into static and mid.
func SplitVariant(variant string) (buildType, size string, err error) {
	for _, v := range Variants {
		if v == variant {
			i := strings.IndexByte(variant, '_')
			return variant[:i], variant[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unknown build variant: %q (supported: %s)",
		variant, strings.Join(Variants, ", "))
}

// ApplyVariant shapes the config for a named build variant. The variant
// methods move and drop extensions, so a config can only ever be shaped
// once; re-applying the same variant is a no-op.
func (c *Config) ApplyVariant(variant string) error {
	if c.variant == variant {
		return nil
	}
	if c.variant != "" {
		return fmt.Errorf("variant %s already applied, cannot apply %s", c.variant, variant)
	}
	apply, ok := map[string]func() error{
		"static_max":       c.staticMax,
		"static_mid":       c.staticMid,
		"static_tiny":      c.staticTiny,
		"static_bootstrap": c.staticBootstrap,
		"shared_max":       c.sharedMax,
		"shared_mid":       c.sharedMid,
		"shared_vanilla":   c.sharedVanilla,
		"framework_max":    c.frameworkMax,
		"framework_mid":    c.frameworkMid,
	}[variant]
	if !ok {
		return fmt.Errorf("unknown build variant: %q", variant)
	}
	if err := apply(); err != nil {
		return fmt.Errorf("apply variant %s: %w", variant, err)
	}
	c.variant = variant
	return nil
}

// staticMax keeps the full default static extension set.
func (c *Config) staticMax() error { return nil }

func (c *Config) staticMid() error {
	if err := c.DisableStatic("_decimal"); err != nil {
		return err
	}
	if c.host.IsLinux() {
		// Link openssl with explicit exclude-libs so its symbols stay out
		// of the final binary's dynamic table.
		c.Extensions["_ssl"] = []string{
			"_ssl.c",
			"-I$(OPENSSL)/include",
			"-L$(OPENSSL)/lib",
			"-l:libssl.a -Wl,--exclude-libs,libssl.a",
			"-l:libcrypto.a -Wl,--exclude-libs,libcrypto.a",
		}
		c.Extensions["_hashlib"] = []string{
			"_hashopenssl.c",
			"-I$(OPENSSL)/include",
			"-L$(OPENSSL)/lib",
			"-l:libcrypto.a -Wl,--exclude-libs,libcrypto.a",
		}
	}
	return nil
}

func (c *Config) staticTiny() error {
	names := []string{
		"_bz2",
		"_decimal",
		"_csv",
		"_json",
		"_lzma",
		"_scproxy",
		"_sqlite3",
		"_ssl",
		"pyexpat",
	}
	for _, name := range names {
		// _scproxy is only present on darwin.
		if !contains(c.Static, name) {
			continue
		}
		if err := c.DisableStatic(name); err != nil {
			return err
		}
	}
	return nil
}

// staticBootstrap strips the build down to the core set linked statically,
// for a minimal interpreter that can bootstrap a full one.
func (c *Config) staticBootstrap() error {
	c.Disabled = append(c.Disabled, c.Static...)
	c.Static = append([]string(nil), c.Core...)
	c.Core = nil
	return nil
}

func (c *Config) sharedMax() error {
	var ok bool
	if c.Disabled, ok = remove(c.Disabled, "_ctypes"); !ok {
		return fmt.Errorf("extension %q not in disabled section", "_ctypes")
	}
	c.Shared = append(c.Shared, "_ctypes")
	return c.StaticToShared("_decimal", "_ssl", "_hashlib")
}

func (c *Config) sharedMid() error {
	return c.DisableStatic("_decimal", "_ssl", "_hashlib")
}

// sharedVanilla moves almost everything to shared so that unused extension
// modules can be deleted after the build. Extensions compiled with
// Py_BUILD_CORE_BUILTIN reference unexported interpreter internals and must
// stay static.
func (c *Config) sharedVanilla() error {
	mustStayStatic := map[string]bool{
		"_functools": true,
		"_locale":    true,
		"_signal":    true,
		"_sre":       true,
		"_thread":    true,
		"posix":      true,
		"time":       true,
		"_typing":    true,
	}

	enable := []string{
		"_ctypes",
		"_curses",
		"_curses_panel",
		"_dbm",
		"_scproxy",
		"_tkinter",
		"resource",
		"syslog",
		"termios",
	}
	for _, name := range enable {
		if !contains(c.Disabled, name) {
			continue
		}
		if err := c.EnableShared(name); err != nil {
			return err
		}
	}

	static := append([]string(nil), c.Static...)
	for _, name := range static {
		if mustStayStatic[name] {
			continue
		}
		if err := c.StaticToShared(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) frameworkMax() error {
	if err := c.sharedMax(); err != nil {
		return err
	}
	return c.StaticToShared(
		"_bz2",
		"_lzma",
		"_sqlite3",
		"_scproxy",
		"zlib",
		"binascii",
	)
}

func (c *Config) frameworkMid() error {
	if err := c.frameworkMax(); err != nil {
		return err
	}
	return c.DisableShared("_decimal", "_ssl", "_hashlib")
}
