// Package pyconfig models the Setup.local extension configuration used to
// compile CPython. A Config starts from the base module tables, gets patched
// for the requested interpreter version and host platform, and is then
// shaped by a named build variant before being written out.
package pyconfig

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/buildpy-dev/buildpy/internal/platform"
)

// Config holds the extension tables for one interpreter version. The four
// name lists partition the extension map: core is always linked in, static
// and shared select the link mode, disabled is left out entirely.
type Config struct {
	Version    string              `json:"version"`
	Header     []string            `json:"header"`
	Extensions map[string][]string `json:"extensions"`
	Core       []string            `json:"core"`
	Shared     []string            `json:"shared"`
	Static     []string            `json:"static"`
	Disabled   []string            `json:"disabled"`

	// InstallNameID is set for darwin framework builds and consumed by the
	// relocation step after install.
	InstallNameID string `json:"install_name_id,omitempty"`

	host    platform.Host
	logger  *slog.Logger
	variant string
}

// ForVersion builds the configuration for a python version string such as
// "3.12.9". Version patches are cumulative: 3.12 applies the 3.11 patch
// first, and so on up the chain. buildType selects framework handling on
// darwin; it must be one of static, shared, or framework.
func ForVersion(version, buildType string, host platform.Host, logger *slog.Logger) (*Config, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid python version %q: %w", version, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := base()
	cfg.Version = version
	cfg.host = host
	cfg.logger = logger

	patches := []func() error{cfg.patch311}
	switch {
	case v.Major() == 3 && v.Minor() == 11:
	case v.Major() == 3 && v.Minor() == 12:
		patches = append(patches, cfg.patch312)
	case v.Major() == 3 && v.Minor() == 13:
		patches = append(patches, cfg.patch312, cfg.patch313)
	case v.Major() == 3 && v.Minor() == 14:
		patches = append(patches, cfg.patch312, cfg.patch313, cfg.patch314)
	default:
		return nil, fmt.Errorf("unsupported python version: %s", version)
	}
	for _, patch := range patches {
		if err := patch(); err != nil {
			return nil, fmt.Errorf("patch config for %s: %w", version, err)
		}
	}

	if buildType == "framework" {
		cfg.InstallNameID = fmt.Sprintf("@rpath/Python.framework/Versions/%s/Python", cfg.Ver())
	}
	return cfg, nil
}

// Ver returns the short version, 3.12 for 3.12.9.
func (c *Config) Ver() string {
	parts := strings.SplitN(c.Version, ".", 3)
	if len(parts) < 2 {
		return c.Version
	}
	return parts[0] + "." + parts[1]
}

func remove(list []string, name string) ([]string, bool) {
	for i, n := range list {
		if n == name {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Config) section(name string) *[]string {
	switch name {
	case "core":
		return &c.Core
	case "shared":
		return &c.Shared
	case "static":
		return &c.Static
	case "disabled":
		return &c.Disabled
	}
	return nil
}

func (c *Config) move(src, dst string, names ...string) error {
	from, to := c.section(src), c.section(dst)
	for _, name := range names {
		c.logger.Debug("move extension", "from", src, "to", dst, "name", name)
		next, ok := remove(*from, name)
		if !ok {
			return fmt.Errorf("extension %q not in %s section", name, src)
		}
		*from = next
		*to = append(*to, name)
	}
	return nil
}

// EnableStatic moves disabled extensions to the static section.
func (c *Config) EnableStatic(names ...string) error { return c.move("disabled", "static", names...) }

// EnableShared moves disabled extensions to the shared section.
func (c *Config) EnableShared(names ...string) error { return c.move("disabled", "shared", names...) }

// DisableStatic moves static extensions to the disabled section.
func (c *Config) DisableStatic(names ...string) error { return c.move("static", "disabled", names...) }

// DisableShared moves shared extensions to the disabled section.
func (c *Config) DisableShared(names ...string) error { return c.move("shared", "disabled", names...) }

// StaticToShared moves static extensions to the shared section.
func (c *Config) StaticToShared(names ...string) error { return c.move("static", "shared", names...) }

// SharedToStatic moves shared extensions to the static section.
func (c *Config) SharedToStatic(names ...string) error { return c.move("shared", "static", names...) }

func (c *Config) patch311() error {
	switch {
	case c.host.IsDarwin():
		return c.EnableStatic("_scproxy")
	case c.host.IsLinux():
		return c.EnableStatic("ossaudiodev")
	}
	return nil
}

func (c *Config) patch312() error {
	hacl := func(module, source string) []string {
		return []string{
			source,
			"-I$(srcdir)/Modules/_hacl/include",
			module,
			"-D_BSD_SOURCE",
			"-D_DEFAULT_SOURCE",
		}
	}
	c.Extensions["_md5"] = hacl("_hacl/Hacl_Hash_MD5.c", "md5module.c")
	c.Extensions["_sha1"] = hacl("_hacl/Hacl_Hash_SHA1.c", "sha1module.c")
	c.Extensions["_sha2"] = hacl("_hacl/Hacl_Hash_SHA2.c", "sha2module.c")
	c.Extensions["_sha3"] = hacl("_hacl/Hacl_Hash_SHA3.c", "sha3module.c")
	delete(c.Extensions, "_sha256")
	delete(c.Extensions, "_sha512")

	c.Static = append(c.Static, "_sha2")
	var ok bool
	for _, name := range []string{"_sha256", "_sha512"} {
		if c.Static, ok = remove(c.Static, name); !ok {
			return fmt.Errorf("extension %q not in static section", name)
		}
	}
	c.Disabled = append(c.Disabled, "_xxinterpchannels")
	return nil
}

func (c *Config) patch313() error {
	c.Extensions["_interpchannels"] = []string{"_interpchannelsmodule.c"}
	c.Extensions["_interpqueues"] = []string{"_interpqueuesmodule.c"}
	c.Extensions["_interpreters"] = []string{"_interpretersmodule.c"}
	c.Extensions["_sysconfig"] = []string{"_sysconfig.c"}
	c.Extensions["_testexternalinspection"] = []string{"_testexternalinspection.c"}

	delete(c.Extensions, "_crypt")
	delete(c.Extensions, "ossaudiodev")
	delete(c.Extensions, "spwd")

	c.Static = append(c.Static, "_interpchannels", "_interpqueues", "_interpreters", "_sysconfig")

	for _, name := range []string{"_crypt", "_xxsubinterpreters", "audioop", "nis", "ossaudiodev", "spwd"} {
		// ossaudiodev was enabled by the linux platform patch and is then
		// absent from disabled; that is fine, it no longer exists in 3.13.
		c.Disabled, _ = remove(c.Disabled, name)
		c.Static, _ = remove(c.Static, name)
	}
	c.Disabled = append(c.Disabled, "_testexternalinspection")
	return nil
}

func (c *Config) patch314() error {
	c.Extensions["_types"] = []string{"_typesmodule.c"}
	c.Extensions["_hmac"] = []string{"hmacmodule.c"}
	c.Extensions["_remote_debugging"] = []string{"_remote_debugging_module.c"}
	c.Extensions["_zstd"] = []string{"_zstd/_zstdmodule.c", "-lzstd", "-I$(srcdir)/Modules/_zstd"}

	// Hash modules no longer need the HACL include flags.
	c.Extensions["_blake2"] = []string{"blake2module.c"}
	c.Extensions["_md5"] = []string{"md5module.c"}
	c.Extensions["_sha1"] = []string{"sha1module.c"}
	c.Extensions["_sha2"] = []string{"sha2module.c"}
	c.Extensions["_sha3"] = []string{"sha3module.c"}

	delete(c.Extensions, "_contextvars")
	c.Static, _ = remove(c.Static, "_contextvars")

	delete(c.Extensions, "_testexternalinspection")
	c.Disabled, _ = remove(c.Disabled, "_testexternalinspection")

	c.Static = append(c.Static, "_types")
	c.Disabled = append(c.Disabled, "_remote_debugging", "_zstd")

	var ok bool
	for _, name := range []string{"_sha1", "_sha2", "_sha3"} {
		if c.Static, ok = remove(c.Static, name); !ok {
			return fmt.Errorf("extension %q not in static section", name)
		}
	}
	return nil
}

// Write applies a build variant and writes the resulting Setup.local file.
func (c *Config) Write(variant, path string) error {
	if err := c.ApplyVariant(variant); err != nil {
		return err
	}
	c.logger.Info("write setup file", "variant", variant, "path", path)

	out := []string{"# -*- makefile -*-"}
	out = append(out, c.Header...)
	out = append(out, "\n# core\n")
	for _, name := range c.Core {
		out = append(out, strings.Join(append([]string{name}, c.Extensions[name]...), " "))
	}
	for _, section := range []string{"shared", "static", "disabled"} {
		names := *c.section(section)
		if len(names) == 0 {
			continue
		}
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		out = append(out, fmt.Sprintf("\n*%s*\n", section))
		for _, name := range sorted {
			if section == "disabled" {
				out = append(out, name)
				continue
			}
			out = append(out, strings.Join(append([]string{name}, c.Extensions[name]...), " "))
		}
	}
	out = append(out, "# end \n")
	return os.WriteFile(path, []byte(strings.Join(out, "\n")), 0o644)
}

// WriteJSON applies a build variant and writes the raw tables as JSON, for
// inspection and for reduction manifests to build on.
func (c *Config) WriteJSON(variant, path string) error {
	if err := c.ApplyVariant(variant); err != nil {
		return err
	}
	c.logger.Info("write setup json", "variant", variant, "path", path)
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
