package builder

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WritePlan prints the full build plan to w without touching the workspace.
func (b *PythonBuilder) WritePlan(w io.Writer) error {
	opts, err := b.configureOptions()
	if err != nil {
		return err
	}
	cfg, err := b.VariantConfig()
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 60)
	p.Fprintf(w, "%s\nBUILD PLAN (dry run)\n%s\n", rule, rule)

	p.Fprintf(w, "\n[Build Target]\n")
	p.Fprintf(w, "  Python version:    %s\n", b.Target.Version)
	p.Fprintf(w, "  Variant:           %s\n", b.Variant)
	p.Fprintf(w, "  Build type:        %s\n", b.BuildType)
	p.Fprintf(w, "  Size type:         %s\n", b.SizeType)
	p.Fprintf(w, "  Platform:          %s\n", b.Host.Classifier())

	p.Fprintf(w, "\n[Directories]\n")
	p.Fprintf(w, "  Prefix:            %s\n", b.Prefix())
	p.Fprintf(w, "  Source directory:  %s\n", b.SrcDir())
	p.Fprintf(w, "  Downloads:         %s\n", b.Project.Downloads)

	p.Fprintf(w, "\n[Build Options]\n")
	p.Fprintf(w, "  Parallel jobs:     %d\n", b.Jobs)
	p.Fprintf(w, "  Optimize build:    %t\n", b.Optimize)
	p.Fprintf(w, "  Precompile stdlib: %t\n", b.Precompile)
	p.Fprintf(w, "  Bytecode opt:      %d\n", b.OptimizeBytecode)
	p.Fprintf(w, "  Zip stdlib:        %t\n", !b.SkipZiplib)

	p.Fprintf(w, "\n[Configure Options]\n")
	sorted := append([]string(nil), opts...)
	sort.Strings(sorted)
	for _, opt := range sorted {
		p.Fprintf(w, "  %s\n", opt)
	}

	p.Fprintf(w, "\n[Dependencies]\n")
	if len(b.Deps) == 0 {
		p.Fprintf(w, "  (none)\n")
	}
	for _, dep := range b.Deps {
		p.Fprintf(w, "  %s %s\n", dep.Name(), dep.Version())
	}

	for _, section := range []struct {
		name  string
		names []string
	}{
		{"Core", cfg.Core},
		{"Static", cfg.Static},
		{"Shared", cfg.Shared},
		{"Disabled", cfg.Disabled},
	} {
		p.Fprintf(w, "\n[Modules: %s] (%d)\n", section.name, len(section.names))
		if len(section.names) == 0 {
			p.Fprintf(w, "  (none)\n")
			continue
		}
		names := append([]string(nil), section.names...)
		sort.Strings(names)
		for _, name := range names {
			p.Fprintf(w, "  %s\n", name)
		}
	}

	if len(b.Packages) > 0 {
		p.Fprintf(w, "\n[Packages to Install] (%d)\n", len(b.Packages))
		for _, pkg := range b.Packages {
			p.Fprintf(w, "  %s\n", pkg)
		}
	}

	p.Fprintf(w, "\n%s\nEnd of build plan. No changes were made.\n%s\n", rule, rule)
	return nil
}

type sizeEntry struct {
	name string
	size int64
}

// SizeReport prints a component size breakdown of a completed build.
func (b *PythonBuilder) SizeReport(w io.Writer) error {
	prefix := b.Prefix()
	if _, err := os.Stat(prefix); err != nil {
		return fmt.Errorf("build directory not found: %s (run a build first)", prefix)
	}

	var components []sizeEntry
	add := func(name, path string) {
		if _, err := os.Stat(path); err != nil {
			return
		}
		components = append(components, sizeEntry{name, dirSize(path)})
	}

	add("bin/ (executables)", filepath.Join(prefix, "bin"))
	add("include/ (headers)", filepath.Join(prefix, "include"))
	add("share/ (docs/man)", filepath.Join(prefix, "share"))
	if b.BuildType == "framework" {
		add("Resources/", filepath.Join(prefix, "Resources"))
	}

	libDir := filepath.Join(prefix, "lib")
	if entries, err := os.ReadDir(libDir); err == nil {
		var libFiles int64
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if info, err := e.Info(); err == nil {
				libFiles += info.Size()
			}
		}
		if libFiles > 0 {
			components = append(components, sizeEntry{"lib/ (libraries, zipped stdlib)", libFiles})
		}
	}

	stdlibDir := b.StdlibDir()
	dynloadDir := filepath.Join(stdlibDir, "lib-dynload")
	if _, err := os.Stat(stdlibDir); err == nil {
		total := dirSize(stdlibDir)
		dynload := dirSize(dynloadDir)
		components = append(components, sizeEntry{"lib/" + b.NameVer() + "/ (stdlib)", total - dynload})
		if dynload > 0 {
			components = append(components, sizeEntry{"lib/" + b.NameVer() + "/lib-dynload/", dynload})
		}
	}

	totalSize := dirSize(prefix)
	sort.Slice(components, func(i, j int) bool { return components[i].size > components[j].size })

	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 70)
	p.Fprintf(w, "%s\nBUILD SIZE REPORT\n%s\n", rule, rule)

	p.Fprintf(w, "\n[Build Info]\n")
	p.Fprintf(w, "  Location:      %s\n", prefix)
	p.Fprintf(w, "  Variant:       %s\n", b.Variant)
	p.Fprintf(w, "  Python:        %s\n", b.Target.Version)

	p.Fprintf(w, "\n[Size Breakdown]\n")
	p.Fprintf(w, "  %-40s %12s %8s\n", "Component", "Size", "%")
	var accounted int64
	for _, c := range components {
		accounted += c.size
		p.Fprintf(w, "  %-40s %12s %7.1f%%\n", c.name, formatSize(c.size), percent(c.size, totalSize))
	}
	if other := totalSize - accounted; other > 0 {
		p.Fprintf(w, "  %-40s %12s %7.1f%%\n", "(other)", formatSize(other), percent(other, totalSize))
	}
	p.Fprintf(w, "  %-40s %12s %8s\n", "TOTAL", formatSize(totalSize), "100.0%")

	p.Fprintf(w, "\n[Largest Files]\n")
	for _, f := range largestFiles(prefix, 10) {
		name := f.name
		if len(name) > 48 {
			name = "..." + name[len(name)-45:]
		}
		p.Fprintf(w, "  %-50s %12s\n", name, formatSize(f.size))
	}
	p.Fprintf(w, "%s\n", rule)
	return nil
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func formatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

func largestFiles(root string, n int) []sizeEntry {
	var files []sizeEntry
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, sizeEntry{rel, info.Size()})
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].size > files[j].size })
	if len(files) > n {
		files = files[:n]
	}
	return files
}
