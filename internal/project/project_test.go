package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetupCreatesLayout(t *testing.T) {
	root := t.TempDir()
	p, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	for _, dir := range []string{p.Build, p.Downloads, p.Install, p.Src} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("missing directory %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestResetKeepsDownloads(t *testing.T) {
	root := t.TempDir()
	p, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Setup(); err != nil {
		t.Fatal(err)
	}

	cached := filepath.Join(p.Downloads, "Python-3.12.9.tar.xz")
	if err := os.WriteFile(cached, []byte("tarball"), 0o644); err != nil {
		t.Fatal(err)
	}
	checkout := p.SrcDir("python")
	if err := os.MkdirAll(checkout, 0o755); err != nil {
		t.Fatal(err)
	}
	installed := p.InstallPrefix("python")
	if err := os.MkdirAll(installed, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := p.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := os.Stat(cached); err != nil {
		t.Errorf("download removed by reset: %v", err)
	}
	if _, err := os.Stat(checkout); !os.IsNotExist(err) {
		t.Error("src checkout survived reset")
	}
	if _, err := os.Stat(installed); !os.IsNotExist(err) {
		t.Error("python install survived reset")
	}
}

func TestInstallPrefix(t *testing.T) {
	p, err := New("/work")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/work", "build", "install", "openssl")
	if got := p.InstallPrefix("openssl"); got != want {
		t.Errorf("InstallPrefix = %q, want %q", got, want)
	}
}
