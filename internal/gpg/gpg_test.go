package gpg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fakeArmoredKey = `-----BEGIN PGP PUBLIC KEY BLOCK-----

not a real key, only used for structural tests
-----END PGP PUBLIC KEY BLOCK-----`

func writeKeyFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}
	// os.WriteFile masks the mode with the process umask; chmod so the
	// test controls the exact permissions it asserts on.
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("failed to chmod key file: %v", err)
	}
	return path
}

func TestSimpleKeyRing(t *testing.T) {
	keyRing := NewSimpleKeyRing()

	t.Run("verify with no keys fails", func(t *testing.T) {
		err := keyRing.VerifyDetached([]byte("data"), []byte("sig"))
		if err == nil {
			t.Error("VerifyDetached() with empty keyring should fail")
		}
	})

	key, err := NewSimpleKey(fakeArmoredKey)
	if err != nil {
		t.Fatalf("NewSimpleKey() error = %v", err)
	}
	if err := keyRing.AddKey(key); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}

	tests := []struct {
		name      string
		message   []byte
		signature []byte
		wantErr   bool
	}{
		{"valid inputs", []byte("data"), []byte("sig"), false},
		{"empty message", nil, []byte("sig"), true},
		{"empty signature", []byte("data"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := keyRing.VerifyDetached(tt.message, tt.signature)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyDetached() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSimpleKeyFingerprint(t *testing.T) {
	key1, err := NewSimpleKey(fakeArmoredKey)
	if err != nil {
		t.Fatalf("NewSimpleKey() error = %v", err)
	}
	key2, err := NewSimpleKey(fakeArmoredKey + "\n")
	if err != nil {
		t.Fatalf("NewSimpleKey() error = %v", err)
	}

	if !strings.HasPrefix(key1.GetFingerprint(), "fp_") {
		t.Errorf("GetFingerprint() = %q, want fp_ prefix", key1.GetFingerprint())
	}
	if key1.GetFingerprint() == key2.GetFingerprint() {
		t.Error("distinct key material should produce distinct fingerprints")
	}
	if key1.IsRevoked() {
		t.Error("fresh key should not be revoked")
	}
}

func TestNewSimpleKeyEmpty(t *testing.T) {
	if _, err := NewSimpleKey(""); err == nil {
		t.Error("NewSimpleKey(\"\") should fail")
	}
}

func TestNewRealKeyInvalidData(t *testing.T) {
	tests := []struct {
		name    string
		armored string
	}{
		{"empty string", ""},
		{"garbage data", "not armored at all"},
		{"truncated armor", "-----BEGIN PGP PUBLIC KEY BLOCK-----"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRealKey(tt.armored); err == nil {
				t.Error("NewRealKey() should fail for invalid data")
			}
		})
	}
}

func TestRealKeyRingWithoutKeys(t *testing.T) {
	keyRing := NewRealKeyRing()

	if err := keyRing.VerifyDetached([]byte("data"), []byte("sig")); err == nil {
		t.Error("VerifyDetached() with no keys should fail")
	}
	if err := keyRing.AddKey(nil); err == nil {
		t.Error("AddKey(nil) should fail")
	}

	// A simple key cannot be added to a real keyring
	simpleKey, err := NewSimpleKey(fakeArmoredKey)
	if err != nil {
		t.Fatalf("NewSimpleKey() error = %v", err)
	}
	if err := keyRing.AddKey(simpleKey); err == nil {
		t.Error("AddKey() should reject non-RealKey types")
	}
}

func TestVerifyDetachedSignature(t *testing.T) {
	tmpDir := t.TempDir()
	dataPath := writeKeyFile(t, tmpDir, "archive.tar.xz", "archive contents", 0644)
	sigPath := writeKeyFile(t, tmpDir, "archive.tar.xz.asc", "detached signature", 0644)

	keyRing := NewSimpleKeyRing()
	key, err := NewSimpleKey(fakeArmoredKey)
	if err != nil {
		t.Fatalf("NewSimpleKey() error = %v", err)
	}
	if err := keyRing.AddKey(key); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}

	t.Run("valid files", func(t *testing.T) {
		if err := VerifyDetachedSignature(keyRing, dataPath, sigPath); err != nil {
			t.Errorf("VerifyDetachedSignature() error = %v", err)
		}
	})

	t.Run("nil keyring", func(t *testing.T) {
		if err := VerifyDetachedSignature(nil, dataPath, sigPath); err == nil {
			t.Error("VerifyDetachedSignature() with nil keyring should fail")
		}
	})

	t.Run("missing data file", func(t *testing.T) {
		missing := filepath.Join(tmpDir, "nonexistent")
		if err := VerifyDetachedSignature(keyRing, missing, sigPath); err == nil {
			t.Error("VerifyDetachedSignature() with missing data file should fail")
		}
	})

	t.Run("missing signature file", func(t *testing.T) {
		missing := filepath.Join(tmpDir, "nonexistent.asc")
		if err := VerifyDetachedSignature(keyRing, dataPath, missing); err == nil {
			t.Error("VerifyDetachedSignature() with missing signature should fail")
		}
	})

	t.Run("oversized signature file", func(t *testing.T) {
		big := make([]byte, maxKeyFileSize+1)
		bigPath := filepath.Join(tmpDir, "big.asc")
		if err := os.WriteFile(bigPath, big, 0644); err != nil {
			t.Fatalf("failed to write oversized file: %v", err)
		}
		if err := VerifyDetachedSignature(keyRing, dataPath, bigPath); err == nil {
			t.Error("VerifyDetachedSignature() with oversized signature should fail")
		}
	})
}

func TestLoadKeyRingFromPath(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, err := LoadKeyRingFromPath("/nonexistent/keys"); err == nil {
			t.Error("LoadKeyRingFromPath() should fail for missing directory")
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		if _, err := LoadKeyRingFromPath(t.TempDir()); err == nil {
			t.Error("LoadKeyRingFromPath() should fail when no .asc files exist")
		}
	})

	t.Run("non-asc files ignored", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeKeyFile(t, tmpDir, "README.txt", "not a key", 0644)
		if _, err := LoadKeyRingFromPath(tmpDir); err == nil {
			t.Error("LoadKeyRingFromPath() should fail when only non-.asc files exist")
		}
	})

	t.Run("invalid armored key", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeKeyFile(t, tmpDir, "bad.asc", "not armored", 0644)
		_, err := LoadKeyRingFromPath(tmpDir)
		if err == nil {
			t.Fatal("LoadKeyRingFromPath() should fail for unparseable key")
		}
		if !strings.Contains(err.Error(), "failed to parse armored key") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("bad permissions rejected", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeKeyFile(t, tmpDir, "world.asc", fakeArmoredKey, 0666)
		_, err := LoadKeyRingFromPath(tmpDir)
		if err == nil {
			t.Fatal("LoadKeyRingFromPath() should reject world-writable key files")
		}
		if !strings.Contains(err.Error(), "permissions") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("oversized key rejected", func(t *testing.T) {
		tmpDir := t.TempDir()
		big := strings.Repeat("A", maxKeyFileSize+1)
		writeKeyFile(t, tmpDir, "big.asc", big, 0644)
		_, err := LoadKeyRingFromPath(tmpDir)
		if err == nil {
			t.Fatal("LoadKeyRingFromPath() should reject oversized key files")
		}
		if !strings.Contains(err.Error(), "maximum allowed size") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestLoadKeyRingFromStrings(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		if _, err := LoadKeyRingFromStrings(nil); err == nil {
			t.Error("LoadKeyRingFromStrings() should fail with no keys")
		}
	})

	t.Run("invalid key reports index", func(t *testing.T) {
		_, err := LoadKeyRingFromStrings([]string{"garbage"})
		if err == nil {
			t.Fatal("LoadKeyRingFromStrings() should fail for invalid key")
		}
		if !strings.Contains(err.Error(), "index 0") {
			t.Errorf("error should mention the failing index, got: %v", err)
		}
	})
}

func TestFileVerifier(t *testing.T) {
	t.Run("missing keyring directory", func(t *testing.T) {
		if _, err := FileVerifier("/nonexistent/keys"); err == nil {
			t.Error("FileVerifier() should fail for missing keyring directory")
		}
	})

	t.Run("invalid keys in directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeKeyFile(t, tmpDir, "bad.asc", "not armored", 0600)
		if _, err := FileVerifier(tmpDir); err == nil {
			t.Error("FileVerifier() should fail for unparseable keys")
		}
	})
}

func TestValidateKey(t *testing.T) {
	if err := validateKey(nil); err == nil {
		t.Error("validateKey(nil) should fail")
	}

	revoked := &SimpleKey{fingerprint: "fp_dead", revoked: true}
	if err := validateKey(revoked); err == nil {
		t.Error("validateKey() should reject revoked keys")
	}

	valid := &SimpleKey{fingerprint: "fp_live"}
	if err := validateKey(valid); err != nil {
		t.Errorf("validateKey() error = %v", err)
	}
}
