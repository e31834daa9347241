// Package gpg verifies detached PGP signatures on downloaded source
// archives. Public keys are loaded from an on-disk keyring directory of
// ASCII-armored .asc files, typically the release-manager keys published for
// each python release series.
package gpg

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
)

const (
	maxKeyFileSize = 1024 * 1024 // 1MB is generous for an armored public key
	keyFileMode    = 0600        // Required file permissions for key files on Unix systems
)

// KeyRing represents a collection of PGP keys for signature verification
type KeyRing interface {
	VerifyDetached(message []byte, signature []byte) error
	AddKey(key Key) error
}

// Key represents a PGP public key
type Key interface {
	IsRevoked() bool
	GetFingerprint() string
}

// RealKeyRing implements KeyRing using gopenpgp v2 for actual cryptographic verification
type RealKeyRing struct {
	keyRing *crypto.KeyRing
}

// RealKey implements Key with actual PGP key data
type RealKey struct {
	pgpKey      *crypto.Key
	fingerprint string
	revoked     bool
}

// NewRealKeyRing creates a new RealKeyRing using gopenpgp v2
func NewRealKeyRing() *RealKeyRing {
	return &RealKeyRing{
		keyRing: nil, // Will be initialized when first key is added
	}
}

// VerifyDetached implements KeyRing with real GPG verification
func (rk *RealKeyRing) VerifyDetached(message []byte, signature []byte) error {
	if rk.keyRing == nil {
		return fmt.Errorf("no keys in keyring")
	}

	plainMessage := crypto.NewPlainMessage(message)

	pgpSignature, err := crypto.NewPGPSignatureFromArmored(string(signature))
	if err != nil {
		// Try binary format if armored fails
		pgpSignature = crypto.NewPGPSignature(signature)
	}

	err = rk.keyRing.VerifyDetached(plainMessage, pgpSignature, crypto.GetUnixTime())
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}

// AddKey implements KeyRing
func (rk *RealKeyRing) AddKey(key Key) error {
	if key == nil {
		return fmt.Errorf("key cannot be nil")
	}

	realKey, ok := key.(*RealKey)
	if !ok {
		return fmt.Errorf("unsupported key type")
	}

	if rk.keyRing == nil {
		var err error
		rk.keyRing, err = crypto.NewKeyRing(realKey.pgpKey)
		if err != nil {
			return fmt.Errorf("failed to create keyring: %w", err)
		}
	} else {
		if err := rk.keyRing.AddKey(realKey.pgpKey); err != nil {
			return fmt.Errorf("failed to add key to keyring: %w", err)
		}
	}

	return nil
}

// NewRealKey creates a new RealKey from armored data using gopenpgp v2
func NewRealKey(armoredData string) (*RealKey, error) {
	if armoredData == "" {
		return nil, fmt.Errorf("armored data cannot be empty")
	}

	pgpKey, err := crypto.NewKeyFromArmored(armoredData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PGP key: %w", err)
	}

	return &RealKey{
		pgpKey:      pgpKey,
		fingerprint: pgpKey.GetFingerprint(),
	}, nil
}

// IsRevoked implements Key
func (rk *RealKey) IsRevoked() bool {
	return rk.revoked
}

// GetFingerprint implements Key
func (rk *RealKey) GetFingerprint() string {
	return rk.fingerprint
}

// SimpleKeyRing is a non-cryptographic KeyRing used in tests.
type SimpleKeyRing struct {
	keys []Key
}

// SimpleKey is a non-cryptographic Key used in tests.
type SimpleKey struct {
	fingerprint string
	revoked     bool
	data        []byte
}

// NewSimpleKeyRing creates a new SimpleKeyRing
func NewSimpleKeyRing() *SimpleKeyRing {
	return &SimpleKeyRing{
		keys: make([]Key, 0),
	}
}

// NewSimpleKey creates a new SimpleKey from armored data
func NewSimpleKey(armoredData string) (*SimpleKey, error) {
	if armoredData == "" {
		return nil, fmt.Errorf("armored data cannot be empty")
	}

	hash := sha256.Sum256([]byte(armoredData))
	return &SimpleKey{
		fingerprint: fmt.Sprintf("fp_%x", hash[:8]),
		data:        []byte(armoredData),
	}, nil
}

// VerifyDetached implements KeyRing. It only checks structural validity.
func (kr *SimpleKeyRing) VerifyDetached(message []byte, signature []byte) error {
	if len(kr.keys) == 0 {
		return fmt.Errorf("no keys available for verification")
	}
	if len(message) == 0 {
		return fmt.Errorf("message cannot be empty")
	}
	if len(signature) == 0 {
		return fmt.Errorf("signature cannot be empty")
	}
	return nil
}

// AddKey implements KeyRing
func (kr *SimpleKeyRing) AddKey(key Key) error {
	if key == nil {
		return fmt.Errorf("key cannot be nil")
	}
	kr.keys = append(kr.keys, key)
	return nil
}

// IsRevoked implements Key
func (k *SimpleKey) IsRevoked() bool {
	return k.revoked
}

// GetFingerprint implements Key
func (k *SimpleKey) GetFingerprint() string {
	return k.fingerprint
}

// VerifyDetachedSignature verifies a detached signature (.asc/.sig file)
// against the given data file using the provided KeyRing.
func VerifyDetachedSignature(keyRing KeyRing, dataFilePath string, sigFilePath string) error {
	if keyRing == nil {
		return fmt.Errorf("keyring cannot be nil")
	}

	dataFileContent, err := os.ReadFile(dataFilePath)
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	sigFileInfo, err := os.Stat(sigFilePath)
	if err != nil {
		return fmt.Errorf("failed to read signature file: %w", err)
	}
	if sigFileInfo.Size() > maxKeyFileSize {
		return fmt.Errorf("signature file exceeds maximum allowed size of %d bytes", maxKeyFileSize)
	}

	sigFileContent, err := os.ReadFile(sigFilePath)
	if err != nil {
		return fmt.Errorf("failed to read signature file: %w", err)
	}

	if err := keyRing.VerifyDetached(dataFileContent, sigFileContent); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

// LoadKeyRingFromPath loads all ASCII-armored PGP public keys from the given
// directory and returns a KeyRing containing these keys.
func LoadKeyRingFromPath(keysPath string) (KeyRing, error) {
	files, err := os.ReadDir(keysPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	keyRing := NewRealKeyRing()
	keyCount := 0

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".asc" {
			continue
		}

		filePath := filepath.Join(keysPath, file.Name())
		if err := validateKeyFile(filePath); err != nil {
			return nil, fmt.Errorf("invalid key file '%s': %w", file.Name(), err)
		}

		keyData, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}

		key, err := NewRealKey(string(keyData))
		if err != nil {
			return nil, fmt.Errorf("failed to parse armored key: %w", err)
		}

		if err := validateKey(key); err != nil {
			return nil, fmt.Errorf("invalid key in file '%s': %w", file.Name(), err)
		}

		if err := keyRing.AddKey(key); err != nil {
			return nil, fmt.Errorf("failed to add key to keyring: %w", err)
		}
		keyCount++
	}

	if keyCount == 0 {
		return nil, fmt.Errorf("no .asc keys found in directory")
	}
	return keyRing, nil
}

// LoadKeyRingFromStrings loads PGP public keys from a slice of ASCII-armored
// key strings.
func LoadKeyRingFromStrings(armoredKeys []string) (KeyRing, error) {
	if len(armoredKeys) == 0 {
		return nil, fmt.Errorf("no armored keys provided")
	}

	keyRing := NewRealKeyRing()
	for i, armoredKey := range armoredKeys {
		key, err := NewRealKey(armoredKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse armored key string at index %d: %w", i, err)
		}

		if err := validateKey(key); err != nil {
			return nil, fmt.Errorf("invalid key at index %d: %w", i, err)
		}

		if err := keyRing.AddKey(key); err != nil {
			return nil, fmt.Errorf("failed to add key to keyring: %w", err)
		}
	}
	return keyRing, nil
}

// FileVerifier loads the keyring directory once and returns a function that
// verifies a detached signature file against an artifact, suitable for
// plugging into the download verification hooks.
func FileVerifier(keyringDir string) (func(artifactPath, signaturePath string) error, error) {
	keyRing, err := LoadKeyRingFromPath(keyringDir)
	if err != nil {
		return nil, err
	}
	return func(artifactPath, signaturePath string) error {
		return VerifyDetachedSignature(keyRing, artifactPath, signaturePath)
	}, nil
}

// validateKeyFile checks if a key file has appropriate permissions and size
func validateKeyFile(filePath string) error {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to access key file: %w", err)
	}

	if fileInfo.Size() > maxKeyFileSize {
		return fmt.Errorf("key file exceeds maximum allowed size of %d bytes", maxKeyFileSize)
	}

	// Check file permissions (allow both 0600 and 0644 for compatibility)
	perm := fileInfo.Mode().Perm()
	if perm != keyFileMode && perm != 0644 {
		return fmt.Errorf("key file has incorrect permissions. Expected %o or 0644, got %o", keyFileMode, perm)
	}

	return nil
}

// validateKey performs basic validation of a PGP key
func validateKey(key Key) error {
	if key == nil {
		return fmt.Errorf("key is nil")
	}

	if key.IsRevoked() {
		return fmt.Errorf("key is revoked")
	}

	return nil
}
