// Package integrity verifies downloaded artifacts against their declared
// SHA-256 digest and, optionally, a detached OpenPGP signature.
package integrity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

var errEmptyKeyring = errors.New("keyring holds no keys")

// Sum returns the lowercase hex SHA-256 of data.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// SumReader hashes everything read from r.
func SumReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SumFile hashes the file at path.
func SumFile(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	return SumReader(f)
}

// Verify compares the SHA-256 of data with expected (hex, case-insensitive).
// A mismatch returns *formula.DigestMismatchError.
func Verify(data []byte, expected string) error {
	return compare(Sum(data), expected)
}

// VerifyReader is Verify over a stream.
func VerifyReader(r io.Reader, expected string) error {
	actual, err := SumReader(r)
	if err != nil {
		return err
	}

	return compare(actual, expected)
}

// VerifyFile is Verify over a file on disk.
func VerifyFile(path, expected string) error {
	actual, err := SumFile(path)
	if err != nil {
		return err
	}

	return compare(actual, expected)
}

// Decode returns the raw digest bytes of a hex SHA-256.
func Decode(digest string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(digest)))
	if err != nil {
		return nil, fmt.Errorf("decode digest %q: %w", digest, err)
	}

	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("decode digest %q: want %d bytes, got %d", digest, sha256.Size, len(raw))
	}

	return raw, nil
}

func compare(actual, expected string) error {
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return &formula.DigestMismatchError{Expected: expected, Actual: actual}
	}

	return nil
}

// VerifySignature checks an armored detached signature over data against an
// armored public keyring and returns the signer's primary identity.
func VerifySignature(data, signature, armoredKeyring []byte) (string, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armoredKeyring))
	if err != nil {
		return "", fmt.Errorf("loading keyring: %w", err)
	}

	if len(keyring) == 0 {
		return "", errEmptyKeyring
	}

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		return "", fmt.Errorf("signature check failed: %w", err)
	}

	for name := range signer.Identities {
		return name, nil
	}

	return signer.PrimaryKey.KeyIdString(), nil
}
