// SPDX-License-Identifier: MPL-2.0

// Package fixity computes the checksums recorded in OPEX descriptors.
package fixity

import (
	"crypto/md5"  //nolint:gosec // MD5 is one of the fixity types OPEX accepts
	"crypto/sha1" //nolint:gosec // SHA-1 is one of the fixity types OPEX accepts
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/opexprep/opexprep/pkg/opextree"
)

const (
	// None disables checksums.
	None Algorithm = "none"
	MD5  Algorithm = "MD5"
	SHA1 Algorithm = "SHA-1"
	// SHA256 is the default.
	SHA256 Algorithm = "SHA-256"
	SHA512 Algorithm = "SHA-512"
)

// ErrUnknownAlgorithm is returned for algorithm names OPEX does not define.
var ErrUnknownAlgorithm = errors.New("unknown fixity algorithm")

// Algorithm is an OPEX fixity type name.
type Algorithm string

// Parse validates an algorithm name. The empty string selects SHA256.
func Parse(name string) (Algorithm, error) {
	switch a := Algorithm(name); a {
	case "":
		return SHA256, nil
	case None, MD5, SHA1, SHA256, SHA512:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q (valid: MD5, SHA-1, SHA-256, SHA-512, none)", ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case MD5:
		return md5.New() //nolint:gosec
	case SHA1:
		return sha1.New() //nolint:gosec
	case SHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// Sum hashes the file at path. With None it returns a zero Fixity.
func Sum(path string, alg Algorithm) (opextree.Fixity, error) {
	if alg == None {
		return opextree.Fixity{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return opextree.Fixity{}, fmt.Errorf("failed to open %s for checksum: %w", path, err)
	}
	defer f.Close()

	return SumReader(f, alg)
}

// SumReader hashes everything read from r.
func SumReader(r io.Reader, alg Algorithm) (opextree.Fixity, error) {
	if alg == None {
		return opextree.Fixity{}, nil
	}
	h := alg.newHash()
	if _, err := io.Copy(h, r); err != nil {
		return opextree.Fixity{}, fmt.Errorf("failed to compute %s checksum: %w", alg, err)
	}
	return opextree.Fixity{Algorithm: string(alg), Value: hex.EncodeToString(h.Sum(nil))}, nil
}
