package sar

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// HashAlgo selects the companion-file digest spec.md §4.3 calls an
// "optional hashing stream" (a *.md5 / *.sha1 / ... file written
// alongside each slice).
type HashAlgo string

const (
	HashNone   HashAlgo = ""
	HashMD5    HashAlgo = "md5"
	HashSHA1   HashAlgo = "sha1"
	HashSHA256 HashAlgo = "sha256"
)

func newHash(algo HashAlgo) (hash.Hash, error) {
	switch algo {
	case HashMD5:
		return md5.New(), nil
	case HashSHA1:
		return sha1.New(), nil
	case HashSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("sar: unsupported hash algorithm %q", algo)
	}
}

// HashingEntrepot wraps another Entrepot so that every Create also
// produces a "<name>.<algo>" companion file containing the hex digest of
// the slice, once the slice is closed.
type HashingEntrepot struct {
	Entrepot
	Algo HashAlgo
}

func (h *HashingEntrepot) Create(name string, overwrite bool, perm os.FileMode) (io.WriteCloser, error) {
	if h.Algo == HashNone {
		return h.Entrepot.Create(name, overwrite, perm)
	}
	inner, err := h.Entrepot.Create(name, overwrite, perm)
	if err != nil {
		return nil, err
	}
	digest, err := newHash(h.Algo)
	if err != nil {
		inner.Close()
		return nil, err
	}
	return &hashingWriteCloser{inner: inner, digest: digest, entrepot: h.Entrepot, name: name, algo: h.Algo}, nil
}

type hashingWriteCloser struct {
	inner    io.WriteCloser
	digest   hash.Hash
	entrepot Entrepot
	name     string
	algo     HashAlgo
}

func (h *hashingWriteCloser) Write(p []byte) (int, error) {
	n, err := h.inner.Write(p)
	if n > 0 {
		h.digest.Write(p[:n])
	}
	return n, err
}

func (h *hashingWriteCloser) Close() error {
	if err := h.inner.Close(); err != nil {
		return err
	}
	companionName := h.name + "." + string(h.algo)
	f, err := h.entrepot.Create(companionName, true, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	sum := hex.EncodeToString(h.digest.Sum(nil))
	_, err = io.WriteString(f, fmt.Sprintf("%s  %s\n", sum, h.name))
	return err
}
