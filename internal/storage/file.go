package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"

	"coopconsole/internal/sentinel"
)

const nonceSize = 24

// File stores values as one JSON document on disk. The parent directory is
// created with mode 0700 and the file is written with mode 0600 since it
// holds a bearer token. Writes go to a temp file renamed into place so a
// crash never leaves a half-written credential behind.
type File struct {
	mu   sync.Mutex
	path string
	key  *[32]byte
}

// FileOption configures a File store.
type FileOption func(*File)

// WithSealKey seals the document with NaCl secretbox under key.
func WithSealKey(key [32]byte) FileOption {
	return func(f *File) {
		k := key
		f.key = &k
	}
}

// NewFile returns a store backed by path. The file need not exist yet.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ParseSealKey decodes a hex-encoded 32-byte key.
func ParseSealKey(s string) ([32]byte, error) {
	var key [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("decoding storage key: %w", sentinel.ErrInvalidInput)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("storage key must be 32 bytes, got %d: %w", len(raw), sentinel.ErrInvalidInput)
	}
	copy(key[:], raw)
	return key, nil
}

// Path returns the backing file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(key Key) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *File) Set(key Key, value string) error {
	return f.SetMany(map[Key]string{key: value})
}

func (f *File) SetMany(updates map[Key]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil && !errors.Is(err, sentinel.ErrCorrupt) {
		return err
	}
	if values == nil {
		values = make(map[Key]string)
	}
	for k, v := range updates {
		values[k] = v
	}
	return f.save(values)
}

func (f *File) Delete(key Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil && !errors.Is(err, sentinel.ErrCorrupt) {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

// Clear removes the backing file entirely.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential file %s: %w", f.path, err)
	}
	return nil
}

func (f *File) load() (map[Key]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[Key]string{}, nil
		}
		return nil, fmt.Errorf("reading credential file %s: %w", f.path, err)
	}
	if f.key != nil {
		data, err = f.open(data)
		if err != nil {
			return nil, err
		}
	}
	values := make(map[Key]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing credential file %s: %w", f.path, sentinel.ErrCorrupt)
	}
	return values, nil
}

func (f *File) save(values map[Key]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}
	if f.key != nil {
		data, err = f.seal(data)
		if err != nil {
			return err
		}
	} else {
		data = append(data, '\n')
	}

	directory := filepath.Dir(f.path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating credential directory %s: %w", directory, err)
	}
	tmp, err := os.CreateTemp(directory, ".credential-*")
	if err != nil {
		return fmt.Errorf("creating temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp credential file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp credential file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing credential file %s: %w", f.path, err)
	}
	return nil
}

func (f *File) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, f.key), nil
}

func (f *File) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("sealed credential too short: %w", sentinel.ErrCorrupt)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, f.key)
	if !ok {
		return nil, fmt.Errorf("credential file %s cannot be opened with the configured key: %w", f.path, sentinel.ErrCorrupt)
	}
	return plain, nil
}

var _ Store = (*File)(nil)
