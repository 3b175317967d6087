package vfs

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"arraydb/trace"
)

// Errors
var (
	ErrUnsupportedScheme = errors.New("no object store registered for scheme")
	ErrUnsupportedOp     = errors.New("operation not supported by object store")
	ErrNotFound          = errors.New("object not found")
)

// Default read batching parameters.
const (
	DefaultMinBatchSize    = 20 * 1024 * 1024
	DefaultMinBatchGap     = 500 * 1024
	DefaultReadConcurrency = 8
)

// FileInfo describes one object.
type FileInfo struct {
	URI   string
	Size  int64
	IsDir bool
}

// ReaderAtCloser is a random-access reader over one object.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

// ObjectStore is the capability set a storage backend implements. Backends
// are registered in the VFS dispatch table keyed by URI scheme.
type ObjectStore interface {
	Scheme() string
	Stat(uri string) (FileInfo, error)
	List(uri string) ([]FileInfo, error)
	// Read fills buf from the object starting at offset.
	Read(uri string, offset int64, buf []byte) error
	// OpenReaderAt returns a random-access reader and the object size.
	OpenReaderAt(uri string) (ReaderAtCloser, int64, error)
	Write(uri string, data []byte) error
	Move(src, dst string) error
	Remove(uri string) error
	CreateDir(uri string) error
}

// Options tunes the VFS.
type Options struct {
	// MinBatchSize and MinBatchGap control read coalescing: adjacent
	// regions are merged while the grown batch stays within MinBatchSize or
	// the gap between them is within MinBatchGap.
	MinBatchSize uint64
	MinBatchGap  uint64
	// ReadConcurrency bounds the shared read worker pool.
	ReadConcurrency int
}

// VFS dispatches filesystem operations to object stores by URI scheme and
// offers batched parallel reads on a shared worker pool.
type VFS struct {
	mu           sync.RWMutex
	stores       map[string]ObjectStore
	pool         *ants.Pool
	minBatchSize uint64
	minBatchGap  uint64
	tracer       *trace.Tracer
}

// New creates a VFS with the file, http, https and mem backends registered.
func New(opts Options) (*VFS, error) {
	if opts.MinBatchSize == 0 {
		opts.MinBatchSize = DefaultMinBatchSize
	}
	if opts.MinBatchGap == 0 {
		opts.MinBatchGap = DefaultMinBatchGap
	}
	if opts.ReadConcurrency <= 0 {
		opts.ReadConcurrency = DefaultReadConcurrency
	}
	pool, err := ants.NewPool(opts.ReadConcurrency)
	if err != nil {
		return nil, fmt.Errorf("creating read pool: %w", err)
	}
	v := &VFS{
		stores:       make(map[string]ObjectStore),
		pool:         pool,
		minBatchSize: opts.MinBatchSize,
		minBatchGap:  opts.MinBatchGap,
		tracer:       trace.GetTracer(),
	}
	v.Register(&posixStore{})
	v.Register(&httpStore{scheme: "http"})
	v.Register(&httpStore{scheme: "https"})
	v.Register(newMemStore())
	return v, nil
}

// Register adds or replaces the backend for a scheme.
func (v *VFS) Register(store ObjectStore) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stores[store.Scheme()] = store
}

// Close releases the read worker pool.
func (v *VFS) Close() error {
	v.pool.Release()
	return nil
}

// store resolves the backend for a URI. Scheme-less URIs go to the file
// backend.
func (v *VFS) store(uri string) (ObjectStore, error) {
	scheme := "file"
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	} else if i := strings.Index(uri, "://"); i > 0 {
		scheme = uri[:i]
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	store, ok := v.stores[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return store, nil
}

// Stat returns object metadata.
func (v *VFS) Stat(uri string) (FileInfo, error) {
	store, err := v.store(uri)
	if err != nil {
		return FileInfo{}, err
	}
	return store.Stat(uri)
}

// List returns the children of a directory-like URI.
func (v *VFS) List(uri string) ([]FileInfo, error) {
	store, err := v.store(uri)
	if err != nil {
		return nil, err
	}
	return store.List(uri)
}

// Read fills buf from the object starting at offset.
func (v *VFS) Read(uri string, offset int64, buf []byte) error {
	store, err := v.store(uri)
	if err != nil {
		return err
	}
	return store.Read(uri, offset, buf)
}

// OpenReaderAt returns a random-access reader and the object size.
func (v *VFS) OpenReaderAt(uri string) (ReaderAtCloser, int64, error) {
	store, err := v.store(uri)
	if err != nil {
		return nil, 0, err
	}
	return store.OpenReaderAt(uri)
}

// Write replaces the object's contents.
func (v *VFS) Write(uri string, data []byte) error {
	store, err := v.store(uri)
	if err != nil {
		return err
	}
	return store.Write(uri, data)
}

// Move renames an object within one backend.
func (v *VFS) Move(src, dst string) error {
	store, err := v.store(src)
	if err != nil {
		return err
	}
	return store.Move(src, dst)
}

// Remove deletes an object.
func (v *VFS) Remove(uri string) error {
	store, err := v.store(uri)
	if err != nil {
		return err
	}
	return store.Remove(uri)
}

// CreateDir creates a directory-like URI on backends that have directories.
func (v *VFS) CreateDir(uri string) error {
	store, err := v.store(uri)
	if err != nil {
		return err
	}
	return store.CreateDir(uri)
}
