package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// posixStore serves file:// URIs and scheme-less paths.
type posixStore struct{}

func (s *posixStore) Scheme() string { return "file" }

func posixPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func (s *posixStore) Stat(uri string) (FileInfo, error) {
	path := posixPath(uri)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return FileInfo{}, err
	}
	return FileInfo{URI: uri, Size: info.Size(), IsDir: info.IsDir()}, nil
}

func (s *posixStore) List(uri string) ([]FileInfo, error) {
	path := posixPath(uri)
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, FileInfo{
			URI:   filepath.Join(path, entry.Name()),
			Size:  info.Size(),
			IsDir: entry.IsDir(),
		})
	}
	return infos, nil
}

func (s *posixStore) Read(uri string, offset int64, buf []byte) error {
	f, err := os.Open(posixPath(uri))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (s *posixStore) OpenReaderAt(uri string) (ReaderAtCloser, int64, error) {
	path := posixPath(uri)
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func (s *posixStore) Write(uri string, data []byte) error {
	path := posixPath(uri)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *posixStore) Move(src, dst string) error {
	return os.Rename(posixPath(src), posixPath(dst))
}

func (s *posixStore) Remove(uri string) error {
	return os.RemoveAll(posixPath(uri))
}

func (s *posixStore) CreateDir(uri string) error {
	return os.MkdirAll(posixPath(uri), 0o755)
}
