package vfs

import (
	"fmt"
	"net/url"

	"howett.net/ranger"
)

// httpStore serves read-only http:// and https:// URIs through HTTP range
// requests.
type httpStore struct {
	scheme string
}

func (s *httpStore) Scheme() string { return s.scheme }

func (s *httpStore) open(uri string) (*ranger.Reader, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", uri, err)
	}
	reader, err := ranger.NewReader(&ranger.HTTPRanger{URL: parsed})
	if err != nil {
		return nil, fmt.Errorf("creating range reader for %q: %w", uri, err)
	}
	return reader, nil
}

func (s *httpStore) Stat(uri string) (FileInfo, error) {
	reader, err := s.open(uri)
	if err != nil {
		return FileInfo{}, err
	}
	length, err := reader.Length()
	if err != nil {
		return FileInfo{}, fmt.Errorf("fetching content length for %q: %w", uri, err)
	}
	return FileInfo{URI: uri, Size: length}, nil
}

func (s *httpStore) List(uri string) ([]FileInfo, error) {
	return nil, fmt.Errorf("%w: http list", ErrUnsupportedOp)
}

func (s *httpStore) Read(uri string, offset int64, buf []byte) error {
	reader, err := s.open(uri)
	if err != nil {
		return err
	}
	_, err = reader.ReadAt(buf, offset)
	return err
}

func (s *httpStore) OpenReaderAt(uri string) (ReaderAtCloser, int64, error) {
	reader, err := s.open(uri)
	if err != nil {
		return nil, 0, err
	}
	length, err := reader.Length()
	if err != nil {
		return nil, 0, fmt.Errorf("fetching content length for %q: %w", uri, err)
	}
	return nopCloserAt{reader}, length, nil
}

func (s *httpStore) Write(string, []byte) error  { return fmt.Errorf("%w: http write", ErrUnsupportedOp) }
func (s *httpStore) Move(string, string) error   { return fmt.Errorf("%w: http move", ErrUnsupportedOp) }
func (s *httpStore) Remove(string) error         { return fmt.Errorf("%w: http remove", ErrUnsupportedOp) }
func (s *httpStore) CreateDir(string) error      { return fmt.Errorf("%w: http mkdir", ErrUnsupportedOp) }

// nopCloserAt adapts a plain io.ReaderAt.
type nopCloserAt struct {
	r interface {
		ReadAt(p []byte, off int64) (int, error)
	}
}

func (n nopCloserAt) ReadAt(p []byte, off int64) (int, error) { return n.r.ReadAt(p, off) }
func (n nopCloserAt) Close() error                            { return nil }
