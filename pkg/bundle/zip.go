// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ZipReader reads plug-in archives with archive/zip. It keeps one open zip
// handle per archive path until Close is called for that bundle.
type ZipReader struct {
	mu      sync.Mutex
	handles map[string]*zip.ReadCloser
}

var _ Reader = (*ZipReader)(nil)

// NewZipReader returns a ZipReader with no open archives.
func NewZipReader() *ZipReader {
	return &ZipReader{handles: make(map[string]*zip.ReadCloser)}
}

func (z *ZipReader) open(b *Bundle) (*zip.ReadCloser, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if rc, ok := z.handles[b.Path()]; ok {
		return rc, nil
	}
	rc, err := zip.OpenReader(b.Path())
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	z.handles[b.Path()] = rc
	return rc, nil
}

// OpenResource implements Reader.
func (z *ZipReader) OpenResource(b *Bundle, name string) (io.ReadCloser, error) {
	rc, err := z.open(b)
	if err != nil {
		return nil, err
	}
	name = strings.TrimPrefix(name, "/")
	for _, f := range rc.File {
		if f.Name == name && !f.FileInfo().IsDir() {
			return f.Open()
		}
	}
	return nil, ErrResourceNotFound
}

// ListResources implements Reader. Directory entries are omitted.
func (z *ZipReader) ListResources(b *Bundle) ([]string, error) {
	rc, err := z.open(b)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

// Close implements Reader. Closing an archive that is not open is a no-op.
func (z *ZipReader) Close(b *Bundle) error {
	z.mu.Lock()
	rc, ok := z.handles[b.Path()]
	delete(z.handles, b.Path())
	z.mu.Unlock()

	if !ok {
		return nil
	}
	return rc.Close()
}

// OpenCount reports the number of archives with an open handle.
func (z *ZipReader) OpenCount() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.handles)
}
