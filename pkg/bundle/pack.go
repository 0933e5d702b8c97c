// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Pack writes every regular file under dir into a new zip archive at out,
// with entry names relative to dir. Symlinks and other special files are
// skipped. A partially written archive is removed on failure.
func Pack(dir, out string) (err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve source directory: %w", err)
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	f, err := os.Create(absOut)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(absOut)
		}
	}()

	zw := zip.NewWriter(f)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == absOut || !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(absDir, path)
		if relErr != nil {
			return fmt.Errorf("relative path for %s: %w", path, relErr)
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return fmt.Errorf("stat %s: %w", path, infoErr)
		}
		header, headerErr := zip.FileInfoHeader(info)
		if headerErr != nil {
			return fmt.Errorf("header for %s: %w", path, headerErr)
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, createErr := zw.CreateHeader(header)
		if createErr != nil {
			return fmt.Errorf("create entry %s: %w", header.Name, createErr)
		}
		return copyFile(w, path)
	})
	if walkErr != nil {
		return fmt.Errorf("pack %s: %w", dir, walkErr)
	}
	return nil
}

func copyFile(w io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck // read-only
	_, err = io.Copy(w, src)
	return err
}
