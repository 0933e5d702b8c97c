// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/motoi/motoi/internal/linker"
	"github.com/motoi/motoi/pkg/bundle"
	"github.com/motoi/motoi/pkg/signature"
)

// listArchives returns the *.marc files in dir, sorted by file name.
func listArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plug-ins directory: %w", err)
	}

	var archives []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), bundle.Extension) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		// Stat follows symlinks so linked archives are picked up.
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		archives = append(archives, path)
	}
	return archives, nil
}

// discover opens every archive and keeps the ones with a valid manifest.
// Everything else is logged and closed.
func (s *Service) discover(archives []string) []*Info {
	found := make([]*Info, 0, len(archives))
	for _, path := range archives {
		b := bundle.New(path, s.reader)

		sig, err := s.readSignature(b)
		if err != nil {
			if bundle.IsNotFound(err) {
				s.logger.Info("archive has no signature, skipping", "archive", path)
			} else {
				s.logger.Error("failed to load plug-in signature", "archive", path, "error", err)
			}
			if closeErr := b.Close(); closeErr != nil {
				s.logger.Debug("close skipped archive", "archive", path, "error", closeErr)
			}
			continue
		}

		s.logger.Debug("plug-in found", "plugin", sig.String(), "archive", path)
		found = append(found, newInfo(sig, b))
	}
	return found
}

func (s *Service) readSignature(b *bundle.Bundle) (*signature.Signature, error) {
	data, err := b.ReadAll(signature.FileName)
	if err != nil {
		return nil, err
	}
	return signature.ParseBytes(data, b.Name()+bundle.Extension+"!"+signature.FileName)
}

// registerIncludes maps every includes/ entry of the found plug-ins.
func (s *Service) registerIncludes(found []*Info) {
	for _, p := range found {
		entries, err := p.Bundle.WithPrefix(linker.IncludesPrefix)
		if err != nil {
			s.logger.Error("failed to list includes", "plugin", p.ID(), "error", err)
			continue
		}
		for _, entry := range entries {
			s.resolver.AddInclude(p.Bundle, entry)
		}
	}
}
