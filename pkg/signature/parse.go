// SPDX-License-Identifier: MPL-2.0

package signature

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/motoi/motoi/pkg/cueutil"
)

const (
	keyName         = "name"
	keySymbolicName = "symbolicname"
	keyVersion      = "version"
	keyVendor       = "vendor"
	keyActivator    = "activator"
	keyDependencies = "dependencies"
)

var (
	//go:embed signature_schema.cue
	schema []byte

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	errMissingSeparator = errors.New("expected key=value")
	errEmptyKey         = errors.New("empty key")
)

// document mirrors #Signature in signature_schema.cue.
type document struct {
	Name         string            `json:"name,omitempty"`
	SymbolicName string            `json:"symbolicName,omitempty"`
	Version      string            `json:"version,omitempty"`
	Vendor       string            `json:"vendor,omitempty"`
	Activator    string            `json:"activator,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Parse reads a manifest from r. file names the source in errors.
func Parse(r io.Reader, file string) (*Signature, error) {
	data, err := io.ReadAll(io.LimitReader(r, cueutil.DefaultMaxFileSize+1))
	if err != nil {
		return nil, &ParseError{File: file, Err: err}
	}
	return ParseBytes(data, file)
}

// ParseBytes parses manifest content and validates it against the
// signature schema.
func ParseBytes(data []byte, file string) (*Signature, error) {
	if file == "" {
		file = FileName
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, file); err != nil {
		return nil, &ParseError{File: file, Err: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	sig := &Signature{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), int(cueutil.DefaultMaxFileSize))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' || text[0] == ';' {
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, &ParseError{File: file, Line: line, Err: fmt.Errorf("%w: %q", errMissingSeparator, text)}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" {
			return nil, &ParseError{File: file, Line: line, Err: errEmptyKey}
		}
		sig.set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{File: file, Err: err}
	}

	if err := validate(sig, file); err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *Signature) set(key, value string) {
	switch key {
	case keyName:
		s.Name = value
	case keySymbolicName:
		s.SymbolicName = value
	case keyVersion:
		s.Version = Version(value)
	case keyVendor:
		s.Vendor = value
	case keyActivator:
		s.Activator = value
	case keyDependencies:
		for _, dep := range strings.Split(value, ",") {
			s.Dependencies = append(s.Dependencies, strings.TrimSpace(dep))
		}
	default:
		if s.Attributes == nil {
			s.Attributes = make(map[string]string)
		}
		s.Attributes[key] = value
	}
}

func validate(sig *Signature, file string) error {
	doc, err := json.Marshal(document{
		Name:         sig.Name,
		SymbolicName: sig.SymbolicName,
		Version:      string(sig.Version),
		Vendor:       sig.Vendor,
		Activator:    sig.Activator,
		Dependencies: sig.Dependencies,
		Attributes:   sig.Attributes,
	})
	if err != nil {
		return &ParseError{File: file, Err: err}
	}
	if _, err := cueutil.ParseAndDecode[document](schema, doc, "#Signature", cueutil.WithFilename(file)); err != nil {
		return &ParseError{File: file, Err: err}
	}
	return nil
}
