// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"errors"
	"strings"

	"github.com/opencontainers/go-digest"
)

// ModuleExtension is the file extension of module payloads.
const ModuleExtension = ".mmod"

// ErrEmptyPayload is returned by PayloadLoader for zero-length payloads.
var ErrEmptyPayload = errors.New("empty module payload")

type (
	// Module is a loaded module payload.
	Module struct {
		Name string
		// Origin is "<archive>!<entry>" for payloads read from a plug-in
		// archive and "static" for linked modules.
		Origin string
		Digest digest.Digest
		Data   []byte
	}

	// Loader turns a fully buffered payload into a Module. A Loader used by
	// a Resolver may resolve other modules, but it must not resolve, directly
	// or through another load, a name whose load is still in progress: the
	// nested call waits for the outer load and never returns.
	Loader interface {
		Load(name, origin string, payload []byte) (*Module, error)
	}

	// LoaderFunc adapts a function to Loader.
	LoaderFunc func(name, origin string, payload []byte) (*Module, error)

	// PayloadLoader is the default Loader. It keeps the payload as is and
	// records its SHA-256 digest.
	PayloadLoader struct{}
)

// Load implements Loader.
func (f LoaderFunc) Load(name, origin string, payload []byte) (*Module, error) {
	return f(name, origin, payload)
}

// Load implements Loader.
func (PayloadLoader) Load(name, origin string, payload []byte) (*Module, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	return &Module{
		Name:   name,
		Origin: origin,
		Digest: digest.FromBytes(payload),
		Data:   payload,
	}, nil
}

// Normalize reduces a module reference to its bare name: anything after the
// first comma is dropped, surrounding space is trimmed, and a trailing
// ModuleExtension is removed.
//
//	Normalize("json.mmod, version=2") == "json"
func Normalize(name string) string {
	name, _, _ = strings.Cut(name, ",")
	name = strings.TrimSpace(name)
	if len(name) > len(ModuleExtension) && strings.EqualFold(name[len(name)-len(ModuleExtension):], ModuleExtension) {
		name = name[:len(name)-len(ModuleExtension)]
	}
	return name
}

// key is the case-folded cache key of a normalized module name.
func key(name string) string {
	return strings.ToLower(Normalize(name))
}

// static builds a Module linked into the binary.
func static(name string, payload []byte) *Module {
	return &Module{
		Name:   Normalize(name),
		Origin: "static",
		Digest: digest.FromBytes(payload),
		Data:   payload,
	}
}
