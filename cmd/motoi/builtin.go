// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/motoi/motoi/internal/linker"
	"github.com/motoi/motoi/pkg/activator"
)

// BuiltinModule is the module name the binary's own activators are
// registered under. Plug-ins reference them by full type name, for example
// activator=motoi.Log.
const BuiltinModule = "motoi"

// builtins are the activators every motoi binary provides.
var builtins = map[string]activator.Factory{
	"motoi.Log": func() (activator.Activator, error) {
		return activator.Func(func(ctx *activator.Context) error {
			ctx.Logger.Info("activated",
				"name", ctx.Plugin.Name,
				"version", ctx.Plugin.Version,
				"vendor", ctx.Plugin.Vendor,
			)
			return nil
		}), nil
	},
}

func registerBuiltins(types *activator.Registry) {
	for name, f := range builtins {
		if err := types.Register(BuiltinModule, name, f); err != nil && !errors.Is(err, activator.ErrDuplicate) {
			panic(fmt.Sprintf("register builtin activator %s: %v", name, err))
		}
	}
}

// builtinTypes is a host type fallback answering for the builtin module. Only
// names qualified with BuiltinModule resolve; a plug-in never reaches types
// registered for another module through it.
func builtinTypes(types *activator.Registry) linker.TypeResolveFunc {
	return func(typeName string) (activator.Factory, bool) {
		if !strings.HasPrefix(typeName, BuiltinModule+".") {
			return nil, false
		}
		return types.Lookup(BuiltinModule, typeName)
	}
}
