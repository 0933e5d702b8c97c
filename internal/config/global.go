// SPDX-License-Identifier: MPL-2.0

package config

import "sync/atomic"

// configDirOverride replaces ConfigDir's platform lookup when non-empty.
var configDirOverride atomic.Pointer[string]

// SetConfigDirOverride makes ConfigDir return dir until the returned restore
// function is called. Tests use it where HOME cannot be redirected.
func SetConfigDirOverride(dir string) (restore func()) {
	prev := configDirOverride.Swap(&dir)
	return func() { configDirOverride.Store(prev) }
}

func overriddenConfigDir() string {
	if p := configDirOverride.Load(); p != nil {
		return *p
	}
	return ""
}
