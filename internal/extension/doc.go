// SPDX-License-Identifier: MPL-2.0

// Package extension collects the extension points and contributions that
// provided plug-ins declare in an extensions.toml file at their archive root.
package extension
