// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown issue
// pages that the CLI renders with glamour when a known problem occurs, such
// as a missing plug-ins directory or a failed activation.
package issue
