// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by package tests: environment
// and working directory management that restores state on cleanup, and
// builders for plug-in archive fixtures.
package testutil
