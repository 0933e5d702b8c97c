// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the motoi command-line interface.
//
// Every command builds a short-lived session: configuration is loaded, a
// logger is derived from it, and a plug-in service with its host and
// extension registry is created for the working directory. Output goes to
// the App's writers so commands can be exercised in-process.
package cmd
