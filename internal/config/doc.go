// SPDX-License-Identifier: MPL-2.0

// Package config loads the motoi configuration using Viper with CUE as the
// file format.
//
// The file lives at config.cue inside ConfigDir: $XDG_CONFIG_HOME/motoi on
// Linux, ~/Library/Application Support/motoi on macOS and %APPDATA%\motoi on
// Windows. A config.cue in the working directory is used when the user file
// is missing. Every key can be overridden from the environment with the
// MOTOI_ prefix, dots replaced by underscores (MOTOI_LOG_LEVEL=debug).
//
// The plug-ins directory is not configurable; it is always plug-ins/ below
// the working directory.
package config
