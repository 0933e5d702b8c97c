// SPDX-License-Identifier: MPL-2.0

// Package bundle gives read access to packaged plug-in archives.
//
// A plug-in archive is a zip file with the ".marc" extension. It carries a
// signature.mf manifest at its root, an optional includes/ tree of module
// payloads shared with other plug-ins, and a primary module payload named
// after the archive:
//
//	org.motoi.core.marc
//	├── signature.mf
//	├── extensions.toml
//	├── org.motoi.core.mmod
//	└── includes/
//	    └── json.mmod
//
// A Bundle never touches the file system itself. Every read goes through a
// Reader, which lets callers swap the zip implementation for an
// instrumented one.
package bundle
