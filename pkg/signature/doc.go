// SPDX-License-Identifier: MPL-2.0

// Package signature parses signature.mf, the key=value manifest at the root
// of every plug-in archive.
//
//	# core plug-in
//	name=Motoi Core
//	symbolicName=org.motoi.core
//	version=1.4.0
//	vendor=Motoi
//	activator=core/Activator
//	dependencies=org.motoi.runtime, org.motoi.log
//	dependencies=org.motoi.ui
//
// Keys are matched case-insensitively. dependencies may repeat and each value
// may hold a comma-separated list.
package signature
