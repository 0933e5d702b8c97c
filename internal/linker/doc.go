// SPDX-License-Identifier: MPL-2.0

// Package linker resolves modules and activator types across plug-in
// boundaries.
//
// Host is the runtime's lookup facility. It consults a static link table
// first and then any fallback resolvers registered by the plug-in service.
// Resolver is the fallback the plug-in service installs: it finds module
// payloads in the includes/ trees and primary modules of provided plug-ins,
// loads each on first use and keeps it for the lifetime of the resolver.
package linker
