// SPDX-License-Identifier: MPL-2.0

// Package plugin discovers plug-in archives, resolves their dependencies and
// activates them.
//
// A Service scans <base>/plug-ins for *.marc archives. Every archive with a
// signature.mf manifest becomes a plug-in in state Found. Plug-ins whose
// declared dependencies are all present among the found plug-ins move to
// Provided, and ActivatePlugin moves a provided plug-in to Activated after
// its activator ran. One broken archive, manifest or activator never stops
// the others.
//
// While started, the service is installed as module fallback on its
// linker.Host so that code loaded from one plug-in can reach modules shipped
// by another. Activator types are looked up in the plug-in's own module only.
package plugin
