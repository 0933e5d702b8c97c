// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	PluginsDirNotFoundId Id = iota + 1
	ManifestInvalidId
	DependenciesNotSatisfiedId
	ActivationFailedId
	DependencyCycleId
	ModuleNotFoundId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with the glamour style at stylePath ("dark",
// "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	pluginsDirNotFoundIssue = &Issue{
		id: PluginsDirNotFoundId,
		mdMsg: `
# No plug-ins directory!

Motoi looks for plug-in archives in a ` + "`plug-ins`" + ` directory below the
current working directory, and there is none here.

## Things you can try:
- Run motoi from the directory that contains ` + "`plug-ins/`" + `:
~~~
$ cd /path/to/installation
$ motoi plugins
~~~

- Create the directory and drop your archives into it:
~~~
$ mkdir plug-ins
$ cp ~/Downloads/org.example.tools_1.0.0.marc plug-ins/
~~~`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Plug-in manifest is invalid!

A plug-in archive contains a ` + "`signature.mf`" + ` that could not be parsed.
The archive was skipped; every other plug-in was still loaded.

## Manifest format:
~~~
# comments start with # or ;
name=Example Tools
symbolicName=org.example.tools
version=1.0.0
vendor=Example Inc.
activator=org.example.tools.Activator
dependencies=org.motoi.core,org.motoi.ui
~~~

## Things you can try:
- Make sure every line is ` + "`key=value`" + `
- Symbolic names start with a letter or underscore and contain only letters,
  digits, dots, dashes and underscores
- Run ` + "`motoi plugins -v`" + ` to see the exact file and line`,
	}

	dependenciesNotSatisfiedIssue = &Issue{
		id: DependenciesNotSatisfiedId,
		mdMsg: `
# Dependencies not satisfied!

Some plug-ins declare dependencies that no archive in ` + "`plug-ins/`" + `
provides. They were found but will not be activated.

## Things you can try:
- Run ` + "`motoi plugins`" + ` to see which dependency each plug-in is missing
- Install the archive that provides the missing symbolic name
- Check the spelling of the ` + "`dependencies`" + ` entry; names are matched
  without regard to case`,
	}

	activationFailedIssue = &Issue{
		id: ActivationFailedId,
		mdMsg: `
# Plug-in activation failed!

The activator of a plug-in returned an error or panicked. The plug-in stays
provided and other plug-ins were not affected.

## Things you can try:
- Run with ` + "`--verbose`" + ` to see the activator's log output
- Skip the plug-in while you investigate:
~~~cue
activation: {
	skip: ["org.example.broken"]
}
~~~

- Check that the activator type named in ` + "`signature.mf`" + ` is compiled
  into this motoi binary`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Some provided plug-ins depend on each other in a cycle, so there is no order
in which each one starts after its dependencies. Motoi activates them in
discovery order instead.

## Things you can try:
- Remove one of the dependencies that closes the cycle
- Move the shared code into a separate plug-in both can depend on`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

No provided plug-in ships a module with this name.

## Where modules are looked up:
1. Modules linked into the motoi binary
2. ` + "`includes/<name>.mmod`" + ` entries of every found plug-in
3. ` + "`<archive-name>.mmod`" + ` at the root of the provided plug-in named like the module

## Things you can try:
- Run ` + "`motoi plugins`" + ` and make sure the owning plug-in is provided
- Check the module name; a trailing ` + "`.mmod`" + ` and anything after a comma
  are ignored`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be loaded.

## Things you can try:
- Show the file in use and the effective settings:
~~~
$ motoi config path
$ motoi config show
~~~

- Write a fresh default file:
~~~
$ motoi config init
~~~

- Check ` + "`MOTOI_*`" + ` environment variables for invalid values`,
	}

	issues = map[Id]*Issue{
		pluginsDirNotFoundIssue.Id():       pluginsDirNotFoundIssue,
		manifestInvalidIssue.Id():          manifestInvalidIssue,
		dependenciesNotSatisfiedIssue.Id(): dependenciesNotSatisfiedIssue,
		activationFailedIssue.Id():         activationFailedIssue,
		dependencyCycleIssue.Id():          dependencyCycleIssue,
		moduleNotFoundIssue.Id():           moduleNotFoundIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
