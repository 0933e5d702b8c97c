// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"errors"
	"strings"

	"github.com/motoi/motoi/internal/dag"
)

// resolve promotes every found plug-in whose dependencies are all present
// among the found plug-ins, itself included. Only direct presence is
// checked: a dependency on a found plug-in that is itself unsatisfied still
// counts. Provided keeps discovery order.
func (s *Service) resolve(found []*Info) []*Info {
	index := make(map[string]*Info, len(found))
	for _, p := range found {
		k := p.Signature.Key()
		if k == "" {
			continue
		}
		if first, dup := index[k]; dup {
			s.logger.Warn("duplicate symbolic name", "plugin", p.ID(), "archive", p.Bundle.Path(), "first", first.Bundle.Path())
			continue
		}
		index[k] = p
	}

	provided := make([]*Info, 0, len(found))
	for _, p := range found {
		if dep := firstMissing(p, index); dep != "" {
			p.missing = dep
			s.logger.Error("plug-in not provided", "plugin", p.ID(),
				"error", &DependencyError{Plugin: p.ID(), Dependency: dep})
			continue
		}
		p.advance(StateFound, StateProvided)
		provided = append(provided, p)
	}

	if _, err := dependencyOrder(provided); err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			s.logger.Warn("dependency cycle among provided plug-ins", "archives", strings.Join(cycle.Cycle, ", "))
		}
	}
	return provided
}

// firstMissing returns the first declared dependency of p without a match
// in index, or "".
func firstMissing(p *Info, index map[string]*Info) string {
	for _, dep := range p.Signature.Requires() {
		if _, ok := index[strings.ToLower(dep)]; !ok {
			return dep
		}
	}
	return ""
}

// dependencyOrder sorts plug-ins so that every plug-in follows the plug-ins
// it depends on. Peers keep their relative order. Dependencies outside
// plugins and self references are ignored.
func dependencyOrder(plugins []*Info) ([]*Info, error) {
	g := dag.New()
	byID := make(map[string]*Info, len(plugins))
	byKey := make(map[string]string, len(plugins))
	for _, p := range plugins {
		id := nodeID(p)
		g.AddNode(id)
		byID[id] = p
		if k := p.Signature.Key(); k != "" {
			if _, dup := byKey[k]; !dup {
				byKey[k] = id
			}
		}
	}
	for _, p := range plugins {
		id := nodeID(p)
		for _, dep := range p.Signature.Requires() {
			if from, ok := byKey[strings.ToLower(dep)]; ok && from != id {
				g.AddEdge(from, id)
			}
		}
	}

	ids, err := g.TopologicalSort()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			names := make([]string, len(cycle.Cycle))
			for i, id := range cycle.Cycle {
				names[i] = byID[id].Bundle.Name()
			}
			return nil, &dag.CycleError{Cycle: names}
		}
		return nil, err
	}
	out := make([]*Info, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// nodeID is the archive path. Archive names are not unique: x.marc and
// x.MARC share the name x.
func nodeID(p *Info) string {
	return p.Bundle.Path()
}

// ActivationOrder returns the provided plug-ins ordered so that each follows
// its dependencies. It returns a *dag.CycleError when the provided plug-ins
// depend on each other in a cycle.
func (s *Service) ActivationOrder() ([]*Info, error) {
	return dependencyOrder(s.ProvidedPlugins())
}
