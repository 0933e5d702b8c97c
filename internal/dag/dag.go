// SPDX-License-Identifier: MPL-2.0

// Package dag orders plug-ins by their dependencies. Nodes are plug-in
// identifiers and an edge from A to B means A must be activated before B.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is the sentinel wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError reports a dependency cycle.
	CycleError struct {
		// Cycle lists one closed path through the cycle, starting and ending
		// with the same node.
		Cycle []string
	}

	// Graph is a directed graph with deterministic iteration order.
	Graph struct {
		adjacency map[string][]string
		nodes     []string
		nodeSet   map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from must come before to, adding both nodes when
// needed. Repeated edges are stored once.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns the nodes in dependency order using Kahn's
// algorithm. Nodes that become ready together keep insertion order. A
// cyclic graph yields a *CycleError naming one of the cycles.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, &CycleError{Cycle: g.findCycle(inDegree)}
	}
	return result, nil
}

// findCycle returns one closed path through the nodes Kahn's algorithm
// could not place. Each of them keeps an unplaced predecessor, so walking
// predecessors must eventually revisit a node.
func (g *Graph) findCycle(inDegree map[string]int) []string {
	preds := make(map[string][]string)
	var start string
	for _, from := range g.nodes {
		if inDegree[from] == 0 {
			continue
		}
		if start == "" {
			start = from
		}
		for _, to := range g.adjacency[from] {
			if inDegree[to] > 0 {
				preds[to] = append(preds[to], from)
			}
		}
	}

	seen := make(map[string]int)
	var path []string
	node := start
	for {
		if i, ok := seen[node]; ok {
			cycle := append(path[i:], node)
			slices.Reverse(cycle)
			return cycle
		}
		seen[node] = len(path)
		path = append(path, node)
		if len(preds[node]) == 0 {
			return path
		}
		node = preds[node][0]
	}
}
