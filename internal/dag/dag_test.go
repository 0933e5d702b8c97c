// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	order, err := New().TopologicalSort()
	if err != nil || order != nil {
		t.Fatalf("TopologicalSort() = %v, %v; want nil, nil", order, err)
	}
}

func TestTopologicalSort_Chain(t *testing.T) {
	t.Parallel()
	g := New()
	// ui depends on core, core depends on runtime.
	g.AddNode("ui")
	g.AddEdge("core", "ui")
	g.AddEdge("runtime", "core")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"runtime", "core", "ui"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestTopologicalSort_PeersKeepInsertionOrder(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"c", "a", "b"} {
		g.AddNode(n)
	}
	g.AddEdge("core", "b")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"c", "a", "core", "b"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "left")
	g.AddEdge("base", "right")
	g.AddEdge("left", "top")
	g.AddEdge("right", "top")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order[0] != "base" || order[len(order)-1] != "top" || len(order) != 4 {
		t.Errorf("order = %v", order)
	}
}

func TestTopologicalSort_DuplicateEdges(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"a", "b"}) {
		t.Errorf("order = %v, want [a b]", order)
	}
}

func TestTopologicalSort_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		want  []string
	}{
		{
			name:  "self loop",
			edges: [][2]string{{"a", "a"}},
			want:  []string{"a", "a"},
		},
		{
			name:  "pair",
			edges: [][2]string{{"a", "b"}, {"b", "a"}},
			want:  []string{"a", "b", "a"},
		},
		{
			name:  "triangle with downstream node",
			edges: [][2]string{{"x", "a"}, {"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "d"}},
			want:  []string{"a", "b", "c", "a"},
		},
		{
			name:  "downstream node inserted first",
			edges: [][2]string{{"d", "e"}, {"b", "d"}, {"a", "b"}, {"b", "a"}},
			want:  []string{"b", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}

			_, err := g.TopologicalSort()
			if !errors.Is(err, ErrCycle) {
				t.Fatalf("error = %v, want ErrCycle", err)
			}
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CycleError, got %T", err)
			}
			if !slices.Equal(cycleErr.Cycle, tt.want) {
				t.Errorf("Cycle = %v, want %v", cycleErr.Cycle, tt.want)
			}
		})
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"a", "b", "a"}}
	if got, want := err.Error(), "dependency cycle detected: a -> b -> a"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
