package container

// DependencyGraph is the static class-to-class graph of constructor
// declarations. Validate uses it to report cycles before anything is built.
type DependencyGraph struct {
	nodes map[Key][]Key
	order []Key // registration order
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[Key][]Key)}
}

// AddNode adds key with its class dependencies. Nodes without dependencies
// keep their registration order in TopologicalSort.
func (g *DependencyGraph) AddNode(key Key, deps []Key) {
	if _, exists := g.nodes[key]; !exists {
		g.order = append(g.order, key)
	}
	g.nodes[key] = deps
}

// TopologicalSort returns keys with every dependency before its dependents.
// Dependencies that are not nodes of the graph are skipped. A cycle yields a
// *CircularDependencyError naming it in order.
func (g *DependencyGraph) TopologicalSort() ([]Key, error) {
	visited := make(map[Key]bool, len(g.nodes))
	result := make([]Key, 0, len(g.nodes))
	var stack []Key

	var visit func(k Key) error
	visit = func(k Key) error {
		if visited[k] {
			return nil
		}
		for i, s := range stack {
			if s == k {
				cycle := append(append([]Key{}, stack[i:]...), k)
				return &CircularDependencyError{Cycle: cycle}
			}
		}
		deps, ok := g.nodes[k]
		if !ok {
			return nil
		}

		stack = append(stack, k)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]

		visited[k] = true
		result = append(result, k)
		return nil
	}

	for _, k := range g.order {
		if err := visit(k); err != nil {
			return nil, err
		}
	}
	return result, nil
}
