package domain

// DependencyCycleExists reports whether assigning candidate dependencies to
// the given deliverable would close a cycle in the project dependency graph.
// The graph maps deliverable id to its current dependency ids; the candidate
// set replaces the entry for deliverableID before the walk. Detection is a
// depth-first search with a visiting set, so arbitrary existing graphs
// (including already-cyclic ones) terminate.
func DependencyCycleExists(graph map[string][]string, deliverableID string, candidates []string) bool {
	next := make(map[string][]string, len(graph)+1)
	for id, deps := range graph {
		next[id] = deps
	}
	next[deliverableID] = candidates

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(next))

	var walk func(id string) bool
	walk = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, dep := range next[id] {
			if walk(dep) {
				return true
			}
		}
		state[id] = done
		return false
	}

	return walk(deliverableID)
}
