package domain

import "testing"

func TestDependencyCycleExists(t *testing.T) {
	graph := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {},
	}

	tests := []struct {
		name       string
		id         string
		candidates []string
		want       bool
	}{
		{"no cycle", "d", []string{"a"}, false},
		{"direct cycle", "c", []string{"a"}, true},
		{"two-node cycle", "b", []string{"a"}, true},
		{"replaces existing edges", "a", []string{"c"}, false},
		{"empty candidates", "a", nil, false},
		{"unknown dependency target", "a", []string{"zz"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DependencyCycleExists(graph, tt.id, tt.candidates); got != tt.want {
				t.Fatalf("DependencyCycleExists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDependencyCycleExistsTerminatesOnPreexistingCycle(t *testing.T) {
	// Legacy data may already contain cycles outside the edited node.
	graph := map[string][]string{
		"x": {"y"},
		"y": {"x"},
	}
	if DependencyCycleExists(graph, "z", []string{"x"}) != true {
		t.Fatal("expected cycle reachable through pre-existing loop to be reported")
	}
}
