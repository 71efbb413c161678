package cmd

import (
	"testing"

	"github.com/unkn0wn-root/ownercache"
)

func TestRunScenario(t *testing.T) {
	steps, err := runScenario(ownercache.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	want := []step{
		{"get", 10, 1},
		{"get", 10, 1},
		{"put 99, get", 99, 1},
		{"remove, get", 10, 2},
	}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v", steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("step %d = %+v want %+v", i, steps[i], want[i])
		}
	}
}
