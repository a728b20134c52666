package graph

import (
	"reflect"
	"testing"
)

func TestTopoSort_LinearChain(t *testing.T) {
	g := mustBuild(t, []Task{
		{ID: "c", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "a"},
	})
	o := g.TopoSort()
	if o.HasCycle {
		t.Fatalf("unexpected cycle: %v", o.Cyclic)
	}
	if !reflect.DeepEqual(o.Order, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", o.Order)
	}
}

func TestTopoSort_InputOrderTieBreak(t *testing.T) {
	g := mustBuild(t, []Task{
		{ID: "z"},
		{ID: "y"},
		{ID: "x", DependsOn: []string{"z", "y"}},
	})
	o := g.TopoSort()
	if !reflect.DeepEqual(o.Order, []string{"z", "y", "x"}) {
		t.Errorf("expected input-order sources, got %v", o.Order)
	}
}

func TestTopoSort_CycleRemainderInInputOrder(t *testing.T) {
	// A <-> B, C unrelated
	g := mustBuild(t, []Task{
		{ID: "A", DependsOn: []string{"B"}},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C"},
	})
	o := g.TopoSort()
	if !o.HasCycle {
		t.Fatal("expected cycle")
	}
	if !reflect.DeepEqual(o.Cyclic, []string{"A", "B"}) {
		t.Errorf("expected cyclic [A B], got %v", o.Cyclic)
	}
	if !reflect.DeepEqual(o.Order, []string{"C", "A", "B"}) {
		t.Errorf("expected [C A B], got %v", o.Order)
	}
}

func TestTopoSort_DownstreamOfCycleIsUnsortable(t *testing.T) {
	g := mustBuild(t, []Task{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "d", DependsOn: []string{"b"}},
		{ID: "e"},
	})
	o := g.TopoSort()
	if !reflect.DeepEqual(o.Cyclic, []string{"a", "b", "d"}) {
		t.Errorf("expected cyclic [a b d], got %v", o.Cyclic)
	}
	if len(o.Order) != 4 {
		t.Errorf("every node must appear in the order, got %v", o.Order)
	}
	if !reflect.DeepEqual(o.CycleMembers, []string{"a", "b"}) {
		t.Errorf("expected cycle members [a b], got %v", o.CycleMembers)
	}
}

func TestTopoSort_CycleMembersBetweenCycles(t *testing.T) {
	// a <-> b feeds x, which feeds c <-> d; x is blocked but not on a cycle.
	g := mustBuild(t, []Task{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "x", DependsOn: []string{"b"}},
		{ID: "c", DependsOn: []string{"x", "d"}},
		{ID: "d", DependsOn: []string{"c"}},
	})
	o := g.TopoSort()
	if !reflect.DeepEqual(o.Cyclic, []string{"a", "b", "x", "c", "d"}) {
		t.Errorf("expected all five unsorted, got %v", o.Cyclic)
	}
	if !reflect.DeepEqual(o.CycleMembers, []string{"a", "b", "c", "d"}) {
		t.Errorf("expected cycle members [a b c d], got %v", o.CycleMembers)
	}
}

func TestTopoSort_AcyclicHasNoMembers(t *testing.T) {
	g := mustBuild(t, []Task{{ID: "a"}, {ID: "b", DependsOn: []string{"a"}}})
	if o := g.TopoSort(); o.CycleMembers != nil {
		t.Errorf("expected no cycle members, got %v", o.CycleMembers)
	}
}

func TestTopoSort_Deterministic(t *testing.T) {
	tasks := []Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a"}},
		{ID: "d", DependsOn: []string{"b", "c"}},
	}
	first := mustBuild(t, tasks).TopoSort()
	for i := 0; i < 20; i++ {
		again := mustBuild(t, tasks).TopoSort()
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("ordering changed between runs: %v vs %v", first, again)
		}
	}
}
