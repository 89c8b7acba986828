package registry

import "testing"

func TestRegistry_AddGet(t *testing.T) {
	r := New()
	r.Add(AgentCard{ID: "Light", Description: "controls lights"})

	card, ok := r.Get("light")
	if !ok {
		t.Fatal("Get(light) missing")
	}
	if card.Description != "controls lights" {
		t.Errorf("Description = %q", card.Description)
	}
	if !r.Has("LIGHT") {
		t.Error("Has should be case-insensitive")
	}
}

func TestRegistry_List_PreservesOrder(t *testing.T) {
	r := New()
	r.Add(AgentCard{ID: "c"})
	r.Add(AgentCard{ID: "a"})
	r.Add(AgentCard{ID: "b"})

	got := r.List()
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("len(List()) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].ID != w {
			t.Errorf("List()[%d].ID = %q, want %q", i, got[i].ID, w)
		}
	}
}

func TestRegistry_Add_DuplicateOverwritesInPlace(t *testing.T) {
	r := New()
	r.Add(AgentCard{ID: "a", Description: "first"})
	r.Add(AgentCard{ID: "b"})
	r.Add(AgentCard{ID: "a", Description: "second"})

	got := r.List()
	if len(got) != 2 {
		t.Fatalf("len(List()) = %d, want 2 (duplicate should overwrite, not append)", len(got))
	}
	if got[0].ID != "a" || got[0].Description != "second" {
		t.Errorf("got[0] = %+v", got[0])
	}
}

func TestAgentCard_HasCapability(t *testing.T) {
	card := AgentCard{Capabilities: []Capability{CapabilityPush, CapabilityStreaming}}
	if !card.HasCapability(CapabilityPush) {
		t.Error("expected push capability")
	}
	if card.HasCapability(CapabilityStateHistory) {
		t.Error("unexpected state_history capability")
	}
}

func TestRegistry_Empty(t *testing.T) {
	r := New()
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, ok := r.Get("anything"); ok {
		t.Error("Get on empty registry should miss")
	}
}
