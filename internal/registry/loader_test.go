package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSeed = `
agents:
  - id: light
    display_name: Light Control
    description: controls household lights
    url_or_local: local
    capabilities: [push]
    skills:
      - name: turn_on
        description: turn on a light
        examples:
          - "turn on the hallway lights"
  - id: music
    display_name: Music
    description: plays music
    url_or_local: "https://music.example.com/a2a"
    remote: true
    auth_headers:
      Authorization: Bearer test-token
    skills: []
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")
	if err := os.WriteFile(path, []byte(sampleSeed), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}

	light, ok := reg.Get("light")
	if !ok {
		t.Fatal("missing light card")
	}
	if light.DisplayName != "Light Control" {
		t.Errorf("DisplayName = %q", light.DisplayName)
	}
	if len(light.Skills) != 1 || light.Skills[0].Name != "turn_on" {
		t.Errorf("Skills = %+v", light.Skills)
	}
	if !light.HasCapability(CapabilityPush) {
		t.Error("expected push capability")
	}

	music, ok := reg.Get("music")
	if !ok {
		t.Fatal("missing music card")
	}
	if !music.Remote {
		t.Error("music card should be remote")
	}

	// registration order preserved for deterministic catalog rendering
	ids := make([]string, 0, 2)
	for _, c := range reg.List() {
		ids = append(ids, c.ID)
	}
	if ids[0] != "light" || ids[1] != "music" {
		t.Errorf("List order = %v, want [light music]", ids)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/no/such/path/agents.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
