package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of the YAML agent-card seed, grounded on
// the teacher's config-driven specialist seeding
// (internal/specialists.ReplaceFromConfigs), adapted from "specialist
// config with provider bindings" to "read-only catalog metadata" per
// spec.md §3/§4.3.
type seedFile struct {
	Agents []seedAgent `yaml:"agents"`
}

type seedAgent struct {
	ID           string            `yaml:"id"`
	DisplayName  string            `yaml:"display_name"`
	Description  string            `yaml:"description"`
	URLOrLocal   string            `yaml:"url_or_local"`
	Remote       bool              `yaml:"remote"`
	Version      string            `yaml:"version"`
	Capabilities []string          `yaml:"capabilities"`
	Skills       []seedSkill       `yaml:"skills"`
	AuthHeaders  map[string]string `yaml:"auth_headers"`
}

type seedSkill struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"examples"`
}

// Load reads path and returns a populated Registry. Agents are added in the
// order they appear in the file, which becomes the registry's iteration
// order for catalog rendering (spec.md §4.3 step 2).
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent seed %s: %w", path, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse agent seed %s: %w", path, err)
	}

	reg := New()
	for _, sa := range seed.Agents {
		card := AgentCard{
			ID:          sa.ID,
			DisplayName: sa.DisplayName,
			Description: sa.Description,
			URLOrLocal:  sa.URLOrLocal,
			Remote:      sa.Remote,
			Version:     sa.Version,
			AuthHeaders: sa.AuthHeaders,
		}
		for _, c := range sa.Capabilities {
			card.Capabilities = append(card.Capabilities, Capability(c))
		}
		for _, sk := range sa.Skills {
			card.Skills = append(card.Skills, Skill{
				Name:        sk.Name,
				Description: sk.Description,
				Examples:    sk.Examples,
			})
		}
		reg.Add(card)
	}
	return reg, nil
}
