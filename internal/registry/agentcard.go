// Package registry is the read-only directory of agent cards the Router
// consults to build its catalog and the process wiring (cmd/orchestrator)
// consults to build agent wrappers. It is loaded once at startup and never mutated during a
// request.
package registry

// Capability is a flag enum advertised by an AgentCard.
type Capability string

const (
	CapabilityPush         Capability = "push"
	CapabilityStreaming    Capability = "streaming"
	CapabilityStateHistory Capability = "state_history"
)

// Skill describes one capability an agent advertises in its catalog entry.
type Skill struct {
	Name        string
	Description string
	Examples    []string
}

// AgentCard is a read-only directory entry.
type AgentCard struct {
	ID           string
	DisplayName  string
	Description  string
	URLOrLocal   string
	Capabilities []Capability
	Skills       []Skill
	Version      string

	// Remote is true when URLOrLocal identifies a network endpoint rather
	// than a local in-process handler; cmd/orchestrator's wrapper resolver
	// builds remote wrappers only for cards with Remote set.
	Remote bool

	// AuthHeaders are static headers (e.g. Authorization, X-API-Key)
	// injected into every remote delivery call for this card via
	// observability.WithHeaders. Ignored for local cards.
	AuthHeaders map[string]string
}

// HasCapability reports whether the card advertises cap.
func (c AgentCard) HasCapability(cap Capability) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}
