package router

import (
	"strings"

	"github.com/seiggy/lucia/internal/registry"
)

// renderCatalog deterministically renders the agent catalog in registry
// iteration order, following the "- {id}: {description}" shape of
// spec.md §4.3 step 2. Generalized from the teacher's
// buildSystemPromptAddendum (internal/specialists/registry.go), which
// renders a flat bullet list, into one that also appends capability tags
// and skill examples per the router's options.
func renderCatalog(cards []registry.AgentCard, opts Options) string {
	if len(cards) == 0 {
		return ""
	}
	var b strings.Builder
	for _, card := range cards {
		desc := strings.TrimSpace(card.Description)
		if desc == "" {
			desc = "no description provided"
		}
		b.WriteString("- ")
		b.WriteString(card.ID)
		b.WriteString(": ")
		b.WriteString(desc)

		if opts.IncludeCapabilities && len(card.Capabilities) > 0 {
			tags := make([]string, 0, len(card.Capabilities))
			for _, c := range card.Capabilities {
				tags = append(tags, string(c))
			}
			b.WriteString(" capabilities: ")
			b.WriteString(strings.Join(tags, ","))
		}
		b.WriteString("\n")

		if opts.IncludeSkillExamples {
			for _, sk := range card.Skills {
				for _, ex := range sk.Examples {
					b.WriteString("  example: ")
					b.WriteString(ex)
					b.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// combinePrompts joins a preamble and a catalog/body section the way the
// teacher's combineSystemPrompts does: trims each side, skips empty
// fragments, and joins non-empty ones with a blank line.
func combinePrompts(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}
