package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tally-ai/tally/pkg/tools"
)

// NativeTools converts registered definitions into the wire shape carried
// verbatim in a native-calling request.
func NativeTools(defs []*tools.Definition) []ToolSpec {
	specs := make([]ToolSpec, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, ToolSpec{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema(),
		})
	}
	return specs
}

// SimulationPrompt renders the tool catalog as instruction text for
// providers without native function calling. The model is told to answer
// directly, or to emit a single JSON block of the same {id, name,
// arguments} shape that native providers produce structurally. Entries
// are grouped by category, in registration order within each group.
func SimulationPrompt(entries []tools.CatalogEntry) string {
	var b strings.Builder

	b.WriteString("You can call the following tools to look up data before answering.\n\n")

	for _, group := range groupByCategory(entries) {
		if group.category != "" {
			fmt.Fprintf(&b, "## %s\n\n", group.category)
		}
		for _, entry := range group.entries {
			fmt.Fprintf(&b, "### %s\n%s\n", entry.Name, entry.Description)
			if len(entry.Parameters) > 0 {
				b.WriteString("Parameters:\n")
				for _, p := range entry.Parameters {
					b.WriteString(renderParameter(p))
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("To call tools, reply with exactly one JSON block of this shape " +
		"and nothing else after it:\n\n" +
		`{"tool_calls": [{"id": "1", "name": "<tool name>", "arguments": {<parameter>: <value>}}]}` +
		"\n\nTo give your final answer, reply with plain text and no JSON block.\n")

	return b.String()
}

func renderParameter(p tools.CatalogParameter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s (%s", p.Name, p.Type)
	if p.Required {
		b.WriteString(", required")
	}
	b.WriteString(")")
	if len(p.Enum) > 0 {
		data, _ := json.Marshal(p.Enum)
		fmt.Fprintf(&b, " one of %s", data)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, ": %s", p.Description)
	}
	b.WriteString("\n")
	return b.String()
}

type categoryGroup struct {
	category string
	entries  []tools.CatalogEntry
}

// groupByCategory buckets entries by category, preserving first-seen
// category order and registration order within each bucket.
func groupByCategory(entries []tools.CatalogEntry) []categoryGroup {
	var groups []categoryGroup
	index := make(map[string]int)

	for _, entry := range entries {
		i, ok := index[entry.Category]
		if !ok {
			i = len(groups)
			index[entry.Category] = i
			groups = append(groups, categoryGroup{category: entry.Category})
		}
		groups[i].entries = append(groups[i].entries, entry)
	}
	return groups
}
