package tools

import "encoding/json"

// CatalogParameter is the interchange shape of one parameter in the
// rendered tool catalog.
type CatalogParameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description,omitempty"`
}

// CatalogEntry is the interchange shape of one tool in the rendered
// catalog, suitable for embedding in a prompt or a native-calling
// request payload.
type CatalogEntry struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Category    string             `json:"category,omitempty"`
	Parameters  []CatalogParameter `json:"parameters"`
}

// Catalog renders the registry as an ordered list of catalog entries.
// Ordering follows registration order, so the rendering is stable across
// turns and conversations.
func Catalog(reg *Registry) []CatalogEntry {
	defs := reg.List()
	entries := make([]CatalogEntry, 0, len(defs))
	for _, d := range defs {
		entry := CatalogEntry{
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			Parameters:  make([]CatalogParameter, 0, len(d.Parameters)),
		}
		for _, p := range d.Parameters {
			entry.Parameters = append(entry.Parameters, CatalogParameter{
				Name:        p.Name,
				Type:        string(p.Type),
				Required:    p.Required,
				Enum:        p.Enum,
				Description: p.Description,
			})
		}
		entries = append(entries, entry)
	}
	return entries
}

// jsonSchemaProperty is a minimal JSON Schema property node.
type jsonSchemaProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Schema returns the JSON Schema for the definition's arguments, as
// expected by native function-calling providers. A RawSchema, when
// present, wins over the parameter-derived schema.
func (d *Definition) Schema() json.RawMessage {
	if d.RawSchema != nil {
		return d.RawSchema
	}

	properties := make(map[string]jsonSchemaProperty, len(d.Parameters))
	var required []string
	for _, p := range d.Parameters {
		prop := jsonSchemaProperty{Description: p.Description}
		switch p.Type {
		case ParamEnum:
			prop.Type = "string"
			prop.Enum = p.Enum
		default:
			prop.Type = string(p.Type)
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, err := json.Marshal(schema)
	if err != nil {
		// The schema is built from plain maps and strings; marshaling
		// cannot fail outside of a programming error.
		panic("tools: marshaling parameter schema: " + err.Error())
	}
	return data
}
