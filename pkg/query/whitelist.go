package query

// EntityRules bounds what a request may reference for one entity.
type EntityRules struct {
	// Table is the backing table or collection name in the data source.
	Table string

	// KeyField is the field used for point lookups.
	KeyField string

	// TimeField orders records sharing a key; the latest wins on point
	// lookups.
	TimeField string

	// Fields enumerates the fields filters and group-bys may reference.
	Fields []string

	// NumericFields enumerates the fields aggregates other than count
	// may target. Must be a subset of Fields.
	NumericFields []string
}

// HasField reports whether the entity whitelists the field.
func (r EntityRules) HasField(field string) bool {
	for _, f := range r.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// HasNumericField reports whether the field is whitelisted as numeric.
func (r EntityRules) HasNumericField(field string) bool {
	for _, f := range r.NumericFields {
		if f == field {
			return true
		}
	}
	return false
}

// Whitelist is the static configuration bounding the engine's surface.
// It is loaded once at startup; a malformed whitelist is a fatal
// configuration error, never a runtime fault.
type Whitelist struct {
	// Entities maps entity name to its rules.
	Entities map[string]EntityRules

	// Operators enumerates the allowed comparison operators.
	Operators []Op

	// MaxRows caps result row counts; requested limits are clamped.
	MaxRows int

	// MaxInValues caps the value list length of an `in` clause.
	MaxInValues int

	// MaxGroups caps the cardinality of a grouped aggregate result.
	MaxGroups int
}

// AllowsOp reports whether the operator is whitelisted.
func (w *Whitelist) AllowsOp(op Op) bool {
	for _, o := range w.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Rules returns the rules for an entity, with ok=false for entities
// outside the enumerated set.
func (w *Whitelist) Rules(entity string) (EntityRules, bool) {
	r, ok := w.Entities[entity]
	return r, ok
}

// DefaultWhitelist returns the built-in whitelist for the workforce
// entities. Deployments override it via configuration.
func DefaultWhitelist() Whitelist {
	return Whitelist{
		Entities: map[string]EntityRules{
			"employee": {
				Table:     "employees",
				KeyField:  "hr_code",
				TimeField: "recorded_at",
				Fields: []string{
					"hr_code", "name", "department", "role",
					"cost", "performance", "months_of_service",
					"recorded_at",
				},
				NumericFields: []string{"cost", "performance", "months_of_service"},
			},
			"dataset": {
				Table:     "datasets",
				KeyField:  "name",
				TimeField: "uploaded_at",
				Fields: []string{
					"name", "row_count", "uploaded_at",
				},
				NumericFields: []string{"row_count"},
			},
		},
		Operators:   AllOps,
		MaxRows:     100,
		MaxInValues: 25,
		MaxGroups:   50,
	}
}
