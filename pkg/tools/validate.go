package tools

// ValidateArguments checks a decoded argument map against the tool's
// parameter list. Unknown keys, missing required parameters, JSON type
// mismatches, and out-of-set enum values are each rejected with a typed
// error naming the offender. Definitions carrying a RawSchema (externally
// discovered tools) skip validation: their arguments pass through as-is.
func ValidateArguments(def *Definition, args map[string]any) error {
	if def.RawSchema != nil {
		return nil
	}

	params := make(map[string]*Parameter, len(def.Parameters))
	for i := range def.Parameters {
		params[def.Parameters[i].Name] = &def.Parameters[i]
	}

	// Reject unknown keys.
	for key := range args {
		if _, ok := params[key]; !ok {
			return &UnexpectedArgumentError{Tool: def.Name, Key: key}
		}
	}

	// Check presence and types of declared parameters.
	for i := range def.Parameters {
		p := &def.Parameters[i]
		val, present := args[p.Name]
		if !present {
			if p.Required {
				return &MissingArgumentError{Tool: def.Name, Param: p.Name}
			}
			continue
		}

		switch p.Type {
		case ParamString:
			if _, ok := val.(string); !ok {
				return &ArgumentTypeError{Tool: def.Name, Param: p.Name, Want: ParamString}
			}

		case ParamNumber:
			// encoding/json decodes all JSON numbers to float64.
			switch val.(type) {
			case float64, int, int64:
			default:
				return &ArgumentTypeError{Tool: def.Name, Param: p.Name, Want: ParamNumber}
			}

		case ParamBoolean:
			if _, ok := val.(bool); !ok {
				return &ArgumentTypeError{Tool: def.Name, Param: p.Name, Want: ParamBoolean}
			}

		case ParamEnum:
			s, ok := val.(string)
			if !ok {
				return &ArgumentTypeError{Tool: def.Name, Param: p.Name, Want: ParamEnum}
			}
			if !containsString(p.Enum, s) {
				return &InvalidEnumValueError{
					Tool: def.Name, Param: p.Name, Value: s, Allowed: p.Enum,
				}
			}

		case ParamObject:
			switch val.(type) {
			case map[string]any, []any:
			default:
				return &ArgumentTypeError{Tool: def.Name, Param: p.Name, Want: ParamObject}
			}
		}
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
