// Package customfield binds submitted custom field values to the field
// definitions of an activity type, ticket type or space template.
package customfield

import (
	"encoding/json"
	"errors"
	"strings"

	"institution-manager/services/fieldtype"
	"institution-manager/types"

	"gorm.io/datatypes"
)

// Definition is one declared field of an owning type.
type Definition struct {
	ID      uint
	Name    string
	Kind    fieldtype.Kind
	Options []string
}

// Submission references a field by id or by name. The id wins when both are given.
type Submission struct {
	FieldID *uint           `json:"field_id"`
	Name    string          `json:"name"`
	Value   json.RawMessage `json:"value"`
}

// Value is a normalized value ready to be stored against FieldID.
type Value struct {
	FieldID uint    `json:"field_id"`
	Value   *string `json:"value"`
}

// Bind resolves every submission against defs, which the caller loads once,
// and normalizes its value. Any failure rejects the whole batch so callers
// can bind before inserting anything.
func Bind(defs []Definition, submissions []Submission, spaceExists fieldtype.SpaceExists) ([]Value, error) {
	if len(submissions) == 0 {
		return nil, nil
	}

	byID := make(map[uint]Definition, len(defs))
	byName := make(map[string][]Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
		byName[d.Name] = append(byName[d.Name], d)
	}

	values := make([]Value, 0, len(submissions))
	bound := make(map[uint]bool, len(submissions))
	for _, sub := range submissions {
		def, err := resolve(byID, byName, sub)
		if err != nil {
			return nil, err
		}
		if bound[def.ID] {
			return nil, types.Validation("field %s: submitted more than once", def.Name)
		}
		bound[def.ID] = true
		norm, err := fieldtype.Normalize(def.Kind, def.Options, sub.Value, spaceExists)
		if err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) {
				return nil, types.NewError(appErr.Kind, "field %s: %s", def.Name, appErr.Message)
			}
			return nil, err
		}
		values = append(values, Value{FieldID: def.ID, Value: norm})
	}
	return values, nil
}

func resolve(byID map[uint]Definition, byName map[string][]Definition, sub Submission) (Definition, error) {
	if sub.FieldID != nil && *sub.FieldID != 0 {
		if d, ok := byID[*sub.FieldID]; ok {
			return d, nil
		}
		return Definition{}, types.NewError(types.ErrUnknownField, "unknown custom field id %d", *sub.FieldID)
	}
	matches := byName[sub.Name]
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Definition{}, types.NewError(types.ErrUnknownField, "unknown custom field name %q", sub.Name)
	default:
		return Definition{}, types.NewError(types.ErrUnknownField, "custom field name %q is ambiguous; reference it by field_id", sub.Name)
	}
}

// ValidateDefinitions rejects unknown kinds, options on non-select fields and
// names repeated within one owning type.
func ValidateDefinitions(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return types.Validation("field name is required")
		}
		if !d.Kind.IsValid() {
			return types.Validation("field %s: unsupported field_type %q", d.Name, d.Kind)
		}
		if d.Options != nil && d.Kind != fieldtype.Select {
			return types.Validation("field %s: options are only allowed on select fields", d.Name)
		}
		if seen[d.Name] {
			return types.Validation("duplicate field name %q", d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// EncodeOptions stores nil options as SQL NULL.
func EncodeOptions(options []string) datatypes.JSON {
	if options == nil {
		return nil
	}
	b, err := json.Marshal(options)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func DecodeOptions(raw datatypes.JSON) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var options []string
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil
	}
	return options
}
