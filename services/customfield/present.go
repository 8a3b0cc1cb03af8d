package customfield

import "institution-manager/services/fieldtype"

// FieldOut is a definition as returned to API callers.
type FieldOut struct {
	ID        uint     `json:"id"`
	Name      string   `json:"name"`
	FieldType string   `json:"field_type"`
	Options   []string `json:"options"`
}

// Out renders definitions for a response body.
func Out(defs []Definition) []FieldOut {
	out := make([]FieldOut, 0, len(defs))
	for _, d := range defs {
		out = append(out, FieldOut{ID: d.ID, Name: d.Name, FieldType: string(d.Kind), Options: d.Options})
	}
	return out
}

// Typed is a stored value decoded to its field's native JSON type.
type Typed struct {
	FieldID   uint        `json:"field_id"`
	Name      string      `json:"name"`
	FieldType string      `json:"field_type"`
	Value     interface{} `json:"value"`
}

// Present pairs stored values with their definitions. Values whose field no
// longer exists are skipped.
func Present(defs []Definition, values []Value) []Typed {
	byID := make(map[uint]Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	out := make([]Typed, 0, len(values))
	for _, v := range values {
		d, ok := byID[v.FieldID]
		if !ok {
			continue
		}
		out = append(out, Typed{
			FieldID:   v.FieldID,
			Name:      d.Name,
			FieldType: string(d.Kind),
			Value:     fieldtype.Decode(d.Kind, v.Value),
		})
	}
	return out
}
