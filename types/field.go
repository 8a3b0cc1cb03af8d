package types

// FieldDefinitionRequest declares one custom field on an activity type, ticket type or space template.
type FieldDefinitionRequest struct {
	Name      string   `json:"name" validate:"required"`
	FieldType string   `json:"field_type" validate:"required"`
	Options   []string `json:"options"`
}

func (r *FieldDefinitionRequest) Validate() error {
	return ValidateStruct(r)
}

// FieldUpdateRequest is a partial edit of a single field definition.
// Options is tri-state: absent leaves them, null clears them, a list replaces them.
type FieldUpdateRequest struct {
	Name      *string            `json:"name"`
	FieldType *string            `json:"field_type"`
	Options   Optional[[]string] `json:"options"`
}

func (r *FieldUpdateRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return Validation("name must not be empty")
	}
	return nil
}

// ValidateFieldDefinitions checks every entry of a replacement field set.
func ValidateFieldDefinitions(fields []FieldDefinitionRequest) error {
	for i := range fields {
		if err := fields[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
