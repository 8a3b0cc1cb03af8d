package customfield

import (
	"fmt"
	"reflect"

	"institution-manager/services/fieldtype"
	"institution-manager/types"

	"gorm.io/gorm"
)

// Redefinition is a partial edit of one field definition.
// OptionsSet distinguishes "options not sent" from "options cleared".
type Redefinition struct {
	Name       *string
	Kind       *fieldtype.Kind
	OptionsSet bool
	Options    []string
}

// Apply returns the definition after the edit. Leaving select drops the
// options unless the edit sets them.
func (r Redefinition) Apply(before Definition) Definition {
	after := before
	if r.Name != nil {
		after.Name = *r.Name
	}
	if r.Kind != nil {
		after.Kind = *r.Kind
	}
	if r.OptionsSet {
		after.Options = r.Options
	} else if after.Kind != fieldtype.Select {
		after.Options = nil
	}
	return after
}

// PruneOnRedefinition deletes stored values that the new definition no longer
// vouches for. valueModel is the value table's model, e.g. &activity.ActivityFieldValue{}.
//
// A kind change drops every value of the field. A new option list on a select
// field drops values outside it, NULLs included. Clearing the options prunes nothing.
func PruneOnRedefinition(tx *gorm.DB, valueModel interface{}, before, after Definition) (int64, error) {
	if after.Kind != before.Kind {
		res := tx.Where("field_id = ?", after.ID).Delete(valueModel)
		if res.Error != nil {
			return 0, fmt.Errorf("failed to reset values of field %d: %w", after.ID, res.Error)
		}
		return res.RowsAffected, nil
	}

	if after.Kind != fieldtype.Select || after.Options == nil || reflect.DeepEqual(before.Options, after.Options) {
		return 0, nil
	}

	q := tx.Where("field_id = ?", after.ID)
	if len(after.Options) > 0 {
		q = q.Where("(value IS NULL OR value NOT IN ?)", after.Options)
	}
	res := q.Delete(valueModel)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune values of field %d: %w", after.ID, res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceDefinitions drops every value of the old fields; used when a whole
// field set is replaced.
func ReplaceDefinitions(tx *gorm.DB, valueModel interface{}, oldFieldIDs []uint) error {
	if len(oldFieldIDs) == 0 {
		return nil
	}
	if err := tx.Where("field_id IN ?", oldFieldIDs).Delete(valueModel).Error; err != nil {
		return fmt.Errorf("failed to delete values of replaced fields: %w", err)
	}
	return nil
}

// RedefinitionOf converts a field update request.
func RedefinitionOf(req types.FieldUpdateRequest) Redefinition {
	r := Redefinition{Name: req.Name, OptionsSet: req.Options.Set}
	if req.FieldType != nil {
		k := fieldtype.Kind(*req.FieldType)
		r.Kind = &k
	}
	if req.Options.Value != nil {
		r.Options = *req.Options.Value
	}
	return r
}
