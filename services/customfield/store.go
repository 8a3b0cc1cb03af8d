package customfield

import (
	"errors"
	"fmt"

	"institution-manager/models/activity"
	"institution-manager/models/logistics"
	"institution-manager/models/ticket"
	"institution-manager/services/fieldtype"
	"institution-manager/types"

	"gorm.io/gorm"
)

// Store persists the field definitions of one owner kind (F rows keyed by
// OwnerColumn) and the values filed against them (V rows keyed by ValueOwnerColumn).
type Store[F any, V any] struct {
	OwnerColumn      string
	ValueOwnerColumn string

	definition func(F) Definition
	field      func(ownerID uint, d Definition) F
	value      func(V) Value
	newValue   func(ownerID uint, v Value) V
}

var ActivityFields = &Store[activity.ActivityTypeField, activity.ActivityFieldValue]{
	OwnerColumn:      "activity_type_id",
	ValueOwnerColumn: "activity_id",
	definition: func(f activity.ActivityTypeField) Definition {
		return Definition{ID: f.ID, Name: f.Name, Kind: fieldtype.Kind(f.FieldType), Options: DecodeOptions(f.Options)}
	},
	field: func(ownerID uint, d Definition) activity.ActivityTypeField {
		return activity.ActivityTypeField{ID: d.ID, ActivityTypeID: ownerID, Name: d.Name, FieldType: string(d.Kind), Options: EncodeOptions(d.Options)}
	},
	value: func(v activity.ActivityFieldValue) Value { return Value{FieldID: v.FieldID, Value: v.Value} },
	newValue: func(ownerID uint, v Value) activity.ActivityFieldValue {
		return activity.ActivityFieldValue{ActivityID: ownerID, FieldID: v.FieldID, Value: v.Value}
	},
}

var TicketFields = &Store[ticket.TicketTypeField, ticket.TicketFieldValue]{
	OwnerColumn:      "ticket_type_id",
	ValueOwnerColumn: "ticket_id",
	definition: func(f ticket.TicketTypeField) Definition {
		return Definition{ID: f.ID, Name: f.Name, Kind: fieldtype.Kind(f.FieldType), Options: DecodeOptions(f.Options)}
	},
	field: func(ownerID uint, d Definition) ticket.TicketTypeField {
		return ticket.TicketTypeField{ID: d.ID, TicketTypeID: ownerID, Name: d.Name, FieldType: string(d.Kind), Options: EncodeOptions(d.Options)}
	},
	value: func(v ticket.TicketFieldValue) Value { return Value{FieldID: v.FieldID, Value: v.Value} },
	newValue: func(ownerID uint, v Value) ticket.TicketFieldValue {
		return ticket.TicketFieldValue{TicketID: ownerID, FieldID: v.FieldID, Value: v.Value}
	},
}

var SpaceFields = &Store[logistics.SpaceTemplateField, logistics.SpaceFieldValue]{
	OwnerColumn:      "template_id",
	ValueOwnerColumn: "space_id",
	definition: func(f logistics.SpaceTemplateField) Definition {
		return Definition{ID: f.ID, Name: f.Name, Kind: fieldtype.Kind(f.FieldType), Options: DecodeOptions(f.Options)}
	},
	field: func(ownerID uint, d Definition) logistics.SpaceTemplateField {
		return logistics.SpaceTemplateField{ID: d.ID, TemplateID: ownerID, Name: d.Name, FieldType: string(d.Kind), Options: EncodeOptions(d.Options)}
	},
	value: func(v logistics.SpaceFieldValue) Value { return Value{FieldID: v.FieldID, Value: v.Value} },
	newValue: func(ownerID uint, v Value) logistics.SpaceFieldValue {
		return logistics.SpaceFieldValue{SpaceID: ownerID, FieldID: v.FieldID, Value: v.Value}
	},
}

// SpaceExistsIn looks spaces up inside tx for space-kind fields.
func SpaceExistsIn(tx *gorm.DB) fieldtype.SpaceExists {
	return func(id uint) (bool, error) {
		var n int64
		if err := tx.Model(&logistics.Space{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return false, fmt.Errorf("failed to look up space %d: %w", id, err)
		}
		return n > 0, nil
	}
}

// FromRequests converts declared fields and validates them as one set.
func FromRequests(reqs []types.FieldDefinitionRequest) ([]Definition, error) {
	defs := make([]Definition, 0, len(reqs))
	for _, r := range reqs {
		defs = append(defs, Definition{Name: r.Name, Kind: fieldtype.Kind(r.FieldType), Options: r.Options})
	}
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Load returns the owner's definitions in creation order. A nil owner has none.
func (s *Store[F, V]) Load(tx *gorm.DB, ownerID *uint) ([]Definition, error) {
	if ownerID == nil {
		return nil, nil
	}
	var rows []F
	if err := tx.Where(s.OwnerColumn+" = ?", *ownerID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load field definitions: %w", err)
	}
	defs := make([]Definition, 0, len(rows))
	for _, r := range rows {
		defs = append(defs, s.definition(r))
	}
	return defs, nil
}

// Create inserts defs for the owner and returns them with their ids.
func (s *Store[F, V]) Create(tx *gorm.DB, ownerID uint, defs []Definition) ([]Definition, error) {
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		d.ID = 0
		row := s.field(ownerID, d)
		if err := tx.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("failed to create field %s: %w", d.Name, err)
		}
		out = append(out, s.definition(row))
	}
	return out, nil
}

// Replace swaps the owner's whole field set, dropping every value of the old fields.
func (s *Store[F, V]) Replace(tx *gorm.DB, ownerID uint, defs []Definition) ([]Definition, error) {
	if err := s.DeleteAll(tx, ownerID); err != nil {
		return nil, err
	}
	return s.Create(tx, ownerID, defs)
}

// Add appends one field, keeping names unique within the owner.
func (s *Store[F, V]) Add(tx *gorm.DB, ownerID uint, d Definition) (Definition, error) {
	existing, err := s.Load(tx, &ownerID)
	if err != nil {
		return Definition{}, err
	}
	if err := ValidateDefinitions(append(existing, d)); err != nil {
		return Definition{}, err
	}
	created, err := s.Create(tx, ownerID, []Definition{d})
	if err != nil {
		return Definition{}, err
	}
	return created[0], nil
}

// Update applies a partial edit to one field and prunes values it invalidates.
func (s *Store[F, V]) Update(tx *gorm.DB, ownerID, fieldID uint, edit Redefinition) (Definition, error) {
	defs, err := s.Load(tx, &ownerID)
	if err != nil {
		return Definition{}, err
	}

	idx := -1
	for i, d := range defs {
		if d.ID == fieldID {
			idx = i
		}
	}
	if idx < 0 {
		return Definition{}, types.NotFound("Field not found")
	}

	before := defs[idx]
	after := edit.Apply(before)
	defs[idx] = after
	if err := ValidateDefinitions(defs); err != nil {
		return Definition{}, err
	}

	row := s.field(ownerID, after)
	if err := tx.Save(&row).Error; err != nil {
		return Definition{}, fmt.Errorf("failed to update field %d: %w", fieldID, err)
	}
	var valueModel V
	if _, err := PruneOnRedefinition(tx, &valueModel, before, after); err != nil {
		return Definition{}, err
	}
	return after, nil
}

// Delete removes one field and its values.
func (s *Store[F, V]) Delete(tx *gorm.DB, ownerID, fieldID uint) error {
	var row F
	err := tx.Where("id = ? AND "+s.OwnerColumn+" = ?", fieldID, ownerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NotFound("Field not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load field %d: %w", fieldID, err)
	}
	var valueModel V
	if err := ReplaceDefinitions(tx, &valueModel, []uint{fieldID}); err != nil {
		return err
	}
	if err := tx.Delete(&row).Error; err != nil {
		return fmt.Errorf("failed to delete field %d: %w", fieldID, err)
	}
	return nil
}

// DeleteAll removes every field of the owner and their values.
func (s *Store[F, V]) DeleteAll(tx *gorm.DB, ownerID uint) error {
	var fieldModel F
	var ids []uint
	if err := tx.Model(&fieldModel).Where(s.OwnerColumn+" = ?", ownerID).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to load field ids: %w", err)
	}
	var valueModel V
	if err := ReplaceDefinitions(tx, &valueModel, ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("id IN ?", ids).Delete(&fieldModel).Error; err != nil {
		return fmt.Errorf("failed to delete fields: %w", err)
	}
	return nil
}

// SaveValues stores bound values for one owning record. A field already
// holding a value for the record is overwritten.
func (s *Store[F, V]) SaveValues(tx *gorm.DB, recordID uint, values []Value) error {
	if len(values) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.FieldID)
	}
	var valueModel V
	if err := tx.Where(s.ValueOwnerColumn+" = ? AND field_id IN ?", recordID, ids).Delete(&valueModel).Error; err != nil {
		return fmt.Errorf("failed to clear previous values: %w", err)
	}
	rows := make([]V, 0, len(values))
	for _, v := range values {
		rows = append(rows, s.newValue(recordID, v))
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save custom field values: %w", err)
	}
	return nil
}

// Values lists the stored values of one owning record.
func (s *Store[F, V]) Values(tx *gorm.DB, recordID uint) ([]Value, error) {
	var rows []V
	if err := tx.Where(s.ValueOwnerColumn+" = ?", recordID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load custom field values: %w", err)
	}
	out := make([]Value, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.value(r))
	}
	return out, nil
}

// DeleteValues drops every value of one owning record.
func (s *Store[F, V]) DeleteValues(tx *gorm.DB, recordID uint) error {
	var valueModel V
	if err := tx.Where(s.ValueOwnerColumn+" = ?", recordID).Delete(&valueModel).Error; err != nil {
		return fmt.Errorf("failed to delete custom field values: %w", err)
	}
	return nil
}

// BindAndSave binds submissions against the owner's definitions and stores
// them for the record. Nothing is written when any submission is rejected.
func (s *Store[F, V]) BindAndSave(tx *gorm.DB, ownerID *uint, recordID uint, subs []Submission) ([]Value, error) {
	if len(subs) == 0 {
		return nil, nil
	}
	defs, err := s.Load(tx, ownerID)
	if err != nil {
		return nil, err
	}
	values, err := Bind(defs, subs, SpaceExistsIn(tx))
	if err != nil {
		return nil, err
	}
	if err := s.SaveValues(tx, recordID, values); err != nil {
		return nil, err
	}
	return values, nil
}
