package customfield_test

import (
	"encoding/json"
	"errors"
	"testing"

	"institution-manager/database/testdb"
	"institution-manager/models/activity"
	"institution-manager/models/logistics"
	"institution-manager/services/customfield"
	"institution-manager/services/fieldtype"
	"institution-manager/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	db := testdb.Open(t)
	at := activity.ActivityType{Name: "Workshop"}
	require.NoError(t, db.Create(&at).Error)

	defs, err := customfield.FromRequests([]types.FieldDefinitionRequest{
		{Name: "level", FieldType: "select", Options: []string{"intro", "advanced"}},
		{Name: "seats", FieldType: "number"},
	})
	require.NoError(t, err)
	created, err := customfield.ActivityFields.Create(db, at.ID, defs)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotZero(t, created[0].ID)

	_, err = customfield.ActivityFields.Add(db, at.ID, customfield.Definition{Name: "seats", Kind: fieldtype.Text})
	assert.True(t, errors.Is(err, types.ErrValidation), "duplicate names are rejected")

	room, err := customfield.ActivityFields.Add(db, at.ID, customfield.Definition{Name: "room", Kind: fieldtype.Space})
	require.NoError(t, err)

	loaded, err := customfield.ActivityFields.Load(db, &at.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"level", "seats", "room"}, []string{loaded[0].Name, loaded[1].Name, loaded[2].Name})
	assert.Equal(t, []string{"intro", "advanced"}, loaded[0].Options)
	assert.Nil(t, loaded[1].Options)

	require.NoError(t, customfield.ActivityFields.Delete(db, at.ID, room.ID))
	err = customfield.ActivityFields.Delete(db, at.ID, room.ID)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	replaced, err := customfield.ActivityFields.Replace(db, at.ID, []customfield.Definition{{Name: "notes", Kind: fieldtype.Text}})
	require.NoError(t, err)
	loaded, err = customfield.ActivityFields.Load(db, &at.ID)
	require.NoError(t, err)
	assert.Equal(t, replaced, loaded)
}

func TestBindAndSaveIsAllOrNothing(t *testing.T) {
	db := testdb.Open(t)
	at := activity.ActivityType{Name: "Talk"}
	require.NoError(t, db.Create(&at).Error)
	_, err := customfield.ActivityFields.Create(db, at.ID, []customfield.Definition{
		{Name: "virtual", Kind: fieldtype.Boolean},
		{Name: "room", Kind: fieldtype.Space},
	})
	require.NoError(t, err)

	_, err = customfield.ActivityFields.BindAndSave(db, &at.ID, 1, []customfield.Submission{
		{Name: "virtual", Value: json.RawMessage(`true`)},
		{Name: "catering", Value: json.RawMessage(`"yes"`)},
	})
	assert.True(t, errors.Is(err, types.ErrUnknownField))

	var n int64
	db.Model(&activity.ActivityFieldValue{}).Count(&n)
	assert.Zero(t, n)

	_, err = customfield.ActivityFields.BindAndSave(db, &at.ID, 1, []customfield.Submission{
		{Name: "room", Value: json.RawMessage(`5`)},
	})
	assert.True(t, errors.Is(err, types.ErrInvalidValue), "space 5 does not exist")

	b := logistics.Building{Name: "Main"}
	require.NoError(t, db.Create(&b).Error)
	s := logistics.Space{BuildingID: b.ID, Name: "Hall"}
	require.NoError(t, db.Create(&s).Error)

	values, err := customfield.ActivityFields.BindAndSave(db, &at.ID, 1, []customfield.Submission{
		{Name: "virtual", Value: json.RawMessage(`"no"`)},
		{Name: "room", Value: json.RawMessage(`"1"`)},
	})
	require.NoError(t, err)
	require.Len(t, values, 2)

	defs, err := customfield.ActivityFields.Load(db, &at.ID)
	require.NoError(t, err)
	stored, err := customfield.ActivityFields.Values(db, 1)
	require.NoError(t, err)
	typed := customfield.Present(defs, stored)
	require.Len(t, typed, 2)
	assert.Equal(t, false, typed[0].Value)
	assert.Equal(t, int64(s.ID), typed[1].Value)
}

func TestStoreUpdatePrunes(t *testing.T) {
	db := testdb.Open(t)
	created, err := customfield.ActivityFields.Create(db, 1, []customfield.Definition{
		{Name: "colour", Kind: fieldtype.Select, Options: []string{"red", "green"}},
	})
	require.NoError(t, err)
	field := created[0]
	require.NoError(t, customfield.ActivityFields.SaveValues(db, 1, []customfield.Value{{FieldID: field.ID, Value: str("red")}}))
	require.NoError(t, customfield.ActivityFields.SaveValues(db, 2, []customfield.Value{{FieldID: field.ID, Value: str("green")}}))

	after, err := customfield.ActivityFields.Update(db, 1, field.ID, customfield.Redefinition{OptionsSet: true, Options: []string{"green"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"green"}, after.Options)
	assert.Equal(t, []string{"green"}, remaining(t, db, field.ID))

	_, err = customfield.ActivityFields.Update(db, 1, 999, customfield.Redefinition{})
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestStoreUpdateLeavingSelectResetsField(t *testing.T) {
	db := testdb.Open(t)
	created, err := customfield.ActivityFields.Create(db, 1, []customfield.Definition{
		{Name: "colour", Kind: fieldtype.Select, Options: []string{"red", "green"}},
	})
	require.NoError(t, err)
	field := created[0]
	require.NoError(t, customfield.ActivityFields.SaveValues(db, 1, []customfield.Value{{FieldID: field.ID, Value: str("red")}}))
	require.NoError(t, customfield.ActivityFields.SaveValues(db, 2, []customfield.Value{{FieldID: field.ID, Value: str("green")}}))

	text := fieldtype.Text
	after, err := customfield.ActivityFields.Update(db, 1, field.ID, customfield.Redefinition{Kind: &text})
	require.NoError(t, err)
	assert.Equal(t, fieldtype.Text, after.Kind)
	assert.Nil(t, after.Options)
	assert.Empty(t, remaining(t, db, field.ID))

	owner := uint(1)
	defs, err := customfield.ActivityFields.Load(db, &owner)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Nil(t, defs[0].Options)
}

func TestValuesAreUniquePerRecordAndField(t *testing.T) {
	db := testdb.Open(t)
	created, err := customfield.ActivityFields.Create(db, 1, []customfield.Definition{{Name: "note", Kind: fieldtype.Text}})
	require.NoError(t, err)
	fieldID := created[0].ID

	require.NoError(t, customfield.ActivityFields.SaveValues(db, 7, []customfield.Value{{FieldID: fieldID, Value: str("a")}}))
	require.NoError(t, customfield.ActivityFields.SaveValues(db, 7, []customfield.Value{{FieldID: fieldID, Value: str("b")}}))
	stored, err := customfield.ActivityFields.Values(db, 7)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "b", *stored[0].Value)

	err = db.Create(&activity.ActivityFieldValue{ActivityID: 7, FieldID: fieldID, Value: str("c")}).Error
	assert.Error(t, err)
}
