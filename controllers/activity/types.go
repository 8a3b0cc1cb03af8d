package activity

import (
	"encoding/json"
	"errors"

	"institution-manager/logger"
	activityModel "institution-manager/models/activity"
	"institution-manager/services/customfield"
	"institution-manager/services/fieldtype"
	"institution-manager/types"
	activityTypes "institution-manager/types/activity"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type typeOut struct {
	ID       uint                   `json:"id"`
	Name     string                 `json:"name"`
	Metadata datatypes.JSON         `json:"metadata"`
	Fields   []customfield.FieldOut `json:"fields"`
}

func metadataOf(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}

// CreateCategory adds an activity category
func (ac *ActivityController) CreateCategory(c *fiber.Ctx) error {
	var req activityTypes.CategoryCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	category := activityModel.ActivityCategory{Name: req.Name}
	if err := ac.DB.Create(&category).Error; err != nil {
		return utils.RespondError(c, err)
	}
	logger.Success("Activity category created: " + category.Name)
	return utils.Respond(c, fiber.StatusCreated, "Category created successfully", category)
}

// CreateType adds an activity type together with its field definitions
func (ac *ActivityController) CreateType(c *fiber.Ctx) error {
	var req activityTypes.TypeCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	defs, err := customfield.FromRequests(req.Fields)
	if err != nil {
		return utils.RespondError(c, err)
	}

	var out typeOut
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		at := activityModel.ActivityType{Name: req.Name, Metadata: metadataOf(req.Metadata)}
		if err := tx.Create(&at).Error; err != nil {
			return err
		}
		created, err := customfield.ActivityFields.Create(tx, at.ID, defs)
		if err != nil {
			return err
		}
		out = typeOut{ID: at.ID, Name: at.Name, Metadata: at.Metadata, Fields: customfield.Out(created)}
		return nil
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Activity type created successfully", out)
}

// ListTypes returns every activity type with its fields
func (ac *ActivityController) ListTypes(c *fiber.Ctx) error {
	var ats []activityModel.ActivityType
	if err := ac.DB.Order("id").Find(&ats).Error; err != nil {
		return utils.RespondError(c, err)
	}

	out := make([]typeOut, 0, len(ats))
	for _, at := range ats {
		defs, err := customfield.ActivityFields.Load(ac.DB, &at.ID)
		if err != nil {
			return utils.RespondError(c, err)
		}
		out = append(out, typeOut{ID: at.ID, Name: at.Name, Metadata: at.Metadata, Fields: customfield.Out(defs)})
	}
	return utils.Respond(c, fiber.StatusOK, "Activity types fetched successfully", out)
}

func findType(tx *gorm.DB, id uint) (*activityModel.ActivityType, error) {
	var at activityModel.ActivityType
	err := tx.First(&at, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("ActivityType not found")
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

// UpdateType renames the type, replaces its metadata, and replaces the whole
// field set when "fields" is sent.
func (ac *ActivityController) UpdateType(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req activityTypes.TypeUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var out typeOut
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		at, err := findType(tx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			at.Name = *req.Name
		}
		if md := metadataOf(req.Metadata); md != nil {
			at.Metadata = md
		}
		if err := tx.Save(at).Error; err != nil {
			return err
		}

		var defs []customfield.Definition
		if req.Fields.Set {
			var reqs []types.FieldDefinitionRequest
			if req.Fields.Value != nil {
				reqs = *req.Fields.Value
			}
			replacement, err := customfield.FromRequests(reqs)
			if err != nil {
				return err
			}
			if defs, err = customfield.ActivityFields.Replace(tx, at.ID, replacement); err != nil {
				return err
			}
		} else if defs, err = customfield.ActivityFields.Load(tx, &at.ID); err != nil {
			return err
		}
		out = typeOut{ID: at.ID, Name: at.Name, Metadata: at.Metadata, Fields: customfield.Out(defs)}
		return nil
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Activity type updated successfully", out)
}

// DeleteType removes an unused type. With cascade enabled, referencing
// activities lose their type and the type's field values are dropped.
func (ac *ActivityController) DeleteType(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		at, err := findType(tx, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&activityModel.Activity{}).Where("activity_type_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			if !ac.Settings.TypeCascadeDelete {
				return types.IntegrityGuard("Cannot delete ActivityType in use")
			}
			if err := tx.Model(&activityModel.Activity{}).Where("activity_type_id = ?", id).
				Update("activity_type_id", nil).Error; err != nil {
				return err
			}
		}
		if err := customfield.ActivityFields.DeleteAll(tx, id); err != nil {
			return err
		}
		return tx.Delete(at).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddTypeField appends one field to a type
func (ac *ActivityController) AddTypeField(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req types.FieldDefinitionRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var created customfield.Definition
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := findType(tx, id); err != nil {
			return err
		}
		created, err = customfield.ActivityFields.Add(tx, id, customfield.Definition{
			Name: req.Name, Kind: fieldtype.Kind(req.FieldType), Options: req.Options,
		})
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Field created successfully", customfield.Out([]customfield.Definition{created})[0])
}

// UpdateTypeField edits one field and prunes values the edit invalidates
func (ac *ActivityController) UpdateTypeField(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	fieldID, err := utils.ParamID(c, "field_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req types.FieldUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var updated customfield.Definition
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		updated, err = customfield.ActivityFields.Update(tx, id, fieldID, customfield.RedefinitionOf(req))
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Field updated successfully", customfield.Out([]customfield.Definition{updated})[0])
}

// DeleteTypeField removes one field and its values
func (ac *ActivityController) DeleteTypeField(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	fieldID, err := utils.ParamID(c, "field_id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		return customfield.ActivityFields.Delete(tx, id, fieldID)
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
