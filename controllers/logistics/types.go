package logistics

import (
	"encoding/json"
	"errors"

	logisticsModel "institution-manager/models/logistics"
	"institution-manager/services/customfield"
	"institution-manager/types"
	logisticsTypes "institution-manager/types/logistics"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func parseTypeRequest(c *fiber.Ctx, partial bool) (*logisticsTypes.TypeRequest, error) {
	var req logisticsTypes.TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, types.Validation("Invalid request body")
	}
	if err := req.Validate(partial); err != nil {
		return nil, err
	}
	return &req, nil
}

func metadataOf(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}

// typeTable is a named type with metadata that other rows point at
type typeTable[T any] struct {
	label     string
	refModel  interface{}
	refColumn string
	apply     func(row *T, name string, metadata datatypes.JSON)
}

var spaceTypes = typeTable[logisticsModel.SpaceType]{
	label:     "SpaceType",
	refModel:  &logisticsModel.Space{},
	refColumn: "space_type_id",
	apply: func(row *logisticsModel.SpaceType, name string, metadata datatypes.JSON) {
		if name != "" {
			row.Name = name
		}
		if metadata != nil {
			row.Metadata = metadata
		}
	},
}

var stockTypes = typeTable[logisticsModel.StockType]{
	label:     "StockType",
	refModel:  &logisticsModel.StockItem{},
	refColumn: "stock_type_id",
	apply: func(row *logisticsModel.StockType, name string, metadata datatypes.JSON) {
		if name != "" {
			row.Name = name
		}
		if metadata != nil {
			row.Metadata = metadata
		}
	},
}

func (t typeTable[T]) find(tx *gorm.DB, id uint) (*T, error) {
	var row T
	err := tx.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("%s not found", t.label)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (t typeTable[T]) create(lc *LogisticsController, c *fiber.Ctx) error {
	req, err := parseTypeRequest(c, false)
	if err != nil {
		return utils.RespondError(c, err)
	}
	var row T
	t.apply(&row, req.Name, metadataOf(req.Metadata))
	if err := lc.DB.Create(&row).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, t.label+" created successfully", row)
}

func (t typeTable[T]) list(lc *LogisticsController, c *fiber.Ctx) error {
	var rows []T
	if err := lc.DB.Order("id").Find(&rows).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, t.label+"s fetched successfully", rows)
}

func (t typeTable[T]) update(lc *LogisticsController, c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	req, err := parseTypeRequest(c, true)
	if err != nil {
		return utils.RespondError(c, err)
	}
	row, err := t.find(lc.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	t.apply(row, req.Name, metadataOf(req.Metadata))
	if err := lc.DB.Save(row).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, t.label+" updated successfully", row)
}

// remove rejects deleting a referenced type unless cascading is enabled, in
// which case the references are cleared first.
func (t typeTable[T]) remove(lc *LogisticsController, c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		row, err := t.find(tx, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(t.refModel).Where(t.refColumn+" = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			if !lc.Settings.TypeCascadeDelete {
				return types.IntegrityGuard("Cannot delete %s in use", t.label)
			}
			if err := tx.Model(t.refModel).Where(t.refColumn+" = ?", id).Update(t.refColumn, nil).Error; err != nil {
				return err
			}
		}
		return tx.Delete(row).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (lc *LogisticsController) CreateSpaceType(c *fiber.Ctx) error { return spaceTypes.create(lc, c) }
func (lc *LogisticsController) ListSpaceTypes(c *fiber.Ctx) error  { return spaceTypes.list(lc, c) }
func (lc *LogisticsController) UpdateSpaceType(c *fiber.Ctx) error { return spaceTypes.update(lc, c) }
func (lc *LogisticsController) DeleteSpaceType(c *fiber.Ctx) error { return spaceTypes.remove(lc, c) }

func (lc *LogisticsController) CreateStockType(c *fiber.Ctx) error { return stockTypes.create(lc, c) }
func (lc *LogisticsController) ListStockTypes(c *fiber.Ctx) error  { return stockTypes.list(lc, c) }
func (lc *LogisticsController) UpdateStockType(c *fiber.Ctx) error { return stockTypes.update(lc, c) }
func (lc *LogisticsController) DeleteStockType(c *fiber.Ctx) error { return stockTypes.remove(lc, c) }

type templateOut struct {
	ID          uint                   `json:"id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description"`
	Fields      []customfield.FieldOut `json:"fields"`
}

func findTemplate(tx *gorm.DB, id uint) (*logisticsModel.SpaceTemplate, error) {
	var st logisticsModel.SpaceTemplate
	err := tx.First(&st, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("SpaceTemplate not found")
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func presentTemplate(tx *gorm.DB, st logisticsModel.SpaceTemplate) (*templateOut, error) {
	defs, err := customfield.SpaceFields.Load(tx, &st.ID)
	if err != nil {
		return nil, err
	}
	return &templateOut{ID: st.ID, Name: st.Name, Description: st.Description, Fields: customfield.Out(defs)}, nil
}

// CreateTemplate adds a space template with its field definitions
func (lc *LogisticsController) CreateTemplate(c *fiber.Ctx) error {
	var req logisticsTypes.TemplateCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	defs, err := customfield.FromRequests(req.Fields)
	if err != nil {
		return utils.RespondError(c, err)
	}

	var out *templateOut
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		st := logisticsModel.SpaceTemplate{Name: req.Name, Description: req.Description}
		if err := tx.Create(&st).Error; err != nil {
			return err
		}
		if _, err := customfield.SpaceFields.Create(tx, st.ID, defs); err != nil {
			return err
		}
		var err error
		out, err = presentTemplate(tx, st)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "SpaceTemplate created successfully", out)
}

// ListTemplates returns every space template with its fields
func (lc *LogisticsController) ListTemplates(c *fiber.Ctx) error {
	var templates []logisticsModel.SpaceTemplate
	if err := lc.DB.Order("id").Find(&templates).Error; err != nil {
		return utils.RespondError(c, err)
	}
	out := make([]templateOut, 0, len(templates))
	for _, st := range templates {
		item, err := presentTemplate(lc.DB, st)
		if err != nil {
			return utils.RespondError(c, err)
		}
		out = append(out, *item)
	}
	return utils.Respond(c, fiber.StatusOK, "SpaceTemplates fetched successfully", out)
}

// UpdateTemplate edits a template. Sending fields replaces the whole set and
// drops the values spaces held for the old fields.
func (lc *LogisticsController) UpdateTemplate(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req logisticsTypes.TemplateUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var out *templateOut
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		st, err := findTemplate(tx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			st.Name = *req.Name
		}
		if req.Description != nil {
			st.Description = req.Description
		}
		if err := tx.Save(st).Error; err != nil {
			return err
		}
		if req.Fields.Set {
			var reqs []types.FieldDefinitionRequest
			if req.Fields.Value != nil {
				reqs = *req.Fields.Value
			}
			replacement, err := customfield.FromRequests(reqs)
			if err != nil {
				return err
			}
			if _, err := customfield.SpaceFields.Replace(tx, st.ID, replacement); err != nil {
				return err
			}
		}
		out, err = presentTemplate(tx, *st)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "SpaceTemplate updated successfully", out)
}

// DeleteTemplate removes a template no space uses. With cascade enabled,
// spaces lose their template and its values.
func (lc *LogisticsController) DeleteTemplate(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		st, err := findTemplate(tx, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&logisticsModel.Space{}).Where("space_template_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			if !lc.Settings.TypeCascadeDelete {
				return types.IntegrityGuard("Cannot delete SpaceTemplate in use")
			}
			if err := tx.Model(&logisticsModel.Space{}).Where("space_template_id = ?", id).Update("space_template_id", nil).Error; err != nil {
				return err
			}
		}
		if err := customfield.SpaceFields.DeleteAll(tx, id); err != nil {
			return err
		}
		return tx.Delete(st).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
