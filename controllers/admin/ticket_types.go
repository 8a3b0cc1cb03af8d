package admin

import (
	"errors"

	ticketController "institution-manager/controllers/ticket"
	ticketModel "institution-manager/models/ticket"
	"institution-manager/services/customfield"
	"institution-manager/services/fieldtype"
	"institution-manager/types"
	adminTypes "institution-manager/types/admin"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func findTicketType(tx *gorm.DB, id uint) (*ticketModel.TicketType, error) {
	var tt ticketModel.TicketType
	err := tx.First(&tt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("Ticket type not found")
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// replaceAllowedGroups swaps the allowed group set of a ticket type
func replaceAllowedGroups(tx *gorm.DB, typeID uint, groupIDs []uint) error {
	if err := tx.Where("ticket_type_id = ?", typeID).Delete(&ticketModel.TicketTypeAllowedGroup{}).Error; err != nil {
		return err
	}
	seen := map[uint]bool{}
	for _, gid := range groupIDs {
		if seen[gid] {
			continue
		}
		seen[gid] = true
		if err := tx.Create(&ticketModel.TicketTypeAllowedGroup{TicketTypeID: typeID, GroupID: gid}).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateTicketType adds a ticket type with its allowed groups and fields
func (ac *AdminController) CreateTicketType(c *fiber.Ctx) error {
	var req adminTypes.TicketTypeCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	defs, err := customfield.FromRequests(req.Fields)
	if err != nil {
		return utils.RespondError(c, err)
	}

	var out *ticketController.TypeView
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := findQueue(tx, req.QueueID); err != nil {
			return err
		}
		queueID := req.QueueID
		tt := ticketModel.TicketType{QueueID: &queueID, Name: req.Name}
		if err := tx.Create(&tt).Error; err != nil {
			return err
		}
		if err := replaceAllowedGroups(tx, tt.ID, req.AllowedGroupIDs); err != nil {
			return err
		}
		if _, err := customfield.TicketFields.Create(tx, tt.ID, defs); err != nil {
			return err
		}
		out, err = ticketController.TypeOut(tx, tt)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Ticket type created successfully", out)
}

// ListTicketTypes returns every ticket type with groups and fields
func (ac *AdminController) ListTicketTypes(c *fiber.Ctx) error {
	var tts []ticketModel.TicketType
	if err := ac.DB.Order("id").Find(&tts).Error; err != nil {
		return utils.RespondError(c, err)
	}
	out := make([]ticketController.TypeView, 0, len(tts))
	for _, tt := range tts {
		item, err := ticketController.TypeOut(ac.DB, tt)
		if err != nil {
			return utils.RespondError(c, err)
		}
		out = append(out, *item)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket types fetched successfully", out)
}

// GetTicketType returns one ticket type
func (ac *AdminController) GetTicketType(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	tt, err := findTicketType(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	out, err := ticketController.TypeOut(ac.DB, *tt)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket type fetched successfully", out)
}

// UpdateTicketType edits a ticket type. Sending allowed_group_ids or fields
// replaces the whole set; replaced fields lose their stored values.
func (ac *AdminController) UpdateTicketType(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req adminTypes.TicketTypeUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var out *ticketController.TypeView
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		tt, err := findTicketType(tx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			tt.Name = *req.Name
		}
		if req.QueueID != nil {
			if _, err := findQueue(tx, *req.QueueID); err != nil {
				return err
			}
			tt.QueueID = req.QueueID
		}
		if err := tx.Save(tt).Error; err != nil {
			return err
		}

		if req.AllowedGroupIDs.Set {
			var groups []uint
			if req.AllowedGroupIDs.Value != nil {
				groups = *req.AllowedGroupIDs.Value
			}
			if err := replaceAllowedGroups(tx, tt.ID, groups); err != nil {
				return err
			}
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
			if _, err := customfield.TicketFields.Replace(tx, tt.ID, replacement); err != nil {
				return err
			}
		}
		out, err = ticketController.TypeOut(tx, *tt)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket type updated successfully", out)
}

// DeleteTicketType removes a ticket type no ticket uses. With cascade
// enabled, referencing tickets lose their type.
func (ac *AdminController) DeleteTicketType(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		tt, err := findTicketType(tx, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&ticketModel.Ticket{}).Where("ticket_type_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			if !ac.Settings.TypeCascadeDelete {
				return types.IntegrityGuard("Cannot delete ticket type with existing tickets")
			}
			if err := tx.Model(&ticketModel.Ticket{}).Where("ticket_type_id = ?", id).Update("ticket_type_id", nil).Error; err != nil {
				return err
			}
		}
		if err := customfield.TicketFields.DeleteAll(tx, id); err != nil {
			return err
		}
		if err := replaceAllowedGroups(tx, id, nil); err != nil {
			return err
		}
		return tx.Delete(tt).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddTicketTypeField appends one field to a ticket type
func (ac *AdminController) AddTicketTypeField(c *fiber.Ctx) error {
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
		if _, err := findTicketType(tx, id); err != nil {
			return err
		}
		created, err = customfield.TicketFields.Add(tx, id, customfield.Definition{
			Name: req.Name, Kind: fieldtype.Kind(req.FieldType), Options: req.Options,
		})
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Field created successfully", customfield.Out([]customfield.Definition{created})[0])
}

// UpdateTicketTypeField edits one field and prunes values the edit invalidates
func (ac *AdminController) UpdateTicketTypeField(c *fiber.Ctx) error {
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
		updated, err = customfield.TicketFields.Update(tx, id, fieldID, customfield.RedefinitionOf(req))
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Field updated successfully", customfield.Out([]customfield.Definition{updated})[0])
}

// DeleteTicketTypeField removes one field and its values
func (ac *AdminController) DeleteTicketTypeField(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	fieldID, err := utils.ParamID(c, "field_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		return customfield.TicketFields.Delete(tx, id, fieldID)
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
