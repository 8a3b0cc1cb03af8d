package logistics

import (
	"errors"

	"institution-manager/config"
	"institution-manager/constants"
	"institution-manager/logger"
	activityModel "institution-manager/models/activity"
	logisticsModel "institution-manager/models/logistics"
	"institution-manager/services/customfield"
	"institution-manager/types"
	logisticsTypes "institution-manager/types/logistics"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LogisticsController handles buildings, spaces, stock and their types
type LogisticsController struct {
	DB       *gorm.DB
	Settings *config.Settings
}

func NewLogisticsController(db *gorm.DB, settings *config.Settings) *LogisticsController {
	return &LogisticsController{
		DB:       db,
		Settings: settings,
	}
}

type spaceOut struct {
	logisticsModel.Space
	CustomFields []customfield.Typed `json:"custom_fields"`
}

func presentSpace(tx *gorm.DB, s logisticsModel.Space) (*spaceOut, error) {
	defs, err := customfield.SpaceFields.Load(tx, s.SpaceTemplateID)
	if err != nil {
		return nil, err
	}
	values, err := customfield.SpaceFields.Values(tx, s.ID)
	if err != nil {
		return nil, err
	}
	return &spaceOut{Space: s, CustomFields: customfield.Present(defs, values)}, nil
}

func exists(tx *gorm.DB, model interface{}, id uint, missing string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return types.NotFound("%s", missing)
	}
	return nil
}

// ListBuildings returns every building
func (lc *LogisticsController) ListBuildings(c *fiber.Ctx) error {
	var buildings []logisticsModel.Building
	if err := lc.DB.Order("id").Find(&buildings).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Buildings fetched successfully", buildings)
}

// CreateBuilding adds a building
func (lc *LogisticsController) CreateBuilding(c *fiber.Ctx) error {
	var req logisticsTypes.BuildingCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	b := logisticsModel.Building{Name: req.Name, Address: req.Address}
	if err := lc.DB.Create(&b).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Building created successfully", b)
}

// ListSpaces returns every space with its typed custom fields
func (lc *LogisticsController) ListSpaces(c *fiber.Ctx) error {
	q := lc.DB.Model(&logisticsModel.Space{})
	buildingID, err := utils.QueryID(c, "building_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	if buildingID != nil {
		q = q.Where("building_id = ?", *buildingID)
	}
	var spaces []logisticsModel.Space
	if err := q.Order("id").Find(&spaces).Error; err != nil {
		return utils.RespondError(c, err)
	}
	out := make([]spaceOut, 0, len(spaces))
	for _, s := range spaces {
		item, err := presentSpace(lc.DB, s)
		if err != nil {
			return utils.RespondError(c, err)
		}
		out = append(out, *item)
	}
	return utils.Respond(c, fiber.StatusOK, "Spaces fetched successfully", out)
}

// CreateSpace adds a space. Custom fields bind against the space template.
func (lc *LogisticsController) CreateSpace(c *fiber.Ctx) error {
	var req logisticsTypes.SpaceCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var out *spaceOut
	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &logisticsModel.Building{}, req.BuildingID, "Building not found"); err != nil {
			return err
		}
		if req.SpaceTypeID != nil {
			if err := exists(tx, &logisticsModel.SpaceType{}, *req.SpaceTypeID, "SpaceType not found"); err != nil {
				return err
			}
		}
		if req.SpaceTemplateID != nil {
			if err := exists(tx, &logisticsModel.SpaceTemplate{}, *req.SpaceTemplateID, "SpaceTemplate not found"); err != nil {
				return err
			}
		}
		s := logisticsModel.Space{
			BuildingID:      req.BuildingID,
			SpaceTypeID:     req.SpaceTypeID,
			SpaceTemplateID: req.SpaceTemplateID,
			Name:            req.Name,
			Type:            req.Type,
			Capacity:        req.Capacity,
		}
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		if _, err := customfield.SpaceFields.BindAndSave(tx, s.SpaceTemplateID, s.ID, req.CustomFields); err != nil {
			return err
		}
		var err error
		out, err = presentSpace(tx, s)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	logger.Success("Space created: " + out.Name)
	return utils.Respond(c, fiber.StatusCreated, "Space created successfully", out)
}

func findSpace(tx *gorm.DB, id uint) (*logisticsModel.Space, error) {
	var s logisticsModel.Space
	err := tx.First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("Space not found")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSpace edits a space. Sending custom_fields replaces the stored values.
func (lc *LogisticsController) UpdateSpace(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req logisticsTypes.SpaceUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var out *spaceOut
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		s, err := findSpace(tx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			s.Name = *req.Name
		}
		if req.Type != nil {
			s.Type = req.Type
		}
		if req.Capacity != nil {
			s.Capacity = req.Capacity
		}
		if req.SpaceTypeID != nil {
			if err := exists(tx, &logisticsModel.SpaceType{}, *req.SpaceTypeID, "SpaceType not found"); err != nil {
				return err
			}
			s.SpaceTypeID = req.SpaceTypeID
		}
		if err := tx.Save(s).Error; err != nil {
			return err
		}
		if req.CustomFields != nil {
			if err := customfield.SpaceFields.DeleteValues(tx, s.ID); err != nil {
				return err
			}
			if _, err := customfield.SpaceFields.BindAndSave(tx, s.SpaceTemplateID, s.ID, req.CustomFields); err != nil {
				return err
			}
		}
		out, err = presentSpace(tx, *s)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Space updated successfully", out)
}

// DeleteSpace removes a space no booking refers to, along with its values
func (lc *LogisticsController) DeleteSpace(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		s, err := findSpace(tx, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&activityModel.SpaceBooking{}).Where("space_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return types.IntegrityGuard("Cannot delete space with bookings")
		}
		if err := customfield.SpaceFields.DeleteValues(tx, id); err != nil {
			return err
		}
		return tx.Delete(s).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListStockCategories returns every stock category
func (lc *LogisticsController) ListStockCategories(c *fiber.Ctx) error {
	var categories []logisticsModel.StockCategory
	if err := lc.DB.Order("id").Find(&categories).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Stock categories fetched successfully", categories)
}

// CreateStockCategory adds a stock category
func (lc *LogisticsController) CreateStockCategory(c *fiber.Ctx) error {
	var req logisticsTypes.StockCategoryCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	category := logisticsModel.StockCategory{Name: req.Name}
	if err := lc.DB.Create(&category).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Stock category created successfully", category)
}

// ListStockItems returns every stock item
func (lc *LogisticsController) ListStockItems(c *fiber.Ctx) error {
	q := lc.DB.Model(&logisticsModel.StockItem{})
	categoryID, err := utils.QueryID(c, "category_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var items []logisticsModel.StockItem
	if err := q.Order("id").Find(&items).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Stock items fetched successfully", items)
}

// CreateStockItem adds a stock item. SKUs are unique.
func (lc *LogisticsController) CreateStockItem(c *fiber.Ctx) error {
	var req logisticsTypes.StockItemCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var item logisticsModel.StockItem
	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &logisticsModel.StockCategory{}, req.CategoryID, "Stock category not found"); err != nil {
			return err
		}
		if req.StockTypeID != nil {
			if err := exists(tx, &logisticsModel.StockType{}, *req.StockTypeID, "StockType not found"); err != nil {
				return err
			}
		}
		var n int64
		if err := tx.Model(&logisticsModel.StockItem{}).Where("sku = ?", req.SKU).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return types.Conflict("SKU already exists")
		}
		item = logisticsModel.StockItem{
			CategoryID:  req.CategoryID,
			StockTypeID: req.StockTypeID,
			Name:        req.Name,
			SKU:         req.SKU,
			Description: req.Description,
			Status:      constants.StockAvailable,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Stock item created successfully", item)
}
