package activity

import (
	"errors"
	"time"

	"institution-manager/config"
	"institution-manager/logger"
	"institution-manager/middleware"
	activityModel "institution-manager/models/activity"
	"institution-manager/services/booking"
	"institution-manager/services/customfield"
	"institution-manager/types"
	activityTypes "institution-manager/types/activity"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ActivityController handles activities, their types and their bookings
type ActivityController struct {
	DB       *gorm.DB
	Settings *config.Settings
}

func NewActivityController(db *gorm.DB, settings *config.Settings) *ActivityController {
	return &ActivityController{
		DB:       db,
		Settings: settings,
	}
}

type activityOut struct {
	activityModel.Activity
	CustomFields  []customfield.Typed          `json:"custom_fields"`
	SpaceBookings []activityModel.SpaceBooking `json:"space_bookings,omitempty"`
	StockBookings []activityModel.StockBooking `json:"stock_bookings,omitempty"`
}

func findActivity(tx *gorm.DB, id uint) (*activityModel.Activity, error) {
	var act activityModel.Activity
	err := tx.First(&act, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("Activity not found")
	}
	if err != nil {
		return nil, err
	}
	return &act, nil
}

func present(tx *gorm.DB, act activityModel.Activity) (*activityOut, error) {
	defs, err := customfield.ActivityFields.Load(tx, act.ActivityTypeID)
	if err != nil {
		return nil, err
	}
	values, err := customfield.ActivityFields.Values(tx, act.ID)
	if err != nil {
		return nil, err
	}
	return &activityOut{Activity: act, CustomFields: customfield.Present(defs, values)}, nil
}

// Store creates an activity and its custom field values in one transaction
func (ac *ActivityController) Store(c *fiber.Ctx) error {
	var req activityTypes.CreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	organizer := req.OrganizerUserID
	if organizer == 0 {
		organizer = middleware.CurrentUser(c).ID
	}

	var out *activityOut
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&activityModel.ActivityCategory{}).Where("id = ?", req.CategoryID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return types.NotFound("Category not found")
		}
		if req.ActivityTypeID != nil {
			if _, err := findType(tx, *req.ActivityTypeID); err != nil {
				return err
			}
		}

		act := activityModel.Activity{
			CategoryID:      req.CategoryID,
			ActivityTypeID:  req.ActivityTypeID,
			Title:           req.Title,
			Description:     req.Description,
			OrganizerUserID: organizer,
			StartTime:       req.StartTime.UTC(),
			EndTime:         req.EndTime.UTC(),
		}
		if err := tx.Create(&act).Error; err != nil {
			return err
		}
		if _, err := customfield.ActivityFields.BindAndSave(tx, act.ActivityTypeID, act.ID, req.CustomFields); err != nil {
			return err
		}
		var err error
		out, err = present(tx, act)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	logger.Success("Activity created: " + out.Title)
	return utils.Respond(c, fiber.StatusCreated, "Activity created successfully", out)
}

// Index lists activities overlapping the requested window
func (ac *ActivityController) Index(c *fiber.Ctx) error {
	q := ac.DB.Model(&activityModel.Activity{})

	organizer, err := utils.QueryID(c, "organizer")
	if err != nil {
		return utils.RespondError(c, err)
	}
	if organizer != nil {
		q = q.Where("organizer_user_id = ?", *organizer)
	}

	start, err := queryTime(c, "start")
	if err != nil {
		return utils.RespondError(c, err)
	}
	end, err := queryTime(c, "end")
	if err != nil {
		return utils.RespondError(c, err)
	}
	if day := c.Query("day"); day != "" {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			return utils.RespondError(c, types.Validation("Invalid day; expected YYYY-MM-DD"))
		}
		from, to := utils.DayWindow(d)
		start, end = &from, &to
	}
	if start != nil {
		q = q.Where("end_time > ?", start.UTC())
	}
	if end != nil {
		q = q.Where("start_time < ?", end.UTC())
	}

	var acts []activityModel.Activity
	if err := q.Order("start_time").Find(&acts).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Activities fetched successfully", acts)
}

func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, types.Validation("Invalid %s; expected RFC 3339 timestamp", name)
	}
	return &t, nil
}

// Show returns one activity with typed custom fields and its bookings
func (ac *ActivityController) Show(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	act, err := findActivity(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	out, err := present(ac.DB, *act)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if err := ac.DB.Where("activity_id = ?", id).Order("id").Find(&out.SpaceBookings).Error; err != nil {
		return utils.RespondError(c, err)
	}
	if err := ac.DB.Where("activity_id = ?", id).Order("id").Find(&out.StockBookings).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Activity fetched successfully", out)
}

// Update edits an activity. Moving its window is re-checked against the
// confirmed bookings of every resource it holds.
func (ac *ActivityController) Update(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req activityTypes.UpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var out *activityOut
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		act, err := findActivity(tx, id)
		if err != nil {
			return err
		}

		start, end := act.StartTime, act.EndTime
		if req.StartTime != nil {
			start = req.StartTime.UTC()
		}
		if req.EndTime != nil {
			end = req.EndTime.UTC()
		}
		if !end.After(start) {
			return types.Validation("end_time must be after start_time")
		}
		if !start.Equal(act.StartTime) || !end.Equal(act.EndTime) {
			if err := booking.CheckMove(tx, act.ID, start, end); err != nil {
				return err
			}
		}

		if req.Title != nil {
			act.Title = *req.Title
		}
		if req.Description != nil {
			act.Description = req.Description
		}
		if req.CategoryID != nil {
			act.CategoryID = *req.CategoryID
		}
		act.StartTime, act.EndTime = start, end
		if err := tx.Save(act).Error; err != nil {
			return err
		}
		out, err = present(tx, *act)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Activity updated successfully", out)
}

// Destroy deletes an activity that holds no bookings
func (ac *ActivityController) Destroy(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		act, err := findActivity(tx, id)
		if err != nil {
			return err
		}
		var spaceRefs, stockRefs int64
		if err := tx.Model(&activityModel.SpaceBooking{}).Where("activity_id = ?", id).Count(&spaceRefs).Error; err != nil {
			return err
		}
		if err := tx.Model(&activityModel.StockBooking{}).Where("activity_id = ?", id).Count(&stockRefs).Error; err != nil {
			return err
		}
		if spaceRefs+stockRefs > 0 {
			return types.IntegrityGuard("Cannot delete activity with bookings")
		}
		if err := customfield.ActivityFields.DeleteValues(tx, id); err != nil {
			return err
		}
		return tx.Delete(act).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BookSpace reserves a space for the activity's window
func (ac *ActivityController) BookSpace(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req activityTypes.SpaceBookingRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var created *activityModel.SpaceBooking
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		act, err := findActivity(tx, id)
		if err != nil {
			return err
		}
		created, err = booking.BookSpace(tx, *act, req.SpaceID, req.Status)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Space booked successfully", created)
}

// BookStock reserves a stock item for the activity's window
func (ac *ActivityController) BookStock(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req activityTypes.StockBookingRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var created *activityModel.StockBooking
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		act, err := findActivity(tx, id)
		if err != nil {
			return err
		}
		created, err = booking.BookStock(tx, *act, req.ItemID, req.Status)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Stock item booked successfully", created)
}

// ConfirmSpaceBooking promotes a pending space booking after a fresh conflict check
func (ac *ActivityController) ConfirmSpaceBooking(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	bookingID, err := utils.ParamID(c, "booking_id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	var confirmed *activityModel.SpaceBooking
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		confirmed, err = booking.ConfirmSpaceBooking(tx, id, bookingID)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Booking confirmed", confirmed)
}

// ConfirmStockBooking promotes a pending stock booking after a fresh conflict check
func (ac *ActivityController) ConfirmStockBooking(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	bookingID, err := utils.ParamID(c, "booking_id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	var confirmed *activityModel.StockBooking
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		confirmed, err = booking.ConfirmStockBooking(tx, id, bookingID)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Booking confirmed", confirmed)
}
