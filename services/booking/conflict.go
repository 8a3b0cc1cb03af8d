// Package booking decides whether a resource is free for a time window.
//
// Windows are half-open: [start, end). Two windows overlap iff
// existing.start < candidate.end AND existing.end > candidate.start, so
// back-to-back windows never conflict. Only Confirmed bookings reserve a resource.
package booking

import (
	"fmt"
	"time"

	"institution-manager/constants"
	"institution-manager/database"
	"institution-manager/models/activity"
	"institution-manager/models/logistics"
	"institution-manager/types"

	"gorm.io/gorm"
)

type Resource string

const (
	SpaceResource Resource = "space"
	StockResource Resource = "stock"
)

// Query describes a candidate reservation.
type Query struct {
	Resource          Resource
	ResourceID        uint
	Start             time.Time
	End               time.Time
	ExcludeActivityID uint
	ExcludeBookingID  uint
}

func (r Resource) table() (bookings, column string, err error) {
	switch r {
	case SpaceResource:
		return "space_bookings", "space_id", nil
	case StockResource:
		return "stock_bookings", "item_id", nil
	}
	return "", "", fmt.Errorf("unknown booking resource %q", r)
}

// HasConflict reports whether a Confirmed booking of the resource overlaps the window.
func HasConflict(tx *gorm.DB, q Query) (bool, error) {
	table, column, err := q.Resource.table()
	if err != nil {
		return false, err
	}

	stmt := tx.Table(table+" AS b").
		Joins("JOIN activities a ON a.id = b.activity_id").
		Where("b."+column+" = ?", q.ResourceID).
		Where("b.status = ?", constants.BookingConfirmed).
		Where("a.start_time < ? AND a.end_time > ?", q.End.UTC(), q.Start.UTC())
	if q.ExcludeActivityID != 0 {
		stmt = stmt.Where("b.activity_id <> ?", q.ExcludeActivityID)
	}
	if q.ExcludeBookingID != 0 {
		stmt = stmt.Where("b.id <> ?", q.ExcludeBookingID)
	}

	var n int64
	if err := stmt.Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check %s booking conflicts: %w", q.Resource, err)
	}
	return n > 0, nil
}

// lockResource takes a row lock on the booked space or item so two requests
// for the same resource serialize on PostgreSQL.
func lockResource(tx *gorm.DB, resource Resource, id uint) error {
	var err error
	switch resource {
	case SpaceResource:
		var space logistics.Space
		err = database.LockForUpdate(tx).First(&space, id).Error
	case StockResource:
		var item logistics.StockItem
		err = database.LockForUpdate(tx).First(&item, id).Error
	default:
		return fmt.Errorf("unknown booking resource %q", resource)
	}
	if err == gorm.ErrRecordNotFound {
		if resource == SpaceResource {
			return types.NotFound("Space not found")
		}
		return types.NotFound("Item not found")
	}
	return err
}

// BookSpace attaches a space to an activity. Any status is checked against
// existing Confirmed bookings of the space.
func BookSpace(tx *gorm.DB, act activity.Activity, spaceID uint, status string) (*activity.SpaceBooking, error) {
	if err := reserve(tx, act, SpaceResource, spaceID); err != nil {
		return nil, err
	}
	b := activity.SpaceBooking{ActivityID: act.ID, SpaceID: spaceID, Status: status}
	if err := tx.Create(&b).Error; err != nil {
		return nil, fmt.Errorf("failed to create space booking: %w", err)
	}
	return &b, nil
}

// BookStock attaches a stock item to an activity.
func BookStock(tx *gorm.DB, act activity.Activity, itemID uint, status string) (*activity.StockBooking, error) {
	if err := reserve(tx, act, StockResource, itemID); err != nil {
		return nil, err
	}
	b := activity.StockBooking{ActivityID: act.ID, ItemID: itemID, Status: status}
	if err := tx.Create(&b).Error; err != nil {
		return nil, fmt.Errorf("failed to create stock booking: %w", err)
	}
	return &b, nil
}

func reserve(tx *gorm.DB, act activity.Activity, resource Resource, id uint) error {
	if err := lockResource(tx, resource, id); err != nil {
		return err
	}
	conflict, err := HasConflict(tx, Query{Resource: resource, ResourceID: id, Start: act.StartTime, End: act.EndTime})
	if err != nil {
		return err
	}
	if conflict {
		if resource == SpaceResource {
			return types.Conflict("Space already booked for this time range")
		}
		return types.Conflict("Stock item already booked for this time range")
	}
	return nil
}

// ConfirmSpaceBooking moves a Pending space booking to Confirmed if the space is still free.
func ConfirmSpaceBooking(tx *gorm.DB, activityID, bookingID uint) (*activity.SpaceBooking, error) {
	var b activity.SpaceBooking
	if err := database.LockForUpdate(tx).Where("id = ? AND activity_id = ?", bookingID, activityID).First(&b).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.NotFound("Booking not found")
		}
		return nil, err
	}
	if err := confirm(tx, SpaceResource, b.ActivityID, b.ID, b.SpaceID, b.Status); err != nil {
		return nil, err
	}
	if b.Status != constants.BookingConfirmed {
		b.Status = constants.BookingConfirmed
		if err := tx.Model(&b).Update("status", b.Status).Error; err != nil {
			return nil, err
		}
	}
	return &b, nil
}

// ConfirmStockBooking moves a Pending stock booking to Confirmed if the item is still free.
func ConfirmStockBooking(tx *gorm.DB, activityID, bookingID uint) (*activity.StockBooking, error) {
	var b activity.StockBooking
	if err := database.LockForUpdate(tx).Where("id = ? AND activity_id = ?", bookingID, activityID).First(&b).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.NotFound("Booking not found")
		}
		return nil, err
	}
	if err := confirm(tx, StockResource, b.ActivityID, b.ID, b.ItemID, b.Status); err != nil {
		return nil, err
	}
	if b.Status != constants.BookingConfirmed {
		b.Status = constants.BookingConfirmed
		if err := tx.Model(&b).Update("status", b.Status).Error; err != nil {
			return nil, err
		}
	}
	return &b, nil
}

func confirm(tx *gorm.DB, resource Resource, activityID, bookingID, resourceID uint, status string) error {
	if status == constants.BookingConfirmed {
		return nil
	}
	var act activity.Activity
	if err := tx.First(&act, activityID).Error; err != nil {
		return err
	}
	if err := lockResource(tx, resource, resourceID); err != nil {
		return err
	}
	conflict, err := HasConflict(tx, Query{
		Resource: resource, ResourceID: resourceID,
		Start: act.StartTime, End: act.EndTime,
		ExcludeBookingID: bookingID,
	})
	if err != nil {
		return err
	}
	if conflict {
		return types.Conflict("Resource already booked for this time range")
	}
	return nil
}

// CheckMove verifies an activity can move to [start, end) without colliding
// with other activities' Confirmed bookings on any space or item it holds.
func CheckMove(tx *gorm.DB, activityID uint, start, end time.Time) error {
	var spaces []activity.SpaceBooking
	if err := tx.Where("activity_id = ?", activityID).Find(&spaces).Error; err != nil {
		return err
	}
	for _, b := range spaces {
		conflict, err := HasConflict(tx, Query{Resource: SpaceResource, ResourceID: b.SpaceID, Start: start, End: end, ExcludeActivityID: activityID})
		if err != nil {
			return err
		}
		if conflict {
			return types.Conflict("Space booking conflict with updated time range")
		}
	}

	var items []activity.StockBooking
	if err := tx.Where("activity_id = ?", activityID).Find(&items).Error; err != nil {
		return err
	}
	for _, b := range items {
		conflict, err := HasConflict(tx, Query{Resource: StockResource, ResourceID: b.ItemID, Start: start, End: end, ExcludeActivityID: activityID})
		if err != nil {
			return err
		}
		if conflict {
			return types.Conflict("Stock booking conflict with updated time range")
		}
	}
	return nil
}
