package booking_test

import (
	"errors"
	"testing"
	"time"

	"institution-manager/constants"
	"institution-manager/database/testdb"
	"institution-manager/models/activity"
	"institution-manager/models/logistics"
	"institution-manager/services/booking"
	"institution-manager/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type fixture struct {
	db       *gorm.DB
	space    logistics.Space
	item     logistics.StockItem
	category activity.ActivityCategory
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testdb.Open(t)

	building := logistics.Building{Name: "Main"}
	require.NoError(t, db.Create(&building).Error)
	space := logistics.Space{BuildingID: building.ID, Name: "Room 101"}
	require.NoError(t, db.Create(&space).Error)
	stockCategory := logistics.StockCategory{Name: "AV"}
	require.NoError(t, db.Create(&stockCategory).Error)
	item := logistics.StockItem{CategoryID: stockCategory.ID, Name: "Projector", SKU: "PRJ-1"}
	require.NoError(t, db.Create(&item).Error)
	category := activity.ActivityCategory{Name: "Lecture"}
	require.NoError(t, db.Create(&category).Error)

	return fixture{db: db, space: space, item: item, category: category}
}

func (f fixture) activity(t *testing.T, start, end time.Time) activity.Activity {
	t.Helper()
	a := activity.Activity{CategoryID: f.category.ID, Title: "Session", OrganizerUserID: 1, StartTime: start, EndTime: end}
	require.NoError(t, f.db.Create(&a).Error)
	return a
}

func TestHalfOpenOverlapBoundary(t *testing.T) {
	f := setup(t)
	a := f.activity(t, at(9, 0), at(10, 0))
	_, err := booking.BookSpace(f.db, a, f.space.ID, constants.BookingConfirmed)
	require.NoError(t, err)

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"back to back after", at(10, 0), at(11, 0), false},
		{"back to back before", at(8, 0), at(9, 0), false},
		{"overlaps the end", at(9, 30), at(10, 30), true},
		{"overlaps the start", at(8, 30), at(9, 30), true},
		{"contained", at(9, 15), at(9, 45), true},
		{"contains", at(8, 0), at(11, 0), true},
		{"identical", at(9, 0), at(10, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := booking.HasConflict(f.db, booking.Query{
				Resource: booking.SpaceResource, ResourceID: f.space.ID, Start: tc.start, End: tc.end,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConfirmedBookingRejectsOverlappingRequest(t *testing.T) {
	f := setup(t)
	first := f.activity(t, at(9, 0), at(10, 0))
	overlapping := f.activity(t, at(9, 30), at(10, 30))
	adjacent := f.activity(t, at(10, 0), at(11, 0))

	_, err := booking.BookSpace(f.db, first, f.space.ID, constants.BookingConfirmed)
	require.NoError(t, err)

	_, err = booking.BookSpace(f.db, overlapping, f.space.ID, constants.BookingConfirmed)
	assert.True(t, errors.Is(err, types.ErrConflict))

	b, err := booking.BookSpace(f.db, adjacent, f.space.ID, constants.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, constants.BookingConfirmed, b.Status)
}

func TestPendingBookingsNeverBlock(t *testing.T) {
	f := setup(t)
	first := f.activity(t, at(9, 0), at(10, 0))
	second := f.activity(t, at(9, 0), at(10, 0))

	_, err := booking.BookStock(f.db, first, f.item.ID, constants.BookingPending)
	require.NoError(t, err)

	_, err = booking.BookStock(f.db, second, f.item.ID, constants.BookingConfirmed)
	require.NoError(t, err)
}

func TestBookingUnknownResource(t *testing.T) {
	f := setup(t)
	a := f.activity(t, at(9, 0), at(10, 0))

	_, err := booking.BookSpace(f.db, a, 999, constants.BookingConfirmed)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	_, err = booking.BookStock(f.db, a, 999, constants.BookingConfirmed)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestConfirmPendingBooking(t *testing.T) {
	f := setup(t)
	holder := f.activity(t, at(9, 0), at(10, 0))
	waiting := f.activity(t, at(9, 30), at(10, 30))

	pending, err := booking.BookSpace(f.db, waiting, f.space.ID, constants.BookingPending)
	require.NoError(t, err)
	_, err = booking.BookSpace(f.db, holder, f.space.ID, constants.BookingConfirmed)
	require.NoError(t, err)

	_, err = booking.ConfirmSpaceBooking(f.db, waiting.ID, pending.ID)
	assert.True(t, errors.Is(err, types.ErrConflict))

	require.NoError(t, f.db.Delete(&activity.SpaceBooking{}, "activity_id = ?", holder.ID).Error)

	confirmed, err := booking.ConfirmSpaceBooking(f.db, waiting.ID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BookingConfirmed, confirmed.Status)

	_, err = booking.ConfirmSpaceBooking(f.db, holder.ID, pending.ID)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestCheckMoveIgnoresOwnBookings(t *testing.T) {
	f := setup(t)
	morning := f.activity(t, at(9, 0), at(10, 0))
	noon := f.activity(t, at(12, 0), at(13, 0))

	_, err := booking.BookSpace(f.db, morning, f.space.ID, constants.BookingConfirmed)
	require.NoError(t, err)
	_, err = booking.BookStock(f.db, noon, f.item.ID, constants.BookingConfirmed)
	require.NoError(t, err)
	_, err = booking.BookSpace(f.db, noon, f.space.ID, constants.BookingConfirmed)
	require.NoError(t, err)

	// shifting within its own slot is fine
	require.NoError(t, booking.CheckMove(f.db, noon.ID, at(11, 0), at(13, 0)))
	// moving onto the morning booking of the same space is not
	err = booking.CheckMove(f.db, noon.ID, at(9, 30), at(10, 30))
	assert.True(t, errors.Is(err, types.ErrConflict))
	// ending exactly when the morning starts is fine
	require.NoError(t, booking.CheckMove(f.db, noon.ID, at(8, 0), at(9, 0)))
}
