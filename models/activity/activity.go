package activity

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityCategory struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

type ActivityType struct {
	ID       uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string         `gorm:"type:varchar(255);not null" json:"name"`
	Metadata datatypes.JSON `json:"metadata"`
}

type ActivityTypeField struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityTypeID uint           `gorm:"not null;index" json:"activity_type_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	FieldType      string         `gorm:"type:varchar(20);not null;default:text" json:"field_type"`
	Options        datatypes.JSON `json:"options"`
}

type ActivityFieldValue struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityID uint    `gorm:"not null;uniqueIndex:idx_activity_field_values_pair" json:"activity_id"`
	FieldID    uint    `gorm:"not null;uniqueIndex:idx_activity_field_values_pair;index" json:"field_id"`
	Value      *string `gorm:"type:text" json:"value"`
}

// Activity times are stored in UTC.
type Activity struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID      uint      `gorm:"not null;index" json:"category_id"`
	ActivityTypeID  *uint     `gorm:"index" json:"activity_type_id"`
	Title           string    `gorm:"type:varchar(255);not null" json:"title"`
	Description     *string   `gorm:"type:text" json:"description"`
	OrganizerUserID uint      `gorm:"not null;index" json:"organizer_user_id"`
	StartTime       time.Time `gorm:"not null;index" json:"start_time"`
	EndTime         time.Time `gorm:"not null;index" json:"end_time"`
}

type SpaceBooking struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityID uint   `gorm:"not null;index" json:"activity_id"`
	SpaceID    uint   `gorm:"not null;index" json:"space_id"`
	Status     string `gorm:"type:varchar(20);not null;default:Pending" json:"status"`
}

type StockBooking struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityID uint   `gorm:"not null;index" json:"activity_id"`
	ItemID     uint   `gorm:"not null;index" json:"item_id"`
	Status     string `gorm:"type:varchar(20);not null;default:Pending" json:"status"`
}
