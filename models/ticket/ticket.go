package ticket

import (
	"time"

	"gorm.io/datatypes"
)

type TicketType struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	QueueID *uint  `gorm:"index" json:"queue_id"`
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
}

// TicketTypeAllowedGroup restricts which groups may open tickets of a type.
// A type with no rows is open to every group with queue access.
type TicketTypeAllowedGroup struct {
	ID           uint `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketTypeID uint `gorm:"not null;uniqueIndex:idx_ticket_type_groups_pair" json:"ticket_type_id"`
	GroupID      uint `gorm:"not null;uniqueIndex:idx_ticket_type_groups_pair" json:"group_id"`
}

type TicketTypeField struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketTypeID uint           `gorm:"not null;index" json:"ticket_type_id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	FieldType    string         `gorm:"type:varchar(20);not null;default:text" json:"field_type"`
	Options      datatypes.JSON `json:"options"`
}

type TicketFieldValue struct {
	ID       uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID uint    `gorm:"not null;uniqueIndex:idx_ticket_field_values_pair" json:"ticket_id"`
	FieldID  uint    `gorm:"not null;uniqueIndex:idx_ticket_field_values_pair;index" json:"field_id"`
	Value    *string `gorm:"type:text" json:"value"`
}

type Ticket struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Subject        string     `gorm:"type:varchar(255);not null" json:"subject"`
	Description    *string    `gorm:"type:text" json:"description"`
	Status         string     `gorm:"type:varchar(50);not null;default:New" json:"status"`
	Priority       *string    `gorm:"type:varchar(20)" json:"priority"`
	ClientUserID   uint       `gorm:"not null;index" json:"client_user_id"`
	CurrentAgentID *uint      `gorm:"index" json:"current_agent_id"`
	CurrentQueueID *uint      `gorm:"index" json:"current_queue_id"`
	TicketTypeID   *uint      `gorm:"index" json:"ticket_type_id"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
}

type TicketComment struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID     uint      `gorm:"not null;index" json:"ticket_id"`
	AuthorUserID uint      `gorm:"not null" json:"author_user_id"`
	CommentText  string    `gorm:"type:text;not null" json:"comment_text"`
	IsInternal   bool      `gorm:"not null;default:false" json:"is_internal"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MovementLog is an append-only audit row. Rows are never updated or deleted.
type MovementLog struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID     uint           `gorm:"not null;index" json:"ticket_id"`
	Timestamp    time.Time      `gorm:"not null" json:"timestamp"`
	ActionUserID uint           `gorm:"not null" json:"action_user_id"`
	ActionType   string         `gorm:"type:varchar(50);not null" json:"action_type"`
	Details      datatypes.JSON `json:"details"`
}

func (MovementLog) TableName() string {
	return "ticket_movement_log"
}

type Attachment struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID       uint      `gorm:"not null;index" json:"ticket_id"`
	CommentID      *uint     `gorm:"index" json:"comment_id"`
	FileName       string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath       string    `gorm:"type:text;not null" json:"file_path"`
	UploaderUserID uint      `gorm:"not null" json:"uploader_user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
