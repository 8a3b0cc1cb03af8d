// Package movement appends ticket audit entries inside the caller's transaction.
package movement

import (
	"encoding/json"
	"fmt"
	"time"

	"institution-manager/models/ticket"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Action string

const (
	Create        Action = "CREATE"
	Claim         Action = "CLAIM"
	Assign        Action = "ASSIGN"
	TransferQueue Action = "TRANSFER_QUEUE"
	StatusChange  Action = "STATUS_CHANGE"
	Comment       Action = "COMMENT"
)

// Details is the per-action payload of a movement entry.
type Details interface {
	Action() Action
}

type CreateDetails struct {
	QueueID uint `json:"queue_id"`
}

type ClaimDetails struct {
	NewAgent uint `json:"new_agent"`
}

type AssignDetails struct {
	OldAgent *uint `json:"old_agent"`
	NewAgent uint  `json:"new_agent"`
}

type TransferDetails struct {
	OldQueue *uint  `json:"old_queue"`
	NewQueue uint   `json:"new_queue"`
	Reason   string `json:"reason,omitempty"`
}

type StatusChangeDetails struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type CommentDetails struct {
	CommentID  uint `json:"comment_id"`
	IsInternal bool `json:"is_internal"`
}

func (CreateDetails) Action() Action       { return Create }
func (ClaimDetails) Action() Action        { return Claim }
func (AssignDetails) Action() Action       { return Assign }
func (TransferDetails) Action() Action     { return TransferQueue }
func (StatusChangeDetails) Action() Action { return StatusChange }
func (CommentDetails) Action() Action      { return Comment }

// Record inserts a movement entry with tx. It does not commit; the entry
// becomes durable with the rest of the caller's transaction.
func Record(tx *gorm.DB, ticketID, actorID uint, details Details) (*ticket.MovementLog, error) {
	payload, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s details: %w", details.Action(), err)
	}

	entry := ticket.MovementLog{
		TicketID:     ticketID,
		Timestamp:    time.Now().UTC(),
		ActionUserID: actorID,
		ActionType:   string(details.Action()),
		Details:      datatypes.JSON(payload),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to record %s movement: %w", details.Action(), err)
	}
	return &entry, nil
}

// Decode restores the typed details of a stored entry.
func Decode(action string, raw datatypes.JSON) (Details, error) {
	var d Details
	switch Action(action) {
	case Create:
		d = &CreateDetails{}
	case Claim:
		d = &ClaimDetails{}
	case Assign:
		d = &AssignDetails{}
	case TransferQueue:
		d = &TransferDetails{}
	case StatusChange:
		d = &StatusChangeDetails{}
	case Comment:
		d = &CommentDetails{}
	default:
		return nil, fmt.Errorf("unknown movement action %q", action)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, d); err != nil {
			return nil, fmt.Errorf("failed to decode %s details: %w", action, err)
		}
	}
	return d, nil
}
