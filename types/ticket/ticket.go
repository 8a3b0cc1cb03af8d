package ticket

import (
	"time"

	"institution-manager/services/customfield"
	"institution-manager/types"
)

type CreateRequest struct {
	Subject      string                   `json:"subject" validate:"required"`
	Description  *string                  `json:"description"`
	QueueID      uint                     `json:"queue_id" validate:"required"`
	TicketTypeID *uint                    `json:"ticket_type_id"`
	Priority     *string                  `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	CustomFields []customfield.Submission `json:"custom_fields"`
}

func (r *CreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type AssignRequest struct {
	TargetAgentID uint `json:"target_agent_id" validate:"required"`
}

func (r *AssignRequest) Validate() error {
	return types.ValidateStruct(r)
}

type TransferRequest struct {
	TargetQueueID uint    `json:"target_queue_id" validate:"required"`
	Reason        *string `json:"reason"`
}

func (r *TransferRequest) Validate() error {
	return types.ValidateStruct(r)
}

type StatusChangeRequest struct {
	Status     string     `json:"status" validate:"required,oneof=New 'In Progress' 'On Hold' Resolved Closed"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

func (r *StatusChangeRequest) Validate() error {
	return types.ValidateStruct(r)
}

type CommentRequest struct {
	CommentText string `json:"comment_text" validate:"required"`
	IsInternal  bool   `json:"is_internal"`
}

func (r *CommentRequest) Validate() error {
	return types.ValidateStruct(r)
}

// TriageSuggestion is the model's answer for a ticket priority.
type TriageSuggestion struct {
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}
