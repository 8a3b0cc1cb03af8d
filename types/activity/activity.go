package activity

import (
	"encoding/json"
	"time"

	"institution-manager/constants"
	"institution-manager/services/customfield"
	"institution-manager/types"
)

type CategoryCreateRequest struct {
	Name string `json:"name" validate:"required"`
}

func (r *CategoryCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type TypeCreateRequest struct {
	Name     string                         `json:"name" validate:"required"`
	Metadata json.RawMessage                `json:"metadata"`
	Fields   []types.FieldDefinitionRequest `json:"fields" validate:"dive"`
}

func (r *TypeCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

// TypeUpdateRequest replaces the whole field set when "fields" is present.
type TypeUpdateRequest struct {
	Name     *string                                        `json:"name"`
	Metadata json.RawMessage                                `json:"metadata"`
	Fields   types.Optional[[]types.FieldDefinitionRequest] `json:"fields"`
}

func (r *TypeUpdateRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return types.Validation("name must not be empty")
	}
	if r.Fields.Set && r.Fields.Value != nil {
		return types.ValidateFieldDefinitions(*r.Fields.Value)
	}
	return nil
}

type CreateRequest struct {
	Title           string                   `json:"title" validate:"required"`
	Description     *string                  `json:"description"`
	CategoryID      uint                     `json:"category_id" validate:"required"`
	ActivityTypeID  *uint                    `json:"activity_type_id"`
	StartTime       time.Time                `json:"start_time" validate:"required"`
	EndTime         time.Time                `json:"end_time" validate:"required"`
	OrganizerUserID uint                     `json:"organizer_user_id"`
	CustomFields    []customfield.Submission `json:"custom_fields"`
}

func (r *CreateRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if !r.EndTime.After(r.StartTime) {
		return types.Validation("end_time must be after start_time")
	}
	return nil
}

type UpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	CategoryID  *uint      `json:"category_id"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

func (r *UpdateRequest) Validate() error {
	if r.Title != nil && *r.Title == "" {
		return types.Validation("title must not be empty")
	}
	return nil
}

type SpaceBookingRequest struct {
	SpaceID uint   `json:"space_id" validate:"required"`
	Status  string `json:"status" validate:"omitempty,oneof=Pending Confirmed"`
}

func (r *SpaceBookingRequest) Validate() error {
	if r.Status == "" {
		r.Status = constants.BookingConfirmed
	}
	return types.ValidateStruct(r)
}

type StockBookingRequest struct {
	ItemID uint   `json:"item_id" validate:"required"`
	Status string `json:"status" validate:"omitempty,oneof=Pending Confirmed"`
}

func (r *StockBookingRequest) Validate() error {
	if r.Status == "" {
		r.Status = constants.BookingConfirmed
	}
	return types.ValidateStruct(r)
}
