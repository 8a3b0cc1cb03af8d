package logistics

import (
	"encoding/json"

	"institution-manager/services/customfield"
	"institution-manager/types"
)

type BuildingCreateRequest struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address"`
}

func (r *BuildingCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type SpaceCreateRequest struct {
	BuildingID      uint                     `json:"building_id" validate:"required"`
	Name            string                   `json:"name" validate:"required"`
	Type            *string                  `json:"type"`
	Capacity        *int                     `json:"capacity" validate:"omitempty,min=0"`
	SpaceTypeID     *uint                    `json:"space_type_id"`
	SpaceTemplateID *uint                    `json:"space_template_id"`
	CustomFields    []customfield.Submission `json:"custom_fields"`
}

func (r *SpaceCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type SpaceUpdateRequest struct {
	Name         *string                  `json:"name" validate:"omitempty,min=1"`
	Type         *string                  `json:"type"`
	Capacity     *int                     `json:"capacity" validate:"omitempty,min=0"`
	SpaceTypeID  *uint                    `json:"space_type_id"`
	CustomFields []customfield.Submission `json:"custom_fields"`
}

func (r *SpaceUpdateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type StockCategoryCreateRequest struct {
	Name string `json:"name" validate:"required"`
}

func (r *StockCategoryCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type StockItemCreateRequest struct {
	CategoryID  uint    `json:"category_id" validate:"required"`
	StockTypeID *uint   `json:"stock_type_id"`
	Name        string  `json:"name" validate:"required"`
	SKU         string  `json:"sku" validate:"required"`
	Description *string `json:"description"`
}

func (r *StockItemCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

// TypeRequest creates or updates a space type or a stock type.
type TypeRequest struct {
	Name     string          `json:"name"`
	Metadata json.RawMessage `json:"metadata"`
}

func (r *TypeRequest) Validate(partial bool) error {
	if !partial && r.Name == "" {
		return types.Validation("name is required")
	}
	return nil
}

type TemplateCreateRequest struct {
	Name        string                         `json:"name" validate:"required"`
	Description *string                        `json:"description"`
	Fields      []types.FieldDefinitionRequest `json:"fields" validate:"dive"`
}

func (r *TemplateCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type TemplateUpdateRequest struct {
	Name        *string                                        `json:"name"`
	Description *string                                        `json:"description"`
	Fields      types.Optional[[]types.FieldDefinitionRequest] `json:"fields"`
}

func (r *TemplateUpdateRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return types.Validation("name must not be empty")
	}
	if r.Fields.Set && r.Fields.Value != nil {
		return types.ValidateFieldDefinitions(*r.Fields.Value)
	}
	return nil
}
