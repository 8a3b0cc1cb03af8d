package admin

import "institution-manager/types"

type RoleAssignRequest struct {
	UserID   uint   `json:"user_id" validate:"required"`
	RoleName string `json:"role_name"`
}

func (r *RoleAssignRequest) Validate() error {
	return types.ValidateStruct(r)
}

type UserCreateRequest struct {
	KeycloakID string  `json:"keycloak_id" validate:"required"`
	DNI        *string `json:"dni"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email" validate:"omitempty,email"`
}

func (r *UserCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type UserUpdateRequest struct {
	DNI       *string `json:"dni"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

func (r *UserUpdateRequest) Validate() error {
	return types.ValidateStruct(r)
}

// BulkUserRow is one row of a bulk import. Roles are granted by name and
// created when missing.
type BulkUserRow struct {
	UserCreateRequest
	Roles []string `json:"roles"`
}

// BulkUsersRequest is validated row by row so one bad row does not sink the batch.
type BulkUsersRequest struct {
	Users []BulkUserRow `json:"users"`
}

func (r *BulkUsersRequest) Validate() error {
	if len(r.Users) == 0 {
		return types.Validation("users must not be empty")
	}
	return nil
}

type BulkUserResult struct {
	Row    int    `json:"row"`
	Status string `json:"status"`
	UserID uint   `json:"user_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

type GroupCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

func (r *GroupCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type UserGroupAssignRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

func (r *UserGroupAssignRequest) Validate() error {
	return types.ValidateStruct(r)
}

type QueueCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

func (r *QueueCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type QueueUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

func (r *QueueUpdateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type QueuePermissionRequest struct {
	GroupID uint `json:"group_id" validate:"required"`
	QueueID uint `json:"queue_id" validate:"required"`
}

func (r *QueuePermissionRequest) Validate() error {
	return types.ValidateStruct(r)
}

type AgentAssignmentRequest struct {
	AgentUserID   uint   `json:"agent_user_id" validate:"required"`
	QueueID       uint   `json:"queue_id" validate:"required"`
	AccessLevel   string `json:"access_level" validate:"omitempty,oneof='Tier 1' 'Tier 2' Manager"`
	AllowTransfer bool   `json:"allow_transfer"`
}

func (r *AgentAssignmentRequest) Validate() error {
	return types.ValidateStruct(r)
}

type TicketTypeCreateRequest struct {
	QueueID         uint                           `json:"queue_id" validate:"required"`
	Name            string                         `json:"name" validate:"required"`
	AllowedGroupIDs []uint                         `json:"allowed_group_ids"`
	Fields          []types.FieldDefinitionRequest `json:"fields" validate:"dive"`
}

func (r *TicketTypeCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

type TicketTypeUpdateRequest struct {
	QueueID         *uint                                          `json:"queue_id"`
	Name            *string                                        `json:"name"`
	AllowedGroupIDs types.Optional[[]uint]                         `json:"allowed_group_ids"`
	Fields          types.Optional[[]types.FieldDefinitionRequest] `json:"fields"`
}

func (r *TicketTypeUpdateRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return types.Validation("name must not be empty")
	}
	if r.Fields.Set && r.Fields.Value != nil {
		return types.ValidateFieldDefinitions(*r.Fields.Value)
	}
	return nil
}
