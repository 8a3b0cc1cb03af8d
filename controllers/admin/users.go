package admin

import (
	"fmt"

	"institution-manager/logger"
	queueModel "institution-manager/models/queue"
	ticketModel "institution-manager/models/ticket"
	userModel "institution-manager/models/user"
	"institution-manager/services/access"
	"institution-manager/types"
	adminTypes "institution-manager/types/admin"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type userListItem struct {
	ID         uint    `json:"id"`
	KeycloakID string  `json:"keycloak_id"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
}

// CreateUser registers a local user. An existing keycloak_id returns the
// stored user unchanged.
func (ac *AdminController) CreateUser(c *fiber.Ctx) error {
	var req adminTypes.UserCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var existing []userModel.User
	if err := ac.DB.Where("keycloak_id = ?", req.KeycloakID).Limit(1).Find(&existing).Error; err != nil {
		return utils.RespondError(c, err)
	}
	if len(existing) > 0 {
		return utils.Respond(c, fiber.StatusOK, "User already exists", existing[0])
	}

	u := userModel.User{
		KeycloakID: req.KeycloakID,
		DNI:        req.DNI,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
	}
	if err := ac.DB.Create(&u).Error; err != nil {
		return utils.RespondError(c, err)
	}
	logger.Success("User created: " + u.KeycloakID)
	return utils.Respond(c, fiber.StatusCreated, "User created successfully", u)
}

// ListUsers returns a lightweight listing of every user
func (ac *AdminController) ListUsers(c *fiber.Ctx) error {
	var users []userModel.User
	if err := ac.DB.Order("id").Find(&users).Error; err != nil {
		return utils.RespondError(c, err)
	}
	out := make([]userListItem, 0, len(users))
	for _, u := range users {
		out = append(out, userListItem{
			ID:         u.ID,
			KeycloakID: u.KeycloakID,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Email:      u.Email,
		})
	}
	return utils.Respond(c, fiber.StatusOK, "Users fetched successfully", out)
}

// GetUser returns one user
func (ac *AdminController) GetUser(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	u, err := findUser(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "User fetched successfully", u)
}

// UserRoles lists the local role names of a user
func (ac *AdminController) UserRoles(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	names, err := access.LocalRoles(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return utils.Respond(c, fiber.StatusOK, "Roles fetched successfully", names)
}

// UpdateUser applies the provided profile fields
func (ac *AdminController) UpdateUser(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req adminTypes.UserUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	u, err := findUser(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if req.DNI != nil {
		u.DNI = req.DNI
	}
	if req.FirstName != nil {
		u.FirstName = req.FirstName
	}
	if req.LastName != nil {
		u.LastName = req.LastName
	}
	if req.Email != nil {
		u.Email = req.Email
	}
	if err := ac.DB.Save(u).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "User updated successfully", u)
}

// DeleteUser removes a user nothing refers to. Tickets, comments, movements
// and agent assignments always block the delete.
func (ac *AdminController) DeleteUser(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		u, err := findUser(tx, id)
		if err != nil {
			return err
		}
		refs := []struct {
			model interface{}
			where string
		}{
			{&ticketModel.Ticket{}, "client_user_id = @id OR current_agent_id = @id"},
			{&ticketModel.TicketComment{}, "author_user_id = @id"},
			{&ticketModel.MovementLog{}, "action_user_id = @id"},
			{&queueModel.AgentAssignment{}, "agent_user_id = @id"},
		}
		for _, ref := range refs {
			var n int64
			if err := tx.Model(ref.model).Where(ref.where, map[string]interface{}{"id": id}).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return types.IntegrityGuard("Cannot delete user referenced by tickets/comments/movements/assignments")
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&userModel.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&userModel.UserGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(u).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkUsers creates or updates users row by row. Each row commits on its own
// and reports its outcome; a failing row does not roll back the others.
func (ac *AdminController) BulkUsers(c *fiber.Ctx) error {
	var req adminTypes.BulkUsersRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	results := make([]adminTypes.BulkUserResult, 0, len(req.Users))
	for i, row := range req.Users {
		result := adminTypes.BulkUserResult{Row: i + 1}
		if err := row.Validate(); err != nil {
			result.Status = "error"
			result.Error = types.MessageOf(err)
			results = append(results, result)
			continue
		}

		err := ac.DB.Transaction(func(tx *gorm.DB) error {
			var u userModel.User
			res := tx.Where("keycloak_id = ?", row.KeycloakID).Limit(1).Find(&u)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				u = userModel.User{
					KeycloakID: row.KeycloakID,
					DNI:        row.DNI,
					FirstName:  row.FirstName,
					LastName:   row.LastName,
					Email:      row.Email,
				}
				if err := tx.Create(&u).Error; err != nil {
					return err
				}
				result.Status = "created"
			} else {
				mergeNonEmpty(&u.DNI, row.DNI)
				mergeNonEmpty(&u.FirstName, row.FirstName)
				mergeNonEmpty(&u.LastName, row.LastName)
				mergeNonEmpty(&u.Email, row.Email)
				if err := tx.Save(&u).Error; err != nil {
					return err
				}
				result.Status = "updated"
			}
			for _, name := range row.Roles {
				if name == "" {
					continue
				}
				if _, err := grantRole(tx, u.ID, name); err != nil {
					return err
				}
			}
			result.UserID = u.ID
			return nil
		})
		if err != nil {
			logger.Warning(fmt.Sprintf("Bulk user row %d failed: %v", i+1, err))
			result.Status = "error"
			result.UserID = 0
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return utils.Respond(c, fiber.StatusOK, "Bulk import processed", fiber.Map{"results": results})
}

func mergeNonEmpty(dst **string, v *string) {
	if v != nil && *v != "" {
		*dst = v
	}
}
