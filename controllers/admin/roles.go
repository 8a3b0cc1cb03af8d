package admin

import (
	"errors"

	"institution-manager/config"
	"institution-manager/constants"
	userModel "institution-manager/models/user"
	"institution-manager/types"
	adminTypes "institution-manager/types/admin"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminController handles realm administration: users, roles, groups,
// queues and ticket types. Every route is behind the admin role.
type AdminController struct {
	DB       *gorm.DB
	Settings *config.Settings
}

func NewAdminController(db *gorm.DB, settings *config.Settings) *AdminController {
	return &AdminController{
		DB:       db,
		Settings: settings,
	}
}

// ensureRole returns the named role, creating it when missing
func ensureRole(tx *gorm.DB, name string) (*userModel.Role, error) {
	role := userModel.Role{Name: name}
	if err := tx.Where(userModel.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func findUser(tx *gorm.DB, id uint) (*userModel.User, error) {
	var u userModel.User
	err := tx.First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// grantRole links a user to a role and reports whether a new link was made
func grantRole(tx *gorm.DB, userID uint, roleName string) (bool, error) {
	role, err := ensureRole(tx, roleName)
	if err != nil {
		return false, err
	}
	var n int64
	if err := tx.Model(&userModel.UserRole{}).Where("user_id = ? AND role_id = ?", userID, role.ID).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := tx.Create(&userModel.UserRole{UserID: userID, RoleID: role.ID}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// ListRoles returns every known role
func (ac *AdminController) ListRoles(c *fiber.Ctx) error {
	var roles []userModel.Role
	if err := ac.DB.Order("name").Find(&roles).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Roles fetched successfully", roles)
}

func (ac *AdminController) assignRole(c *fiber.Ctx, fallback string) error {
	var req adminTypes.RoleAssignRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	if req.RoleName == "" {
		req.RoleName = fallback
	}
	if req.RoleName == "" {
		return utils.RespondError(c, types.Validation("role_name is required"))
	}

	var created bool
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, req.UserID); err != nil {
			return err
		}
		var err error
		created, err = grantRole(tx, req.UserID, req.RoleName)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	status := "assigned"
	if !created {
		status = "already_assigned"
	}
	return utils.Respond(c, fiber.StatusOK, "Role "+status, fiber.Map{"status": status})
}

func (ac *AdminController) removeRole(c *fiber.Ctx, fallback string) error {
	var req adminTypes.RoleAssignRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	if req.RoleName == "" {
		req.RoleName = fallback
	}
	if req.RoleName == "" {
		return utils.RespondError(c, types.Validation("role_name is required"))
	}

	var role userModel.Role
	err := ac.DB.Where("name = ?", req.RoleName).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.RespondError(c, types.NotFound("Role not found"))
	}
	if err != nil {
		return utils.RespondError(c, err)
	}
	res := ac.DB.Where("user_id = ? AND role_id = ?", req.UserID, role.ID).Delete(&userModel.UserRole{})
	if res.Error != nil {
		return utils.RespondError(c, res.Error)
	}
	status := "removed"
	if res.RowsAffected == 0 {
		status = "not_assigned"
	}
	return utils.Respond(c, fiber.StatusOK, "Role "+status, fiber.Map{"status": status})
}

// AssignRole grants a role, creating it on first use
func (ac *AdminController) AssignRole(c *fiber.Ctx) error {
	return ac.assignRole(c, "")
}

// RemoveRole revokes a role
func (ac *AdminController) RemoveRole(c *fiber.Ctx) error {
	return ac.removeRole(c, "")
}

// MakeAgent grants the agent role
func (ac *AdminController) MakeAgent(c *fiber.Ctx) error {
	return ac.assignRole(c, constants.RoleAgent)
}

// RemoveAgent revokes the agent role
func (ac *AdminController) RemoveAgent(c *fiber.Ctx) error {
	return ac.removeRole(c, constants.RoleAgent)
}
