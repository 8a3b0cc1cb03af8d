package user

import (
	"errors"

	"institution-manager/logger"
	"institution-manager/middleware"
	"institution-manager/models/user"
	"institution-manager/services/access"
	"institution-manager/types"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

// Me returns the caller's profile, roles and group ids. Anonymous callers
// get an empty profile.
func (uc *UserController) Me(c *fiber.Ctx) error {
	principal := middleware.CurrentUser(c)
	if principal.IsAnonymous() {
		return utils.Respond(c, fiber.StatusOK, "Anonymous user", fiber.Map{
			"id":        principal.ID,
			"roles":     []string{},
			"group_ids": []uint{},
		})
	}

	var u user.User
	if err := uc.DB.First(&u, principal.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("User not found", err)
			return utils.RespondError(c, types.NotFound("User not found"))
		}
		return utils.RespondError(c, err)
	}
	groupIDs, err := access.GroupIDs(uc.DB, u.ID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if groupIDs == nil {
		groupIDs = []uint{}
	}

	info := fiber.Map{
		"id":          u.ID,
		"keycloak_id": u.KeycloakID,
		"dni":         u.DNI,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"email":       u.Email,
		"roles":       principal.Roles,
		"group_ids":   groupIDs,
		"created_at":  u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	return utils.Respond(c, fiber.StatusOK, "User fetched successfully", info)
}

// Health reports liveness and whether the database answers
func (uc *UserController) Health(c *fiber.Ctx) error {
	sqlDB, err := uc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		logger.Error("Database ping failed", err)
		return utils.Respond(c, fiber.StatusServiceUnavailable, "Database unavailable", fiber.Map{"status": "degraded"})
	}
	return utils.Respond(c, fiber.StatusOK, "OK", fiber.Map{"status": "ok"})
}
