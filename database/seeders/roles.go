package seeders

import (
	"fmt"

	"institution-manager/constants"
	"institution-manager/logger"
	"institution-manager/models/user"

	"gorm.io/gorm"
)

// SeedRoles makes sure every built-in role row exists.
func SeedRoles(db *gorm.DB) error {
	for _, name := range constants.BuiltinRoles {
		role := user.Role{Name: name}
		res := db.Where(user.Role{Name: name}).FirstOrCreate(&role)
		if res.Error != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, res.Error)
		}
		if res.RowsAffected > 0 {
			logger.Success(fmt.Sprintf("Seeded role %s", name))
		}
	}
	return nil
}
