package seeders

import (
	"errors"
	"fmt"
	"strings"

	"institution-manager/constants"
	"institution-manager/models/user"

	"gorm.io/gorm"
)

// AdminUser describes the first administrator to provision.
type AdminUser struct {
	KeycloakID string
	Email      string
	FirstName  string
	LastName   string
	DNI        string
}

// AdminResult reports what CreateAdmin had to do.
type AdminResult struct {
	UserID       uint
	UserCreated  bool
	RoleAssigned bool
}

// CreateAdmin makes sure a user with the given identity exists and holds the
// admin role. Running it again for the same identity changes nothing.
func CreateAdmin(db *gorm.DB, a AdminUser) (*AdminResult, error) {
	if strings.TrimSpace(a.KeycloakID) == "" {
		return nil, errors.New("keycloak id is required")
	}

	result := &AdminResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		var u user.User
		err := tx.Where("keycloak_id = ?", a.KeycloakID).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u = user.User{
				KeycloakID: a.KeycloakID,
				Email:      optional(a.Email),
				FirstName:  optional(a.FirstName),
				LastName:   optional(a.LastName),
				DNI:        optional(a.DNI),
			}
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			result.UserCreated = true
		} else if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}
		result.UserID = u.ID

		role := user.Role{Name: constants.RoleAdmin}
		if err := tx.Where(user.Role{Name: constants.RoleAdmin}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to load admin role: %w", err)
		}
		var n int64
		if err := tx.Model(&user.UserRole{}).Where("user_id = ? AND role_id = ?", u.ID, role.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check admin role: %w", err)
		}
		if n > 0 {
			return nil
		}
		if err := tx.Create(&user.UserRole{UserID: u.ID, RoleID: role.ID}).Error; err != nil {
			return fmt.Errorf("failed to assign admin role: %w", err)
		}
		result.RoleAssigned = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
