package user

import (
	"time"
)

// User is the local mirror of an identity-provider account.
type User struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	KeycloakID string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"keycloak_id"`
	DNI        *string `gorm:"type:varchar(50)" json:"dni"`
	FirstName  *string `gorm:"type:varchar(255)" json:"first_name"`
	LastName   *string `gorm:"type:varchar(255)" json:"last_name"`
	Email      *string `gorm:"type:varchar(255);uniqueIndex" json:"email"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
}

type UserRole struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_user_roles_pair" json:"user_id"`
	RoleID uint `gorm:"not null;uniqueIndex:idx_user_roles_pair" json:"role_id"`
}

type Group struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}

type UserGroup struct {
	ID      uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_user_groups_pair" json:"user_id"`
	GroupID uint `gorm:"not null;uniqueIndex:idx_user_groups_pair" json:"group_id"`
}

// Minimal is the user shape embedded in ticket history responses.
type Minimal struct {
	ID        uint    `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (u User) Minimal() Minimal {
	return Minimal{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}
