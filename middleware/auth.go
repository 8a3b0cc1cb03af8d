package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"institution-manager/config"
	"institution-manager/constants"
	"institution-manager/httpServices/oidc"
	"institution-manager/logger"
	"institution-manager/models/user"
	"institution-manager/services/access"
	"institution-manager/types"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const principalKey = "user"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*oidc.Claims, error)
}

// Authenticate resolves the caller for every request. In bypass mode an
// X-Test-User header impersonates a local user id. Otherwise a bearer token
// (header or "access" cookie) is verified. Requests without credentials
// continue as the anonymous principal.
func Authenticate(db *gorm.DB, settings *config.Settings, verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if settings.Keycloak.Bypass {
			if header := c.Get("X-Test-User"); header != "" {
				principal, err := impersonate(db, header)
				if err != nil {
					return unauthorized(c, err)
				}
				c.Locals(principalKey, principal)
				return c.Next()
			}
		}

		token, err := bearerToken(c)
		if err != nil {
			return unauthorized(c, err)
		}
		if token == "" {
			c.Locals(principalKey, &access.Principal{ID: constants.AnonymousUserID})
			return c.Next()
		}

		claims, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, oidc.ErrKeysUnavailable) {
				return c.Status(fiber.StatusBadGateway).JSON(types.ApiResponse{
					Message: "Failed to fetch JWKS",
					Status:  fiber.StatusBadGateway,
				})
			}
			logger.Warning("Token validation failed: " + err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Message: "Invalid token",
				Status:  fiber.StatusUnauthorized,
			})
		}

		principal, err := syncUser(db, claims)
		if err != nil {
			logger.Error("Failed to sync authenticated user", err)
			return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
				Message: "Internal server error",
				Status:  fiber.StatusInternalServerError,
			})
		}
		c.Locals(principalKey, principal)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Cookies("access"), nil
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", types.NewError(types.ErrPermissionDenied, "Invalid authorization header format")
	}
	return parts[1], nil
}

// impersonate loads the user named by the header, creating a dev admin when
// the id is unknown so a reset local database stays usable.
func impersonate(db *gorm.DB, header string) (*access.Principal, error) {
	uid, err := strconv.ParseUint(header, 10, 64)
	if err != nil || uid == 0 {
		return nil, types.Validation("Invalid X-Test-User header")
	}

	var u user.User
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&u, uid).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		first, last := "Dev", strconv.FormatUint(uid, 10)
		u = user.User{ID: uint(uid), KeycloakID: fmt.Sprintf("dev-%d", uid), FirstName: &first, LastName: &last}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		var admin user.Role
		if err := tx.Where(user.Role{Name: constants.RoleAdmin}).FirstOrCreate(&admin).Error; err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("Created dev user %d with admin role", uid))
		return tx.Create(&user.UserRole{UserID: u.ID, RoleID: admin.ID}).Error
	})
	if err != nil {
		return nil, types.NotFound("Test user not found and could not be created")
	}

	roles, err := access.LocalRoles(db, u.ID)
	if err != nil {
		return nil, err
	}
	logger.Debug(fmt.Sprintf("Impersonating test user %d with roles %v", u.ID, roles))
	return &access.Principal{ID: u.ID, Subject: u.KeycloakID, Roles: roles}, nil
}

// syncUser caches the token profile in the local users table on first sight.
func syncUser(db *gorm.DB, claims *oidc.Claims) (*access.Principal, error) {
	u := user.User{
		KeycloakID: claims.Subject,
		Email:      claims.Email,
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
	}
	if err := db.Where(user.User{KeycloakID: claims.Subject}).FirstOrCreate(&u).Error; err != nil {
		return nil, err
	}
	local, err := access.LocalRoles(db, u.ID)
	if err != nil {
		return nil, err
	}
	return &access.Principal{ID: u.ID, Subject: claims.Subject, Roles: access.MergeRoles(claims.Roles, local)}, nil
}

func unauthorized(c *fiber.Ctx, err error) error {
	status := types.StatusOf(err)
	if errors.Is(err, types.ErrPermissionDenied) {
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).JSON(types.ApiResponse{
		Message: types.MessageOf(err),
		Status:  status,
	})
}

// CurrentUser returns the principal set by Authenticate.
func CurrentUser(c *fiber.Ctx) *access.Principal {
	p, ok := c.Locals(principalKey).(*access.Principal)
	if !ok {
		return &access.Principal{ID: constants.AnonymousUserID}
	}
	return p
}

// RequireAuthentication rejects the anonymous principal.
func RequireAuthentication() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c).IsAnonymous() {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Message: "Authentication required",
				Status:  fiber.StatusUnauthorized,
			})
		}
		return c.Next()
	}
}

// RequireRole allows callers holding the named role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentUser(c)
		if p.IsAnonymous() {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Message: "Authentication required",
				Status:  fiber.StatusUnauthorized,
			})
		}
		if !p.HasRole(role) {
			return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
				Message: "Missing required role",
				Status:  fiber.StatusForbidden,
			})
		}
		return c.Next()
	}
}
