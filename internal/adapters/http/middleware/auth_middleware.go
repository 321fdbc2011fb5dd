package middleware

import (
	"errors"
	"strings"

	"casedesk/internal/config"
	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/jwt"
	"casedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const actorKey = "actor"

// AuthMiddleware resolves the calling actor from the access token
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := tokenFrom(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		role := domain.Role(claims.Role)
		if !role.Valid() {
			return response.Unauthorized(c, "Unknown role in access token")
		}

		c.Locals(actorKey, domain.Actor{
			ID:       claims.UserID,
			Role:     role,
			TenantID: claims.TenantID,
		})
		c.Locals("username", claims.Username)

		return c.Next()
	}
}

// tokenFrom reads the token from the cookie first, then the Authorization
// header. EventSource clients cannot set headers, so the SSE route also
// accepts ?access_token=.
func tokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}
	if authHeader := c.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("access_token")
}

// ActorFrom returns the actor set by AuthMiddleware
func ActorFrom(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if actor.Role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// FirmAdminOnly allows only the firm_admin role
func FirmAdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleFirmAdmin)
}
