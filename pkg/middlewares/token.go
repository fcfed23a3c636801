package middlewares

import (
	"strings"

	t_token "portfolio_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	// QueryToken token in query name
	QueryToken = "auth"

	// CookieToken token in cookie name
	CookieToken = "auth_token"

	// TokenParticipantID participant email, set c.Locals name
	TokenParticipantID = "ParticipantID"
	// TokenName display name, set c.Locals name
	TokenName = "name"
	// TokenRole resolved role, set c.Locals name
	TokenRole = "role"
)

// JWTMiddleware validates JWT from query, cookie or Authorization header
func JWTMiddleware(adminEmail string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)

		// 查詢參數沒有 token 時依序嘗試 Cookie / Header
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}
		if tokenStr == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				tokenStr = strings.TrimPrefix(h, "Bearer ")
			}
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenParticipantID, claims.Email)
		c.Locals(TokenName, claims.Name)
		c.Locals(TokenRole, string(t_token.ResolveRole(claims, adminEmail)))

		return c.Next()
	}
}

// RequireAdmin reject non admin callers, must run after JWTMiddleware
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(TokenRole).(string); role != string(t_token.RoleAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin only",
			})
		}
		return c.Next()
	}
}
