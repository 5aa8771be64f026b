package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/lifegpa-api/internal/utils"
)

// Roles carried in access tokens.
const (
	RoleAnonymous     = "anon"
	RoleAuthenticated = "authenticated"
	RoleService       = "service_role"
)

var errMissingAuthorization = errors.New("authorization header missing")

// JWTProtected returns a middleware that validates JWT bearer tokens and
// rejects requests without one.
func JWTProtected(secret string) fiber.Handler {
	return jwtMiddleware(secret, true)
}

// JWTOptional validates a bearer token when present. Requests without an
// Authorization header continue without a user so handlers can decide how to
// treat anonymous callers.
func JWTOptional(secret string) fiber.Handler {
	return jwtMiddleware(secret, false)
}

func jwtMiddleware(secret string, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := parseBearer(c.Get("Authorization"), secret)
		if errors.Is(err, errMissingAuthorization) && !required {
			return c.Next()
		}
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		role := extractUserRoleFromClaims(claims)
		if role == RoleAnonymous {
			c.Locals("user_role", role)
			if required {
				return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
			}
			return c.Next()
		}

		userID := extractUserIDFromClaims(claims)
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}
		if role == "" {
			role = RoleAuthenticated
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", role)

		return c.Next()
	}
}

func parseBearer(authorization, secret string) (jwt.MapClaims, error) {
	if strings.TrimSpace(authorization) == "" {
		return nil, errMissingAuthorization
	}

	const bearer = "Bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return nil, errors.New("invalid authorization header")
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return nil, errors.New("invalid token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func extractUserIDFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if normalized := normalizeUserID(value); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

// normalizeUserID accepts uuid subjects as well as numeric ids.
func normalizeUserID(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v < 0 {
			return ""
		}
		return strconv.FormatUint(uint64(v), 10)
	case int:
		if v < 0 {
			return ""
		}
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
					return role
				}
			}
		}
	}
	return ""
}
