package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// AuthConfig controls the demo auth gate. Requests without a token
// resolve to the static demo user; a supplied token must verify.
type AuthConfig struct {
	Secret     string // HS256 signing secret; empty disables the gate
	DemoUserID string
	TokenTTL   time.Duration
}

const userIDLocal = "user_id"

// Enabled returns true when a signing secret is configured.
func (a AuthConfig) Enabled() bool {
	return a.Secret != ""
}

// IssueToken signs a demo token for userID.
func (a AuthConfig) IssueToken(userID string) (string, error) {
	ttl := a.TokenTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.Secret))
}

// NewUserMiddleware resolves the effective user id for each request and
// stores it in locals. With auth disabled (or no token supplied) the
// static demo user is used; a supplied token must verify.
func NewUserMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := cfg.DemoUserID

		if cfg.Enabled() {
			header := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(header, "Bearer ") {
				raw := strings.TrimPrefix(header, "Bearer ")
				token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return []byte(cfg.Secret), nil
				})
				if err != nil || !token.Valid {
					logger.Warn().Err(err).Str("ip", c.IP()).Msg("rejected invalid token")
					return fail(c, fiber.StatusUnauthorized, "Invalid token")
				}
				if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok && claims.Subject != "" {
					userID = claims.Subject
				}
			}
		}

		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

func userIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals(userIDLocal).(string); ok && id != "" {
		return id
	}
	return ""
}
