package middleware

import (
	"context"

	"boardroom/models"
	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by Protected.
const (
	LocalIdentity  = "identity"
	LocalUserID    = "userID"
	LocalSessionID = "sessionID"
)

// UserSyncer keeps the local user projection in step with token claims.
type UserSyncer interface {
	SyncUser(ctx context.Context, user *models.User) error
}

// Protected authenticates the request with a bearer token or the
// access_token cookie and provisions the user row just in time.
func Protected(verifier utils.IdentityVerifier, users UserSyncer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			t, ok := utils.BearerToken(authHeader)
			if !ok {
				return utils.Unauthenticated("invalid authorization format")
			}
			token = t
		} else {
			token = c.Cookies("access_token")
			if token == "" {
				return utils.Unauthenticated("authorization required")
			}
		}

		identity, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return err
		}

		if users != nil {
			user := &models.User{ID: identity.UserID, Email: identity.Email, Name: identity.Name}
			if err := users.SyncUser(c.UserContext(), user); err != nil {
				utils.Suppress("user_sync", err, map[string]interface{}{"user_id": identity.UserID})
			}
		}

		c.Locals(LocalIdentity, identity)
		c.Locals(LocalUserID, identity.UserID)
		c.Locals(LocalSessionID, identity.SessionID)

		return c.Next()
	}
}

// CurrentUserID returns the authenticated subject, or "" outside Protected.
func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// CurrentIdentity returns the verified identity set by Protected.
func CurrentIdentity(c *fiber.Ctx) *utils.Identity {
	identity, _ := c.Locals(LocalIdentity).(*utils.Identity)
	return identity
}
