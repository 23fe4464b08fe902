package realtime

import (
	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const identityLocal = "identity"

// Authenticate verifies the connecting user before the upgrade. Browsers
// cannot set headers on websocket requests, so the token may come as a
// query parameter.
func Authenticate(verifier utils.IdentityVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			token, _ = utils.BearerToken(c.Get(fiber.HeaderAuthorization))
		}
		if token == "" {
			return utils.Unauthenticated("missing credential")
		}
		identity, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(identityLocal, identity)
		return c.Next()
	}
}

// Handler upgrades the request and serves it with the gateway.
func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		identity, ok := conn.Locals(identityLocal).(*utils.Identity)
		if !ok || identity == nil {
			_ = conn.Close()
			return
		}
		g.Serve(conn, identity, websocket.TextMessage)
	})
}
