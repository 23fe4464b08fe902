package controller

import (
	"crypto/subtle"

	"boardroom/models"
	"boardroom/services"
	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookController receives identity-provider lifecycle events.
type WebhookController struct {
	Members *services.MemberService
	Secret  string
}

func NewWebhookController(members *services.MemberService, secret string) *WebhookController {
	return &WebhookController{Members: members, Secret: secret}
}

type identityEvent struct {
	Type string `json:"type" validate:"required"`
	Data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"data"`
}

// HandleIdentityEvent keeps local users and memberships in step with the
// identity provider. Unknown event types are acknowledged and ignored.
func (wc *WebhookController) HandleIdentityEvent(c *fiber.Ctx) error {
	if wc.Secret == "" || subtle.ConstantTimeCompare([]byte(c.Get(webhookSecretHeader)), []byte(wc.Secret)) != 1 {
		return utils.Unauthenticated("invalid webhook secret")
	}

	var event identityEvent
	if err := parseBody(c, &event); err != nil {
		return err
	}
	if err := utils.ValidateStruct(event); err != nil {
		return err
	}
	if event.Data.ID == "" {
		return utils.Validation("data.id is required")
	}

	switch event.Type {
	case "user.created", "user.updated":
		user := &models.User{ID: event.Data.ID, Email: event.Data.Email, Name: event.Data.Name}
		if err := wc.Members.SyncUser(c.UserContext(), user); err != nil {
			return err
		}
	case "user.deleted":
		n, err := wc.Members.DeactivateUser(c.UserContext(), event.Data.ID)
		if err != nil {
			return err
		}
		return ok(c, fiber.Map{"deactivatedMemberships": n})
	default:
		utils.LogEvent("identity_webhook_ignored", map[string]interface{}{"type": event.Type})
	}
	return ok(c, fiber.Map{"received": true})
}
