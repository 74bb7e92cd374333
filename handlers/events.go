// handlers/events.go - Webhook event intake
package handlers

import (
	"kandibot/platform"

	"github.com/gofiber/fiber/v2"
)

// HandleWebhookEvent accepts one platform delivery. The event is dispatched
// asynchronously; the 202 only acknowledges receipt, not reply delivery.
func HandleWebhookEvent(c *fiber.Ctx) error {
	var ev platform.Event
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid event body"})
	}

	if err := validateEvent(ev); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	bot.HandleEvent(ev)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
	})
}

func validateEvent(ev platform.Event) error {
	if ev.Type != platform.EventCommand && ev.Type != platform.EventMessage {
		return fiber.NewError(400, "Unknown event type")
	}
	if ev.AuthorID == "" || ev.ChannelID == "" {
		return fiber.NewError(400, "Missing author_id or channel_id")
	}
	return nil
}
