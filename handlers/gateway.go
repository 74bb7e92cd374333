// handlers/gateway.go - WebSocket event intake
package handlers

import (
	"log"

	"kandibot/platform"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// GatewayUpgrade rejects plain HTTP requests on the gateway route.
func GatewayUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// GatewayHandler reads platform events off a persistent websocket
// connection and feeds them to the same dispatcher as the webhook path.
// A platform relay that holds a connection open gets lower latency than
// per-event webhooks; the event shape is identical.
var GatewayHandler = websocket.New(func(conn *websocket.Conn) {
	remote := conn.RemoteAddr().String()
	log.Printf("🔌 Gateway connected: %s", remote)
	defer log.Printf("🔌 Gateway disconnected: %s", remote)

	for {
		var ev platform.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		if validateEvent(ev) != nil {
			continue
		}
		bot.HandleEvent(ev)
	}
})
