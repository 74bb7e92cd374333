// platform/platform.go - Chat platform boundary
package platform

import (
	"context"
	"errors"
)

// Event is one inbound chat platform delivery: either a command invocation
// or a free-text message. Both arrive over the webhook endpoint and the
// websocket gateway with the same shape.
type Event struct {
	Type      string `json:"type"` // "command" or "message"
	AuthorID  string `json:"author_id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

const (
	EventCommand = "command"
	EventMessage = "message"
)

// Notifier delivers replies and file attachments back to a channel.
type Notifier interface {
	SendMessage(ctx context.Context, channelID, content string) error
	SendFile(ctx context.Context, channelID, filename string, data []byte) error
}

// Role operation failures surfaced by the platform.
var (
	ErrRoleNotFound     = errors.New("platform: role not found")
	ErrPermissionDenied = errors.New("platform: permission denied")
)
