// platform/client.go - REST client for the chat platform API
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client talks to the chat platform's REST API with the bot access token.
// It implements the reply sink and the role operations the bot needs.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SendMessage posts a text reply to the channel.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	path := fmt.Sprintf("/api/channels/%s/messages", channelID)
	_, err = c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(payload))
	return err
}

// SendFile posts a file attachment to the channel.
func (c *Client) SendFile(ctx context.Context, channelID, filename string, data []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build attachment request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to build attachment request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build attachment request: %w", err)
	}

	path := fmt.Sprintf("/api/channels/%s/attachments", channelID)
	_, err = c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), &buf)
	return err
}

type roleInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolveRole finds a role by display name in the guild owning channelID.
func (c *Client) ResolveRole(ctx context.Context, channelID, name string) (string, error) {
	path := fmt.Sprintf("/api/channels/%s/roles", channelID)
	body, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return "", err
	}

	var roles []roleInfo
	if err := json.Unmarshal(body, &roles); err != nil {
		return "", fmt.Errorf("malformed role list: %w", err)
	}
	for _, role := range roles {
		if strings.EqualFold(role.Name, name) {
			return role.ID, nil
		}
	}
	return "", ErrRoleNotFound
}

// GrantRole assigns roleID to the member. The platform may refuse with a
// permission-denied condition when the bot's own role sits too low.
func (c *Client) GrantRole(ctx context.Context, channelID, userID, roleID string) error {
	path := fmt.Sprintf("/api/channels/%s/members/%s/roles/%s", channelID, userID, roleID)
	_, err := c.do(ctx, http.MethodPut, path, "", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("platform response unreadable: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrPermissionDenied
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrRoleNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("platform returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
