package slack

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fr4nk3nst1ner/slackquote/internal/models"
)

type channelsResponse struct {
	response
	Channels []models.Channel `json:"channels"`
}

type pinsResponse struct {
	response
	Items []models.Pin `json:"items"`
}

type usersResponse struct {
	response
	Members []models.User `json:"members"`
}

// ListChannels lists the unarchived public and private channels visible to the token
func (c *Client) ListChannels(ctx context.Context) ([]models.Channel, error) {
	params := url.Values{}
	params.Set("exclude_archived", "true")
	params.Set("types", "public_channel,private_channel")

	var result channelsResponse
	if err := c.makeRequest(ctx, "conversations.list", params, &result); err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	return result.Channels, nil
}

// ListPins lists the pinned items of one channel
func (c *Client) ListPins(ctx context.Context, channelID string) ([]models.Pin, error) {
	params := url.Values{}
	params.Set("channel", channelID)

	var result pinsResponse
	if err := c.makeRequest(ctx, "pins.list", params, &result); err != nil {
		return nil, fmt.Errorf("failed to list pins for %s: %w", channelID, err)
	}

	return result.Items, nil
}

// ListUsers lists every workspace member in a single page
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var result usersResponse
	if err := c.makeRequest(ctx, "users.list", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return result.Members, nil
}
