// Package feedclient talks to a running memoria API.
package feedclient

import (
	"context"
	"fmt"
	"strconv"

	"resty.dev/v3"
)

const viewerHeader = "X-Viewer-ID"

// APIError is the error body returned by the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memoria api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client reads feeds on behalf of a single viewer.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL string, viewerID int64, config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig
	}

	client := resty.NewWithTransportSettings(config.TransportSettings).
		SetBaseURL(baseURL).
		SetHeader(viewerHeader, strconv.FormatInt(viewerID, 10))

	for _, m := range config.RequestMiddlewares {
		client.AddRequestMiddleware(m)
	}
	for _, m := range config.ResponseMiddlewares {
		client.AddResponseMiddleware(m)
	}

	return &Client{
		client: client,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx)
}
