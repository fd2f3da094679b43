package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark app credentials
type Config struct {
	AppID     string
	AppSecret string
	// Domain selects the API host: "feishu" (default) or "lark"
	Domain  string
	Timeout time.Duration
}

// Client wraps the Lark SDK client
type Client struct {
	client *lark.Client
	appID  string
	logger *zap.Logger
}

// NewClient creates a new Lark SDK client with token caching enabled
func NewClient(cfg Config, logger *zap.Logger) *Client {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.Domain == "lark" {
		opts = append(opts, lark.WithOpenBaseUrl(lark.LarkBaseUrl))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lark.WithReqTimeout(cfg.Timeout))
	}

	return &Client{
		client: lark.NewClient(cfg.AppID, cfg.AppSecret, opts...),
		appID:  cfg.AppID,
		logger: logger,
	}
}

// GetClient returns the underlying Lark SDK client
func (c *Client) GetClient() *lark.Client {
	return c.client
}

// AppID returns the configured app ID
func (c *Client) AppID() string {
	return c.appID
}
