// Package sms delivers verification texts through an HTTP messaging gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/playtype/account-recovery-service/internal/domain"
	"go.uber.org/zap"
)

// Config for the gateway client
type Config struct {
	APIURL  string
	APIKey  string
	Sender  string
	DryRun  bool
	Timeout time.Duration
}

type sendRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type sendResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// Client posts messages to the gateway. In dry-run mode nothing leaves the process.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

var _ domain.SMSSender = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send delivers text to phone
func (c *Client) Send(ctx context.Context, phone, text string) error {
	requestID := uuid.NewString()

	if c.cfg.DryRun || c.cfg.APIKey == "" {
		c.logger.Info("SMS dry-run",
			zap.String("request_id", requestID),
			zap.String("to", domain.Mask(phone)),
			zap.String("sender", c.cfg.Sender),
			zap.Int("length", len(text)))
		return nil
	}

	payload, err := json.Marshal(sendRequest{From: c.cfg.Sender, To: phone, Text: text})
	if err != nil {
		return fmt.Errorf("encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Idempotency-Key", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}

	var result sendResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("parse sms response: %w", err)
		}
	}

	if resp.StatusCode >= 300 || len(result.Errors) > 0 {
		detail := http.StatusText(resp.StatusCode)
		if len(result.Errors) > 0 {
			detail = result.Errors[0].Title
			if result.Errors[0].Detail != "" {
				detail += ": " + result.Errors[0].Detail
			}
		}
		c.logger.Warn("SMS gateway rejected message",
			zap.String("request_id", requestID),
			zap.String("to", domain.Mask(phone)),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, detail)
	}

	c.logger.Debug("SMS sent",
		zap.String("request_id", requestID),
		zap.String("message_id", result.Data.ID),
		zap.String("to", domain.Mask(phone)))
	return nil
}
