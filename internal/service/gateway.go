package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/metrics"
	"github.com/wabridge/relay-server-go/internal/util"
)

// ChannelSender delivers text to a counterpart through the WhatsApp gateway.
type ChannelSender interface {
	SendText(ctx context.Context, instanceName, phoneNumber, text string) error
}

type GatewayClient struct {
	client *resty.Client
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func NewGatewayClient(baseURL, apiKey string, timeout time.Duration) *GatewayClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("apikey", apiKey)
	}
	return &GatewayClient{client: client}
}

func (c *GatewayClient) SendText(ctx context.Context, instanceName, phoneNumber, text string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("gateway", "send_text", start, err) }()

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("instance", instanceName).
		SetBody(sendTextRequest{Number: util.ToUserJID(phoneNumber), Text: text}).
		Post("/message/sendText/{instance}")
	if err != nil {
		log.Error().
			Err(err).
			Str("instance", instanceName).
			Dur("elapsed", time.Since(start)).
			Msg("gateway send error")
		return fmt.Errorf("gateway send: %w", err)
	}

	if !resp.IsSuccess() {
		log.Error().
			Str("instance", instanceName).
			Int("status", resp.StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("gateway send failed")
		return fmt.Errorf("gateway send failed with status %d", resp.StatusCode())
	}

	log.Debug().
		Str("instance", instanceName).
		Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("gateway send successful")

	return nil
}
