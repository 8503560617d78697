package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/metrics"
)

// WorkflowTrigger starts the AI workflow for one inbound message.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, payload WorkflowPayload) error
}

type WorkflowPayload struct {
	InstanceName     string          `json:"instanceName"`
	MessageType      string          `json:"messageType"`
	Message          WorkflowMessage `json:"message"`
	Key              WorkflowKey     `json:"key"`
	MessageTimestamp int64           `json:"messageTimestamp"`
	PushName         string          `json:"pushName"`
	CustomPrompt     *string         `json:"customPrompt,omitempty"`
}

type WorkflowMessage struct {
	Conversation string `json:"conversation"`
}

type WorkflowKey struct {
	RemoteJid string `json:"remoteJid"`
	ID        string `json:"id"`
}

type WorkflowClient struct {
	client *resty.Client
}

func NewWorkflowClient(baseURL string, timeout time.Duration) *WorkflowClient {
	return &WorkflowClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *WorkflowClient) Trigger(ctx context.Context, payload WorkflowPayload) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("workflow", "trigger", start, err) }()

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("instance", payload.InstanceName).
		SetBody(payload).
		Post("/webhook/{instance}")
	if err != nil {
		return fmt.Errorf("workflow trigger: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("workflow trigger failed with status %d", resp.StatusCode())
	}

	log.Debug().
		Str("instance", payload.InstanceName).
		Str("messageId", payload.Key.ID).
		Dur("elapsed", time.Since(start)).
		Msg("workflow triggered")

	return nil
}
