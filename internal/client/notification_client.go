package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/config"
)

// NotificationClient posts alerts to the external notification collaborator.
// Sends are best-effort: the caller never retries and never ties a send to a
// transaction outcome.
type NotificationClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type notificationRequest struct {
	RecipientID string `json:"recipientId"`
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// NewNotificationClient builds the client.
func NewNotificationClient(cfg config.ClientsConfig, logger *zap.Logger) *NotificationClient {
	return &NotificationClient{
		baseURL: cfg.NotificationBaseURL,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

// Send delivers one notification. Errors are returned for accounting but the
// caller is expected to log and drop them.
func (c *NotificationClient) Send(ctx context.Context, recipientID, sender, subject, body string) error {
	payload, err := json.Marshal(notificationRequest{
		RecipientID: recipientID,
		Sender:      sender,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/notifications/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}
