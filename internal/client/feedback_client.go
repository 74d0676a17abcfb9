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

// FeedbackClient asks the feedback collaborator to open a pending feedback
// record when a ticket closes.
type FeedbackClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type feedbackCreationRequest struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
}

// NewFeedbackClient builds the client.
func NewFeedbackClient(cfg config.ClientsConfig, logger *zap.Logger) *FeedbackClient {
	return &FeedbackClient{
		baseURL: cfg.FeedbackBaseURL,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

// CreatePendingFeedback fires the request on a detached goroutine. The
// triggering close operation has already committed; a failure here is logged
// and dropped, never propagated.
func (c *FeedbackClient) CreatePendingFeedback(ctx context.Context, ticketID, userID string) {
	go func() {
		if err := c.post(context.Background(), ticketID, userID); err != nil {
			c.logger.Warn("create pending feedback failed",
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
	}()
}

func (c *FeedbackClient) post(ctx context.Context, ticketID, userID string) error {
	payload, err := json.Marshal(feedbackCreationRequest{TicketID: ticketID, UserID: userID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/feedback/internal/create", bytes.NewReader(payload))
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
		return fmt.Errorf("feedback service returned %d", resp.StatusCode)
	}
	return nil
}
