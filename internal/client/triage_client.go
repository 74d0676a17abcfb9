package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/config"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

// TriageClient fetches advisory (severity, priority) suggestions from the AI
// triage collaborator.
type TriageClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type triageRequest struct {
	IssueCategory    string `json:"issueCategory"`
	IssueDescription string `json:"issueDescription"`
}

// TriageSuggestion is the collaborator's advisory output.
type TriageSuggestion struct {
	Severity string `json:"severity"`
	Priority string `json:"priority"`
}

// NewTriageClient builds the client.
func NewTriageClient(cfg config.ClientsConfig, logger *zap.Logger) *TriageClient {
	return &TriageClient{
		baseURL: cfg.TriageBaseURL,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

// Suggest returns the collaborator's triage suggestion. Unlike the
// fire-and-forget ports this is a synchronous read, so failures surface to
// the caller as DOWNSTREAM_UNAVAILABLE.
func (c *TriageClient) Suggest(ctx context.Context, issueCategory, issueDescription string) (*TriageSuggestion, error) {
	payload, err := json.Marshal(triageRequest{
		IssueCategory:    issueCategory,
		IssueDescription: issueDescription,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/triage/suggest", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewDownstreamUnavailable("triage service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, apperrors.NewDownstreamUnavailable("triage service",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var suggestion TriageSuggestion
	if err := json.NewDecoder(resp.Body).Decode(&suggestion); err != nil {
		return nil, apperrors.NewDownstreamUnavailable("triage service", err)
	}
	return &suggestion, nil
}
