package dto

import "github.com/opsdesk/ticket-service/internal/domain"

// SLARequest payload for create and update.
type SLARequest struct {
	Severity      domain.TicketSeverity `json:"severity"`
	Priority      domain.TicketPriority `json:"priority"`
	TimeLimitHour int                   `json:"time_limit_hour"`
}

// SLAResponse one rule.
type SLAResponse struct {
	ID            string                `json:"id"`
	Severity      domain.TicketSeverity `json:"severity"`
	Priority      domain.TicketPriority `json:"priority"`
	TimeLimitHour int                   `json:"time_limit_hour"`
}

// CategoryRequest payload for create and update.
type CategoryRequest struct {
	CategoryName string `json:"category_name"`
}

// CategoryResponse one category.
type CategoryResponse struct {
	ID           string `json:"id"`
	CategoryName string `json:"category_name"`
}
