package dto

import "github.com/noah-isme/sma-routine-api/internal/models"

// UpdateConflictStatusRequest moves a ledger entry through its resolution workflow.
type UpdateConflictStatusRequest struct {
	Status models.ConflictStatus `json:"status" validate:"required,oneof=ACKNOWLEDGED RESOLVED IGNORED"`
}

// ConflictSummary is returned by the unresolved counter endpoint.
type ConflictSummary struct {
	Unresolved int `json:"unresolved"`
}
