package dto

import "time"

// Log ids are content hashes of the log line, not UUIDs.

type LogListRequest struct {
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
	Level string `query:"level" validate:"omitempty,oneof=debug info warn error"`
}

type LogListResponse struct {
	Id        string                 `json:"id"`
	Level     string                 `json:"level"`
	Module    string                 `json:"module"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}
