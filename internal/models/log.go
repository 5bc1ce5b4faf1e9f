package models

import "time"

// DeadLetter is a failed ADX submission kept in SQLite until it is replayed.
type DeadLetter struct {
	ID          int64     `json:"id"`
	SourceID    string    `json:"sourceId"`
	Database    string    `json:"database"`
	TableName   string    `json:"tableName"`
	Payload     []byte    `json:"-"` // gzip multijson as it was submitted
	LastError   string    `json:"lastError"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"createdAt"`
	LastAttempt time.Time `json:"lastAttempt"`
}

// RelayEvent is one log record posted to the relay.
type RelayEvent struct {
	Level     string                 `json:"level" validate:"omitempty,oneof=debug info warn error fatal DEBUG INFO WARN ERROR FATAL"`
	Message   string                 `json:"message" validate:"required"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Exception string                 `json:"exception,omitempty"`
	Logger    string                 `json:"logger,omitempty" validate:"max=128"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBatchRequest is the body of POST /api/v1/logs.
type LogBatchRequest struct {
	Events []RelayEvent `json:"events" validate:"required,min=1,max=1000,dive"`
}
