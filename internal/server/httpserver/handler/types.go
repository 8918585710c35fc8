package handler

import (
	"time"

	"github.com/yndnr/minikv/internal/infra/buildinfo"
)

// Response is the standard JSON response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// HealthResponse is the body of GET /health and GET /ready.
type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
	Time   string `json:"time" yaml:"time"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Keys          int            `json:"keys" yaml:"keys"`
	Evicted       uint64         `json:"evicted" yaml:"evicted"`
	Connections   int            `json:"connections" yaml:"connections"`
	UptimeSeconds int64          `json:"uptime_seconds" yaml:"uptime_seconds"`
	Build         buildinfo.Info `json:"build" yaml:"build"`
}
