package dto

import "time"

const (
	EventStatusOK       = "ok"
	EventStatusRejected = "rejected"
)

// EventResult is what the router reports back for one handled update.
type EventResult struct {
	Action  string
	OrderID string
	Stage   string
}

type EventResponse struct {
	TraceID   string    `json:"traceId"`
	Status    string    `json:"status"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	OrderID   string    `json:"orderId,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	OrderID   string    `json:"orderId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
