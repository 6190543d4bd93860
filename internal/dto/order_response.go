package dto

import (
	"time"

	"decobot/internal/domain"
)

type OrderResponse struct {
	TraceID           string                `json:"traceId"`
	ID                string                `json:"id"`
	CustomerID        string                `json:"customerId"`
	CustomerName      string                `json:"customerName"`
	Stage             string                `json:"stage"`
	PaymentMethod     string                `json:"paymentMethod,omitempty"`
	PaymentType       string                `json:"paymentType,omitempty"`
	Items             []domain.LineItem     `json:"items"`
	Totals            *domain.Totals        `json:"totals,omitempty"`
	AssignedRecipient string                `json:"assignedRecipient,omitempty"`
	Recovery          bool                  `json:"recovery"`
	PaidAmount        int64                 `json:"paidAmount"`
	RemainingBalance  int64                 `json:"remainingBalance"`
	History           []domain.HistoryEntry `json:"history"`
	Version           int64                 `json:"version"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

func NewOrderResponse(traceID string, o *domain.Order) OrderResponse {
	return OrderResponse{
		TraceID:           traceID,
		ID:                o.ID,
		CustomerID:        o.CustomerID,
		CustomerName:      o.CustomerName,
		Stage:             string(o.Stage),
		PaymentMethod:     string(o.PaymentMethod),
		PaymentType:       string(o.PaymentType),
		Items:             o.Items,
		Totals:            o.Totals,
		AssignedRecipient: o.AssignedRecipient,
		Recovery:          o.Recovery,
		PaidAmount:        o.PaidAmount,
		RemainingBalance:  o.RemainingBalance,
		History:           o.History,
		Version:           o.Version,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}
