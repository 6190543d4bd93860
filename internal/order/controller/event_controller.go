package controller

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"decobot/internal/domain"
	"decobot/internal/dto"
	apperrors "decobot/internal/errors"
)

const (
	adminTokenHeader = "X-Admin-Token"
	// Telegram echoes the webhook secret_token in this header.
	webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
)

type HandleEventUseCase interface {
	Handle(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error)
}

type OrderReader interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
}

type EventController struct {
	useCase       HandleEventUseCase
	orders        OrderReader
	adminToken    string
	webhookSecret string
	logger        *zap.Logger
}

func NewEventController(useCase HandleEventUseCase, orders OrderReader, adminToken, webhookSecret string, logger *zap.Logger) *EventController {
	return &EventController{
		useCase:       useCase,
		orders:        orders,
		adminToken:    adminToken,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (c *EventController) HandleEvent(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	if !secretMatches(r.Header.Get(webhookSecretHeader), c.webhookSecret) {
		logger.Warn("event rejected: invalid webhook secret")
		c.writeErrorResponse(w, traceID, "", http.StatusUnauthorized, "UNAUTHENTICATED", "invalid webhook secret")
		return
	}

	var req dto.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.validateEventRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	logger = logger.With(zap.Int64("chatId", req.ChatIdentity), zap.String("kind", string(req.Kind)))

	result, err := c.useCase.Handle(r.Context(), req)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	logger.Debug("event handled", zap.String("action", result.Action), zap.String("orderId", result.OrderID))
	c.writeJSON(w, http.StatusOK, dto.EventResponse{
		TraceID:   traceID,
		Status:    dto.EventStatusOK,
		OrderID:   result.OrderID,
		Stage:     result.Stage,
		Timestamp: time.Now().UTC(),
	})
}

func (c *EventController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	if !c.authorized(r) {
		logger.Warn("order lookup with invalid admin token")
		c.writeErrorResponse(w, traceID, "", http.StatusForbidden, "FORBIDDEN", "invalid admin token")
		return
	}

	orderID := chi.URLParam(r, "orderId")
	if strings.TrimSpace(orderID) == "" {
		c.writeValidationError(w, traceID, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId is required",
		})
		return
	}

	order, err := c.orders.Get(r.Context(), orderID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger.With(zap.String("orderId", orderID)))
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewOrderResponse(traceID, order))
}

func (c *EventController) authorized(r *http.Request) bool {
	return secretMatches(r.Header.Get(adminTokenHeader), c.adminToken)
}

// secretMatches fails closed when no secret is configured.
func secretMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (c *EventController) validateEventRequest(req dto.EventRequest) error {
	var details []apperrors.ValidationDetail

	if req.ChatIdentity == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "chatIdentity",
			Message: "chatIdentity is required",
		})
	}

	switch req.Kind {
	case dto.EventKindCommand, dto.EventKindCallback, dto.EventKindPhoto, dto.EventKindText:
	case "":
		details = append(details, apperrors.ValidationDetail{
			Field:   "kind",
			Message: "kind is required",
		})
	default:
		details = append(details, apperrors.ValidationDetail{
			Field:   "kind",
			Message: "kind must be one of command, callback, photo, text",
		})
	}

	if strings.TrimSpace(req.Payload) == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "payload",
			Message: "payload must not be empty",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

func (c *EventController) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsUnauthenticatedError(err); ok {
		c.writeErrorResponse(w, traceID, "", http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
		return
	}

	if _, ok := apperrors.IsForbiddenError(err); ok {
		c.writeErrorResponse(w, traceID, "", http.StatusForbidden, "FORBIDDEN", err.Error())
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, "", http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if se, ok := apperrors.IsStaleTransitionError(err); ok {
		c.writeErrorResponse(w, traceID, se.OrderID, http.StatusConflict, "STALE_TRANSITION", err.Error())
		return
	}

	if de, ok := apperrors.IsDuplicateAssignmentError(err); ok {
		c.writeErrorResponse(w, traceID, de.OrderID, http.StatusConflict, "DUPLICATE_ASSIGNMENT", err.Error())
		return
	}

	if ae, ok := apperrors.IsActiveOrderError(err); ok {
		c.writeErrorResponse(w, traceID, ae.OrderID, http.StatusConflict, "ACTIVE_ORDER", err.Error())
		return
	}

	if _, ok := apperrors.IsMissingPaymentContextError(err); ok {
		c.writeErrorResponse(w, traceID, "", http.StatusUnprocessableEntity, "MISSING_PAYMENT_CONTEXT", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, "", http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, "", http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *EventController) writeErrorResponse(w http.ResponseWriter, traceID string, orderID string, statusCode int, code string, message string) {
	response := dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Message:   message,
		Code:      code,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}

	c.writeJSON(w, statusCode, response)
}

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *EventController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	response := validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	}

	c.writeJSON(w, http.StatusBadRequest, response)
}

func (c *EventController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
