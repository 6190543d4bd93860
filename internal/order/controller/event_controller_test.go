package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"decobot/internal/domain"
	"decobot/internal/dto"
	apperrors "decobot/internal/errors"
)

type mockHandleEventUseCase struct {
	HandleFunc func(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error)
}

func (m *mockHandleEventUseCase) Handle(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
	return m.HandleFunc(ctx, req)
}

type mockOrderReader struct {
	GetFunc func(ctx context.Context, orderID string) (*domain.Order, error)
}

func (m *mockOrderReader) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.GetFunc(ctx, orderID)
}

func newTestRouter(uc HandleEventUseCase, orders OrderReader) http.Handler {
	ctrl := NewEventController(uc, orders, "secret", "hook-secret", zap.NewNop())
	r := chi.NewRouter()
	r.Post("/v1/events", ctrl.HandleEvent)
	r.Get("/v1/orders/{orderId}", ctrl.GetOrder)
	return r
}

func postEvent(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhookSecretHeader, "hook-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleEvent_Success(t *testing.T) {
	uc := &mockHandleEventUseCase{
		HandleFunc: func(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
			assert.Equal(t, int64(5001), req.ChatIdentity)
			assert.Equal(t, dto.EventKindCallback, req.Kind)
			return &dto.EventResult{Action: "select_type", OrderID: "o-1", Stage: string(domain.StageAwaitingCheckPhoto)}, nil
		},
	}

	rec := postEvent(t, newTestRouter(uc, nil), `{"chatIdentity":5001,"kind":"callback","payload":"select_type:o-1:check"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dto.EventStatusOK, resp.Status)
	assert.Equal(t, "o-1", resp.OrderID)
	assert.Equal(t, string(domain.StageAwaitingCheckPhoto), resp.Stage)
	assert.NotEmpty(t, resp.TraceID)
}

func TestHandleEvent_ValidationErrors(t *testing.T) {
	uc := &mockHandleEventUseCase{
		HandleFunc: func(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
	}
	h := newTestRouter(uc, nil)

	rec := postEvent(t, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postEvent(t, h, `{"kind":"sticker","payload":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp validationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error)
	assert.Len(t, resp.Details, 3)
}

func TestHandleEvent_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stale", apperrors.NewStaleTransitionError("o-1", "CONFIRMED", "admin_cancel"), http.StatusConflict, "STALE_TRANSITION"},
		{"duplicate", apperrors.NewDuplicateAssignmentError("o-1", "nima"), http.StatusConflict, "DUPLICATE_ASSIGNMENT"},
		{"active order", apperrors.NewActiveOrderError("123456", "o-1"), http.StatusConflict, "ACTIVE_ORDER"},
		{"missing context", apperrors.NewMissingPaymentContextError("no method"), http.StatusUnprocessableEntity, "MISSING_PAYMENT_CONTEXT"},
		{"unauthenticated", apperrors.NewUnauthenticatedError("login first"), http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"forbidden", apperrors.NewForbiddenError("admin only"), http.StatusForbidden, "FORBIDDEN"},
		{"not found", apperrors.NewNotFoundError("no order"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperrors.NewConflictError("busy"), http.StatusConflict, "CONFLICT"},
		{"internal", apperrors.NewInternalError("boom", nil), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &mockHandleEventUseCase{
				HandleFunc: func(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
					return nil, tc.err
				},
			}

			rec := postEvent(t, newTestRouter(uc, nil), `{"chatIdentity":5001,"kind":"command","payload":"/checkout"}`)
			require.Equal(t, tc.status, rec.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestHandleEvent_RequiresWebhookSecret(t *testing.T) {
	uc := &mockHandleEventUseCase{
		HandleFunc: func(ctx context.Context, req dto.EventRequest) (*dto.EventResult, error) {
			t.Fatal("use case must not be reached")
			return nil, nil
		},
	}
	h := newTestRouter(uc, nil)
	body := `{"chatIdentity":5001,"senderId":9001,"kind":"callback","payload":"admin_confirm:o-1"}`

	tests := []struct {
		name   string
		secret string
	}{
		{name: "missing header", secret: ""},
		{name: "wrong secret", secret: "guess"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
			if tc.secret != "" {
				req.Header.Set(webhookSecretHeader, tc.secret)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "UNAUTHENTICATED", resp.Code)
		})
	}
}

func TestHandleEvent_NoSecretConfiguredRejects(t *testing.T) {
	ctrl := NewEventController(nil, nil, "secret", "", zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	ctrl.HandleEvent(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetOrder_RequiresAdminToken(t *testing.T) {
	orders := &mockOrderReader{
		GetFunc: func(ctx context.Context, orderID string) (*domain.Order, error) {
			return &domain.Order{ID: orderID, CustomerID: "123456", Stage: domain.StageTracking, Version: 7}, nil
		},
	}
	h := newTestRouter(nil, orders)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/o-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/orders/o-1", nil)
	req.Header.Set(adminTokenHeader, "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "o-1", resp.ID)
	assert.Equal(t, string(domain.StageTracking), resp.Stage)
	assert.Equal(t, int64(7), resp.Version)
}

func TestGetOrder_NotFound(t *testing.T) {
	orders := &mockOrderReader{
		GetFunc: func(ctx context.Context, orderID string) (*domain.Order, error) {
			return nil, apperrors.NewNotFoundError("order with id missing not found")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/missing", nil)
	req.Header.Set(adminTokenHeader, "secret")
	rec := httptest.NewRecorder()
	newTestRouter(nil, orders).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
