package product

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "decobot/internal/errors"
)

// Controller exposes catalog lookups so callers can preview cart prices.
type Controller struct {
	useCase  SearchUseCase
	validate *validator.Validate
	logger   *zap.Logger
}

func NewController(useCase SearchUseCase, logger *zap.Logger) *Controller {
	validate := validator.New()
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Controller{
		useCase:  useCase,
		validate: validate,
		logger:   logger,
	}
}

// HandleSearchProducts answers POST /v1/products/search.
func (c *Controller) HandleSearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.validate.Struct(req); err != nil {
		c.writeValidationError(w, "validation failed", validationDetails(err)...)
		return
	}

	ids, err := normalizeIDs(req.ProductIDs)
	if err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}
	req.ProductIDs = ids

	c.search(w, r, req)
}

// GetProduct answers GET /v1/products/{productId}?size=...
func (c *Controller) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "productId"))
	if id == "" {
		c.writeValidationError(w, "productId is required", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be non-empty",
		})
		return
	}

	c.search(w, r, SearchProductsRequest{ProductIDs: []string{id}, Size: r.URL.Query().Get("size")})
}

func (c *Controller) search(w http.ResponseWriter, r *http.Request, req SearchProductsRequest) {
	traceID := uuid.New().String()

	resp, err := c.useCase.SearchProducts(r.Context(), req)
	if err != nil {
		c.logger.Error("catalog lookup failed",
			zap.String("traceId", traceID),
			zap.Strings("productIds", req.ProductIDs),
			zap.Error(err))
		c.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"traceId": traceID,
			"error":   "INTERNAL_ERROR",
			"message": "an unexpected error occurred",
		})
		return
	}

	c.writeJSON(w, http.StatusOK, resp)
}

func validationDetails(err error) []apperrors.ValidationDetail {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []apperrors.ValidationDetail{{Field: "body", Message: err.Error()}}
	}

	details := make([]apperrors.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the '%s=%s' rule", fe.Tag(), fe.Param())
		}
		details = append(details, apperrors.ValidationDetail{Field: fe.Field(), Message: msg})
	}
	return details
}

// normalizeIDs trims ids and drops repeats, keeping the caller's order.
func normalizeIDs(raw []string) ([]string, error) {
	ids := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, apperrors.NewValidationError("each productId must be non-empty", apperrors.ValidationDetail{
				Field:   fmt.Sprintf("productIds[%d]", i),
				Message: "must be non-empty",
			})
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
