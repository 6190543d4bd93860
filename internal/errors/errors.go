package errors

import (
	stderrors "errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if stderrors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

// ConflictError signals a lost compare-and-swap or a duplicate key.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func IsForbiddenError(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string {
	return e.Message
}

func NewUnauthenticatedError(message string) *UnauthenticatedError {
	return &UnauthenticatedError{Message: message}
}

func IsUnauthenticatedError(err error) (*UnauthenticatedError, bool) {
	var ue *UnauthenticatedError
	if stderrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// StaleTransitionError is returned when an event is not accepted by the
// order's current stage. The order is left untouched.
type StaleTransitionError struct {
	OrderID string
	Stage   string
	Event   string
}

func (e *StaleTransitionError) Error() string {
	return fmt.Sprintf("event %s not accepted in stage %s for order %s", e.Event, e.Stage, e.OrderID)
}

func NewStaleTransitionError(orderID, stage, event string) *StaleTransitionError {
	return &StaleTransitionError{OrderID: orderID, Stage: stage, Event: event}
}

func IsStaleTransitionError(err error) (*StaleTransitionError, bool) {
	var se *StaleTransitionError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// What a MissingPaymentContextError is still waiting for.
const (
	MissingSelection  = "selection"
	MissingCheckPhoto = "check_photo"
	MissingReceipt    = "receipt"
)

// MissingPaymentContextError is returned when an event arrives before the
// payment context it depends on exists: a method and type, or the photo the
// current stage is waiting for.
type MissingPaymentContextError struct {
	Message string
	Missing string
}

func (e *MissingPaymentContextError) Error() string {
	return e.Message
}

func NewMissingPaymentContextError(message string) *MissingPaymentContextError {
	return &MissingPaymentContextError{Message: message, Missing: MissingSelection}
}

func NewMissingEvidenceError(missing, message string) *MissingPaymentContextError {
	return &MissingPaymentContextError{Message: message, Missing: missing}
}

func IsMissingPaymentContextError(err error) (*MissingPaymentContextError, bool) {
	var me *MissingPaymentContextError
	if stderrors.As(err, &me) {
		return me, true
	}
	return nil, false
}

type DuplicateAssignmentError struct {
	OrderID  string
	Assigned string
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("order %s already assigned to recipient %s", e.OrderID, e.Assigned)
}

func NewDuplicateAssignmentError(orderID, assigned string) *DuplicateAssignmentError {
	return &DuplicateAssignmentError{OrderID: orderID, Assigned: assigned}
}

func IsDuplicateAssignmentError(err error) (*DuplicateAssignmentError, bool) {
	var de *DuplicateAssignmentError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ActiveOrderError rejects a checkout while the customer still has an
// unfinished order.
type ActiveOrderError struct {
	CustomerID string
	OrderID    string
}

func (e *ActiveOrderError) Error() string {
	return fmt.Sprintf("customer %s already has active order %s", e.CustomerID, e.OrderID)
}

func NewActiveOrderError(customerID, orderID string) *ActiveOrderError {
	return &ActiveOrderError{CustomerID: customerID, OrderID: orderID}
}

func IsActiveOrderError(err error) (*ActiveOrderError, bool) {
	var ae *ActiveOrderError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// DispatchFailureError is only ever logged.
type DispatchFailureError struct {
	Template string
	ChatID   int64
	Cause    error
}

func (e *DispatchFailureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dispatch %s to %d failed: %v", e.Template, e.ChatID, e.Cause)
	}
	return fmt.Sprintf("dispatch %s to %d failed", e.Template, e.ChatID)
}

func (e *DispatchFailureError) Unwrap() error {
	return e.Cause
}

func NewDispatchFailureError(template string, chatID int64, cause error) *DispatchFailureError {
	return &DispatchFailureError{Template: template, ChatID: chatID, Cause: cause}
}

func IsDispatchFailureError(err error) (*DispatchFailureError, bool) {
	var de *DispatchFailureError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}
