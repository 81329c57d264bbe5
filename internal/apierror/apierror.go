package apierror

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Settlement domain codes. These are returned by the state machines
	// and routing logic, not just the HTTP layer.
	ErrInvalidAmount              ErrorCode = "INVALID_AMOUNT"
	ErrInsufficientBalance        ErrorCode = "INSUFFICIENT_BALANCE"
	ErrInvalidMilestoneTransition ErrorCode = "INVALID_MILESTONE_TRANSITION"
	ErrInvalidEscrowState         ErrorCode = "INVALID_ESCROW_STATE"
	ErrInvalidTransferState       ErrorCode = "INVALID_TRANSFER_STATE"
	ErrDisputeAlreadyOpen         ErrorCode = "DISPUTE_ALREADY_OPEN"
	ErrEscrowNotReleasable        ErrorCode = "ESCROW_NOT_RELEASABLE"
	ErrProcessingTimeout          ErrorCode = "PROCESSING_TIMEOUT"
	ErrExternalLedger             ErrorCode = "EXTERNAL_LEDGER_ERROR"
	ErrFeeSchedule                ErrorCode = "FEE_SCHEDULE_INVALID"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Retryable reports whether the caller may retry the failed operation
// with the same idempotency key. Only transient boundary failures
// qualify; state-machine violations never do.
func Retryable(err error) bool {
	apiErr, ok := err.(APIError)
	if !ok {
		return false
	}
	return apiErr.Code == ErrProcessingTimeout || apiErr.Code == ErrExternalLedger
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrDisputeAlreadyOpen:
			return http.StatusConflict
		case ErrInvalidInput, ErrInvalidAmount:
			return http.StatusBadRequest
		case ErrInvalidMilestoneTransition, ErrInvalidEscrowState, ErrInvalidTransferState, ErrEscrowNotReleasable:
			return http.StatusUnprocessableEntity
		case ErrInsufficientBalance:
			return http.StatusPaymentRequired
		case ErrProcessingTimeout:
			return http.StatusGatewayTimeout
		case ErrExternalLedger:
			return http.StatusBadGateway
		case ErrInternalServer, ErrFeeSchedule:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
