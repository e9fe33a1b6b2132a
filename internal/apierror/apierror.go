package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

// Deterministic failures are checked client-side before a ledger
// transaction is submitted; ledger failures are surfaced verbatim.
const (
	// Authorization
	ErrRoleNotAllowed       ErrorCode = "ROLE_NOT_ALLOWED"
	ErrInvalidTransferRoute ErrorCode = "INVALID_TRANSFER_ROUTE"
	ErrOnlyCurrentHandler   ErrorCode = "ONLY_CURRENT_HANDLER"
	ErrNoPendingTransfer    ErrorCode = "NO_PENDING_TRANSFER_FOR_RECEIVER"

	// Validation
	ErrInvalidQuantity        ErrorCode = "INVALID_QUANTITY"
	ErrDuplicateTrackingCode  ErrorCode = "DUPLICATE_TRACKING_CODE"
	ErrCannotTransferToSelf   ErrorCode = "CANNOT_TRANSFER_TO_SELF"
	ErrRecipientHasNoRole     ErrorCode = "RECIPIENT_HAS_NO_ROLE"
	ErrQuantityExceedsParent  ErrorCode = "QUANTITY_EXCEEDS_PARENT"
	ErrEmptyParentSet         ErrorCode = "EMPTY_PARENT_SET"
	ErrTransferAlreadyPending ErrorCode = "TRANSFER_ALREADY_PENDING"
	ErrBadRequest             ErrorCode = "BAD_REQUEST"

	// Not found
	ErrBatchNotFound ErrorCode = "BATCH_NOT_FOUND"

	// Ledger
	ErrTransactionRejected ErrorCode = "TRANSACTION_REJECTED"
	ErrNetworkUnavailable  ErrorCode = "NETWORK_UNAVAILABLE"

	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Category groups codes so a caller can distinguish "you are not allowed"
// from "the request was malformed" from "the ledger rejected it".
type Category string

const (
	CategoryAuthorization Category = "authorization"
	CategoryValidation    Category = "validation"
	CategoryNotFound      Category = "not_found"
	CategoryLedger        Category = "ledger"
	CategoryInternal      Category = "internal"
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
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CategoryOf classifies an error code into its failure category.
func CategoryOf(code ErrorCode) Category {
	switch code {
	case ErrRoleNotAllowed, ErrInvalidTransferRoute, ErrOnlyCurrentHandler, ErrNoPendingTransfer:
		return CategoryAuthorization
	case ErrInvalidQuantity, ErrDuplicateTrackingCode, ErrCannotTransferToSelf,
		ErrRecipientHasNoRole, ErrQuantityExceedsParent, ErrEmptyParentSet,
		ErrTransferAlreadyPending, ErrBadRequest:
		return CategoryValidation
	case ErrBatchNotFound:
		return CategoryNotFound
	case ErrTransactionRejected, ErrNetworkUnavailable:
		return CategoryLedger
	default:
		return CategoryInternal
	}
}

// CodeOf unwraps err to its APIError code, or ErrInternalServer when the
// error carries no code.
func CodeOf(err error) ErrorCode {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrInternalServer
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch CategoryOf(apiErr.Code) {
	case CategoryAuthorization:
		return http.StatusForbidden
	case CategoryValidation:
		if apiErr.Code == ErrDuplicateTrackingCode || apiErr.Code == ErrTransferAlreadyPending {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryLedger:
		if apiErr.Code == ErrNetworkUnavailable {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
