package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/feral-file/ff-distributor/internal/api/shared/errors"
	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/logger"
	"go.uber.org/zap"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondForbidden responds with a forbidden error
func respondForbidden(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusForbidden, apierrors.NewForbiddenError(message, details...))
}

// respondConflict responds with a conflict error
func respondConflict(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusConflict, apierrors.NewConflictError(message, details...))
}

// respondServiceUnavailable responds with a service unavailable error
func respondServiceUnavailable(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusServiceUnavailable, apierrors.NewServiceUnavailableError(message, details...))
}

// respondInternalError responds with an internal server error and logs the cause
func respondInternalError(c *gin.Context, err error, message string) {
	logger.ErrorCtx(c.Request.Context(), err, zap.String("message", message))
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// engineErrorReasons maps ledger sentinel errors to machine-readable reasons
var engineErrorReasons = map[error]string{
	domain.ErrDistributionNotFound:      "distribution_not_found",
	domain.ErrBeneficiaryNotFound:       "beneficiary_not_found",
	domain.ErrInvalidReferencePoint:     "invalid_reference_point",
	domain.ErrZeroAddress:               "zero_address",
	domain.ErrEmptyBatch:                "empty_batch",
	domain.ErrBatchTooLarge:             "batch_too_large",
	domain.ErrUnsetMethod:               "unset_method",
	domain.ErrInvalidAmount:             "invalid_amount",
	domain.ErrAllocationAlreadyDeclared: "allocation_already_declared",
	domain.ErrAllocationAfterSettlement: "allocation_after_settlement",
	domain.ErrAlreadySettled:            "already_settled",
	domain.ErrWrongMethod:               "wrong_method",
	domain.ErrNothingToSettle:           "nothing_to_settle",
	domain.ErrInsufficientCustody:       "insufficient_custody",
	domain.ErrNotAllowListed:            "not_allow_listed",
	domain.ErrPaused:                    "paused",
	domain.ErrOperationInProgress:       "operation_in_progress",
	domain.ErrUnauthorized:              "unauthorized",
}

func engineErrorReason(err error) string {
	for sentinel, reason := range engineErrorReasons {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return ""
}

// respondEngineError maps engine and domain errors to HTTP responses
func respondEngineError(c *gin.Context, err error, message string) {
	reason := engineErrorReason(err)

	var apiErr *apierrors.APIError
	var status int
	switch {
	case errors.Is(err, domain.ErrDistributionNotFound),
		errors.Is(err, domain.ErrBeneficiaryNotFound):
		status = http.StatusNotFound
		apiErr = apierrors.NewNotFoundError(message, err.Error())
	case errors.Is(err, domain.ErrInvalidReferencePoint),
		errors.Is(err, domain.ErrZeroAddress),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrBatchTooLarge),
		errors.Is(err, domain.ErrUnsetMethod),
		errors.Is(err, domain.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
		apiErr = apierrors.NewValidationError(err.Error())
	case errors.Is(err, domain.ErrAllocationAlreadyDeclared),
		errors.Is(err, domain.ErrAllocationAfterSettlement),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrWrongMethod),
		errors.Is(err, domain.ErrNothingToSettle),
		errors.Is(err, domain.ErrInsufficientCustody):
		status = http.StatusConflict
		apiErr = apierrors.NewConflictError(message, err.Error())
	case errors.Is(err, domain.ErrNotAllowListed),
		errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
		apiErr = apierrors.NewForbiddenError(message, err.Error())
	case errors.Is(err, domain.ErrPaused),
		errors.Is(err, domain.ErrOperationInProgress):
		status = http.StatusServiceUnavailable
		apiErr = apierrors.NewServiceUnavailableError(message, err.Error())
	default:
		respondInternalError(c, err, message)
		return
	}

	c.JSON(status, apiErr.WithReason(reason))
}
