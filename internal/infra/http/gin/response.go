package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/errcode"
	"rentcar/internal/app/validation"
)

// respond writes the success envelope. Payload keys are merged next to success and message.
func respond(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// fail maps err to its code and status. Internal errors are logged and answered generically.
func fail(c *gin.Context, logger *slog.Logger, err error) {
	code := errcode.Of(err)
	status := statusFor(code)
	body := gin.H{
		"success": false,
		"code":    code,
		"message": errcode.Message(code),
	}
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body["errors"] = verr.Fields
		body["message"] = verr.Fields[0].Message
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"code", code,
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    errcode.InvalidInput,
		"message": message,
	})
}

func statusFor(code errcode.Code) int {
	switch code {
	case errcode.InvalidInput, errcode.InvalidDates, errcode.PickupTooSoon, errcode.DurationTooShort,
		errcode.CancelWindowPassed, errcode.CannotCancelCompleted, errcode.CannotCompleteCancel,
		errcode.CompleteTooEarly, errcode.InvalidCharge, errcode.BookingNotCompleted,
		errcode.BookingNotCancelled, errcode.BookingCancelled, errcode.RefundExceedsTotal,
		errcode.CarNotAvailable:
		return http.StatusBadRequest
	case errcode.Unauthenticated, errcode.InvalidCredentials:
		return http.StatusUnauthorized
	case errcode.RoleNotAllowed, errcode.UserNotVerified, errcode.UserBlocked,
		errcode.NotBookingParty, errcode.NotCarOwner:
		return http.StatusForbidden
	case errcode.CarNotFound, errcode.BookingNotFound, errcode.UserNotFound:
		return http.StatusNotFound
	case errcode.OverlappingBooking, errcode.EmailTaken, errcode.IdempotencyKeyReused, errcode.Conflict:
		return http.StatusConflict
	case errcode.StorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
