package errcode

import (
	"errors"

	"rentcar/internal/app/access"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/policies"
	"rentcar/internal/app/services/auth"
	"rentcar/internal/app/validation"
	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	domainpricing "rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
	"rentcar/internal/domain/shared/money"
	domainuser "rentcar/internal/domain/user"
)

// Code is the stable machine readable reason returned to clients.
type Code string

const (
	InvalidInput          Code = "INVALID_INPUT"
	InvalidDates          Code = "INVALID_DATES"
	CarNotFound           Code = "CAR_NOT_FOUND"
	BookingNotFound       Code = "BOOKING_NOT_FOUND"
	UserNotFound          Code = "USER_NOT_FOUND"
	CarNotAvailable       Code = "CAR_NOT_AVAILABLE"
	PickupTooSoon         Code = "PICKUP_TOO_SOON"
	DurationTooShort      Code = "DURATION_TOO_SHORT"
	OverlappingBooking    Code = "OVERLAPPING_BOOKING"
	Unauthenticated       Code = "UNAUTHENTICATED"
	InvalidCredentials    Code = "INVALID_CREDENTIALS"
	RoleNotAllowed        Code = "ROLE_NOT_ALLOWED"
	UserNotVerified       Code = "USER_NOT_VERIFIED"
	UserBlocked           Code = "USER_BLOCKED"
	NotBookingParty       Code = "NOT_BOOKING_PARTY"
	NotCarOwner           Code = "NOT_CAR_OWNER"
	EmailTaken            Code = "EMAIL_TAKEN"
	CancelWindowPassed    Code = "CANCEL_WINDOW_PASSED"
	CannotCancelCompleted Code = "CANNOT_CANCEL_COMPLETED"
	CannotCompleteCancel  Code = "CANNOT_COMPLETE_CANCELLED"
	CompleteTooEarly      Code = "COMPLETE_TOO_EARLY"
	InvalidCharge         Code = "INVALID_CHARGE"
	BookingNotCompleted   Code = "BOOKING_NOT_COMPLETED"
	BookingNotCancelled   Code = "BOOKING_NOT_CANCELLED"
	BookingCancelled      Code = "BOOKING_CANCELLED"
	RefundExceedsTotal    Code = "REFUND_EXCEEDS_TOTAL"
	IdempotencyKeyReused  Code = "IDEMPOTENCY_KEY_REUSED"
	Conflict              Code = "CONFLICT"
	StorageUnavailable    Code = "STORAGE_UNAVAILABLE"
	Internal              Code = "INTERNAL"
)

type rule struct {
	target error
	code   Code
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{validation.ErrInvalidInput, InvalidInput},
	{auth.ErrPasswordTooShort, InvalidInput},
	{policies.ErrEmptyUpload, InvalidInput},
	{domainuser.ErrEmailRequired, InvalidInput},
	{domainuser.ErrNameRequired, InvalidInput},
	{domainuser.ErrInvalidRole, InvalidInput},
	{domaincars.ErrOwnerRequired, InvalidInput},
	{domaincars.ErrNameRequired, InvalidInput},
	{domaincars.ErrPlateRequired, InvalidInput},
	{domaincars.ErrCityRequired, InvalidInput},
	{domaincars.ErrInvalidDailyRate, InvalidInput},
	{domainbooking.ErrInvalidApproval, InvalidInput},
	{domainledger.ErrNonPositiveAmount, InvalidInput},
	{money.ErrInvalidCurrency, InvalidInput},
	{money.ErrNegativeAmount, InvalidInput},
	{daterange.ErrInvalidRange, InvalidDates},
	{domainpricing.ErrInvalidDuration, InvalidDates},
	{domaincars.ErrNotFound, CarNotFound},
	{domainbooking.ErrBookingNotFound, BookingNotFound},
	{domainuser.ErrNotFound, UserNotFound},
	{domainbooking.ErrCarNotAvailable, CarNotAvailable},
	{domainbooking.ErrPickupTooSoon, PickupTooSoon},
	{domainbooking.ErrDurationTooShort, DurationTooShort},
	{domainbooking.ErrOverlapping, OverlappingBooking},
	{access.ErrUnauthenticated, Unauthenticated},
	{auth.ErrInvalidToken, Unauthenticated},
	{auth.ErrInvalidCredentials, InvalidCredentials},
	{access.ErrRoleNotAllowed, RoleNotAllowed},
	{auth.ErrRoleNotSelfService, RoleNotAllowed},
	{access.ErrUserNotVerified, UserNotVerified},
	{access.ErrUserBlocked, UserBlocked},
	{auth.ErrUserBlocked, UserBlocked},
	{access.ErrNotBookingParty, NotBookingParty},
	{access.ErrNotCarOwner, NotCarOwner},
	{domaincars.ErrNotOwned, NotCarOwner},
	{domainuser.ErrEmailAlreadyUsed, EmailTaken},
	{domainbooking.ErrCancelWindowPassed, CancelWindowPassed},
	{domainbooking.ErrCannotCancelCompleted, CannotCancelCompleted},
	{domainbooking.ErrCannotCompleteCancelled, CannotCompleteCancel},
	{domainbooking.ErrCompleteTooEarly, CompleteTooEarly},
	{domainbooking.ErrInvalidCharge, InvalidCharge},
	{domainbooking.ErrApprovalRequiresCompletion, BookingNotCompleted},
	{domainbooking.ErrNotCancelled, BookingNotCancelled},
	{domainbooking.ErrPaymentOnCancelled, BookingCancelled},
	{domainledger.ErrRefundExceeds, RefundExceedsTotal},
	{middleware.ErrIdempotencyKeyReused, IdempotencyKeyReused},
	{domainbooking.ErrVersionConflict, Conflict},
	{policies.ErrBlobStorageUnavailable, StorageUnavailable},
}

// Of classifies err. Unknown errors are Internal.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	for _, r := range rules {
		if errors.Is(err, r.target) {
			return r.code
		}
	}
	return Internal
}

var messages = map[Code]string{
	InvalidInput:          "Invalid input",
	InvalidDates:          "Dropoff must be after pickup",
	CarNotFound:           "Car not found",
	BookingNotFound:       "Booking not found",
	UserNotFound:          "User not found",
	CarNotAvailable:       "Car is not available for booking",
	PickupTooSoon:         "Pickup time is too soon",
	DurationTooShort:      "Rental duration is too short",
	OverlappingBooking:    "Car is already booked for the selected dates",
	Unauthenticated:       "Authentication required",
	InvalidCredentials:    "Invalid email or password",
	RoleNotAllowed:        "Your role is not allowed to perform this action",
	UserNotVerified:       "Your account must be verified before booking",
	UserBlocked:           "Your account is blocked",
	NotBookingParty:       "You are not a party of this booking",
	NotCarOwner:           "You do not own this car",
	EmailTaken:            "Email is already registered",
	CancelWindowPassed:    "Cancellation window has passed",
	CannotCancelCompleted: "Completed bookings cannot be cancelled",
	CannotCompleteCancel:  "Cancelled bookings cannot be completed",
	CompleteTooEarly:      "Too early to complete this booking",
	InvalidCharge:         "Extra charges must not be negative",
	BookingNotCompleted:   "Booking is not completed",
	BookingNotCancelled:   "Only cancelled bookings can be refunded",
	BookingCancelled:      "Booking is cancelled",
	RefundExceedsTotal:    "Refund exceeds the booking total",
	IdempotencyKeyReused:  "Idempotency key was used for a different request",
	Conflict:              "The booking was changed by another request, please retry",
	StorageUnavailable:    "File storage is unavailable",
	Internal:              "Something went wrong",
}

// Message is the client facing text for code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[Internal]
}
