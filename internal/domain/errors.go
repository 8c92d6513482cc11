package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing credentials",
		StatusCode: 401,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		StatusCode: 403,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrInvalidSignature = &AppError{
		Code:       "INVALID_SIGNATURE",
		Message:    "Webhook signature verification failed",
		StatusCode: 401,
	}

	ErrInvalidPayload = &AppError{
		Code:       "INVALID_PAYLOAD",
		Message:    "Invalid JSON payload",
		StatusCode: 400,
	}

	ErrStoreNotFound = &AppError{
		Code:       "STORE_NOT_FOUND",
		Message:    "Store not found",
		StatusCode: 404,
	}

	ErrStoreInactive = &AppError{
		Code:       "STORE_INACTIVE",
		Message:    "Store installation is inactive",
		StatusCode: 403,
	}

	ErrStoreExists = &AppError{
		Code:       "STORE_ALREADY_EXISTS",
		Message:    "Store with this hash is already installed",
		StatusCode: 409,
	}

	ErrProductNotFound = &AppError{
		Code:       "PRODUCT_NOT_FOUND",
		Message:    "Product not found",
		StatusCode: 404,
	}

	ErrEventNotFound = &AppError{
		Code:       "EVENT_NOT_FOUND",
		Message:    "Webhook event not found",
		StatusCode: 404,
	}

	ErrInvalidOAuthState = &AppError{
		Code:       "INVALID_OAUTH_STATE",
		Message:    "Invalid OAuth state parameter",
		StatusCode: 400,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}
)
