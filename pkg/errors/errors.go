package errors

import "fmt"

// Application error types organized by category for better error handling

type ErrorType int

// Request/Input Errors - errors the caller can fix by changing the request
const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation

	// Quota/Credential Errors - admission failures raised before any
	// network cost is incurred
	ErrorTypeMissingCredential
	ErrorTypeQuotaDaily
	ErrorTypeQuotaRate

	// Generation Errors - terminal per-request failures from the synthesis pipeline
	ErrorTypeMalformedResponse
	ErrorTypeGenerationBlocked
	ErrorTypeNoImageProduced
	ErrorTypeGeneration

	// Infrastructure Errors - errors related to local persistence and system setup
	ErrorTypeStorageUnavailable
	ErrorTypeConfiguration
)

// String returns the string representation of error type
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeMissingCredential:
		return "MISSING_CREDENTIAL"
	case ErrorTypeQuotaDaily:
		return "QUOTA_EXCEEDED_DAILY"
	case ErrorTypeQuotaRate:
		return "QUOTA_EXCEEDED_RATE"
	case ErrorTypeMalformedResponse:
		return "MALFORMED_RESPONSE"
	case ErrorTypeGenerationBlocked:
		return "GENERATION_BLOCKED"
	case ErrorTypeNoImageProduced:
		return "NO_IMAGE_PRODUCED"
	case ErrorTypeGeneration:
		return "GENERATION_ERROR"
	case ErrorTypeStorageUnavailable:
		return "STORAGE_UNAVAILABLE"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

func Wrap(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// Request/Input Error Constructors
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

// Quota/Credential Error Constructors
func NewMissingCredentialError(message string) *AppError {
	return New(ErrorTypeMissingCredential, message)
}

func NewQuotaDailyError(message string) *AppError {
	return New(ErrorTypeQuotaDaily, message)
}

func NewQuotaRateError(message string) *AppError {
	return New(ErrorTypeQuotaRate, message)
}

// Generation Error Constructors
func NewMalformedResponseError(message string, cause error) *AppError {
	return Wrap(ErrorTypeMalformedResponse, message, cause)
}

func NewGenerationBlockedError(snippet string) *AppError {
	return New(ErrorTypeGenerationBlocked, snippet)
}

func NewNoImageProducedError() *AppError {
	return New(ErrorTypeNoImageProduced, "no image generated")
}

func NewGenerationError(message string, cause error) *AppError {
	return Wrap(ErrorTypeGeneration, message, cause)
}

// Infrastructure Error Constructors
func NewStorageUnavailableError(message string, cause error) *AppError {
	return Wrap(ErrorTypeStorageUnavailable, message, cause)
}

func NewConfigurationError(message string, cause error) *AppError {
	return Wrap(ErrorTypeConfiguration, message, cause)
}

// Helper functions for error type checking
func IsValidationError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeValidation
	}
	return false
}

func IsMissingCredentialError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeMissingCredential
	}
	return false
}

// IsQuotaExceededError reports whether err is either quota failure, daily or rate.
func IsQuotaExceededError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeQuotaDaily || appErr.Type == ErrorTypeQuotaRate
	}
	return false
}

func IsQuotaDailyError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeQuotaDaily
	}
	return false
}

func IsQuotaRateError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeQuotaRate
	}
	return false
}

func IsMalformedResponseError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeMalformedResponse
	}
	return false
}

func IsGenerationBlockedError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeGenerationBlocked
	}
	return false
}

func IsNoImageProducedError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeNoImageProduced
	}
	return false
}

func IsStorageUnavailableError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeStorageUnavailable
	}
	return false
}

func IsConfigurationError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeConfiguration
	}
	return false
}
