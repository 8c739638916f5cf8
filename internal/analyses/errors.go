package analyses

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMalformedResult = errors.New("malformed analysis result")
	ErrEmptyResume     = errors.New("no text could be extracted from the resume")
)

const (
	ErrorCodeValidation         = "VALIDATION_ERROR"
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeUnsupportedFile    = "UNSUPPORTED_FILE_TYPE"
	ErrorCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrorCodeExtractionFailed   = "EXTRACTION_FAILED"
	ErrorCodeLLMAuth            = "LLM_AUTH"
	ErrorCodeLLMPayment         = "LLM_PAYMENT_REQUIRED"
	ErrorCodeLLMRateLimited     = "LLM_RATE_LIMITED"
	ErrorCodeLLMError           = "LLM_ERROR"
	ErrorCodeLLMTimeout         = "LLM_TIMEOUT"
	ErrorCodeLLMSchemaMismatch  = "LLM_SCHEMA_MISMATCH"
	ErrorCodeLLMInvalidResponse = "LLM_INVALID_RESPONSE"
	ErrorCodeInternal           = "INTERNAL_ERROR"
)
