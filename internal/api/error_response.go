// File: internal/api/error_response.go
package api

// Machine-readable kinds carried in ErrorResponse.Error.
// 邊界層依 kind 對應固定的 HTTP 狀態碼。
const (
	ErrKindValidation         = "validation_error"
	ErrKindDuplicateEmail     = "duplicate_email"
	ErrKindInvalidCredentials = "invalid_credentials"
	ErrKindUnauthenticated    = "unauthenticated"
	ErrKindForbidden          = "forbidden"
	ErrKindNotFound           = "not_found"
	ErrKindRateLimited        = "rate_limited"
	ErrKindInternal           = "internal_error"
)

// swagger:model api.ErrorResponse
type ErrorResponse struct {
	Error   string            `json:"error" example:"validation_error"`
	Message string            `json:"message" example:"guests must be at least 1"`
	Fields  map[string]string `json:"fields,omitempty"`
}
