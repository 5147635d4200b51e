package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation  ErrCode = "VALIDATION_ERROR"
	ErrInvalidID   ErrCode = "INVALID_ID"
	ErrInvalidRole ErrCode = "INVALID_ROLE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrMethodNotAllowed ErrCode = "METHOD_NOT_ALLOWED"

	// ─── Generation ────────────────────────────────────────────────────
	ErrUpstream ErrCode = "UPSTREAM_ERROR"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrTokenRequired:
		return "Missing or invalid Authorization header."
	case ErrTokenInvalid:
		return "Invalid token."
	case ErrTokenExpired:
		return "Token has expired. Please log in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidRole:
		return "Role must be one of: admin, test_taker."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrMethodNotAllowed:
		return "Method not allowed."

	// ─── Generation ────────────────────────────────────────────────────
	case ErrUpstream:
		return "The question generation service is unavailable. Please try again."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
