package http

import "net/http"

// Client-facing messages. They never carry internal detail.
const (
	MsgAuthentication  = "Authentication error"
	MsgAccountLocked   = "Account locked"
	MsgLoginRequired   = "Please login to continue"
	MsgNoPermission    = "No permission to make this request"
	MsgInternal        = "Internal server error"
	MsgNotFound        = "Not found"
	MsgTooManyRequests = "Too many requests"
	MsgInvalidBody     = "Invalid request body"

	// Password reset outcomes.
	MsgResetTokenInvalid = "Invalid token"
	MsgResetTokenExpired = "Token expired"
)

// ErrorDetail is one entry of the error envelope. Field is set for
// validation failures.
type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Errors []ErrorDetail `json:"errors"`
}

// WriteErrors writes the envelope with one or more details.
func WriteErrors(w http.ResponseWriter, statusCode int, details ...ErrorDetail) {
	if details == nil {
		details = []ErrorDetail{}
	}
	WriteJSON(w, statusCode, ErrorResponse{Errors: details})
}

// WriteError writes a single message without a field.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteErrors(w, statusCode, ErrorDetail{Message: message})
}

func WriteValidationErrors(w http.ResponseWriter, details []ErrorDetail) {
	WriteErrors(w, http.StatusBadRequest, details...)
}

func WriteFieldError(w http.ResponseWriter, field, message string) {
	WriteErrors(w, http.StatusBadRequest, ErrorDetail{Field: field, Message: message})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteAuthenticationError(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, MsgAuthentication)
}

func WriteAccountLocked(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, MsgAccountLocked)
}

func WriteInvalidToken(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, MsgLoginRequired)
}

func WritePermissionError(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, MsgNoPermission)
}

func WriteNotFound(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, MsgNotFound)
}

func WriteTooManyRequests(w http.ResponseWriter) {
	WriteError(w, http.StatusTooManyRequests, MsgTooManyRequests)
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, MsgInternal)
}
