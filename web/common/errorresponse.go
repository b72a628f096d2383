package common

// ErrorResponse is the body of every non-2xx reply. Devices key their
// retry decision off the HTTP status; Code exists so they can also tell
// rejection reasons apart without parsing Message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}
