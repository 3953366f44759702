package model

// ErrorResponse for consistent error handling
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string           `json:"code"`
	Message   string           `json:"message"`
	Fields    []ProcessMessage `json:"fields,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

func (e *ErrorDetail) Error() string {
	return e.Message
}
