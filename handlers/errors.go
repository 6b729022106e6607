package handlers

// ErrorResponse is the JSON error response structure shared by all handlers
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}
