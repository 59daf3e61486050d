package http

import "encoding/json"

// APIResponse is the envelope every /api endpoint answers with.
// Error is set only on failure; Message and Data only on success.
type APIResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func successResponse(message string, data json.RawMessage) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

func errorResponse(message string) APIResponse {
	return APIResponse{Success: false, Error: message}
}
