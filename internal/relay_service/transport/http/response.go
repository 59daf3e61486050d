package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zvonrelay/golang_services/internal/relay_service/provider"
)

const (
	msgOperationCompleted = "Operation completed successfully"
	msgAPIKeyWorks        = "API key works! Email: %s, Balance: %s"
	msgInvalidBody        = "invalid request body"
	msgInternalError      = "Internal server error"
	validationErrorPrefix = "Validation error: "
)

func writeJSON(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.ErrorContext(ctx, "Failed to write response", "error", err)
	}
}

// writeProviderResult maps a provider outcome onto the envelope. Provider
// failures are reported with HTTP 200 and success=false.
func writeProviderResult(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, operation string, resp *provider.Response, err error) {
	if err != nil {
		if provider.IsProviderError(err) {
			logger.ErrorContext(ctx, "Provider call failed", "operation", operation, "error", err)
		} else {
			logger.ErrorContext(ctx, "Unexpected error", "operation", operation, "error", err)
		}
		writeJSON(ctx, w, logger, http.StatusOK, errorResponse(fmt.Sprintf("%s: %v", operation, err)))
		return
	}
	if !resp.Success() {
		logger.WarnContext(ctx, "Provider reported an error", "operation", operation, "provider_error", resp.ErrorMessage())
		writeJSON(ctx, w, logger, http.StatusOK, errorResponse(resp.ErrorMessage()))
		return
	}

	var data json.RawMessage
	if resp.HasData() {
		data = resp.Data
	}
	writeJSON(ctx, w, logger, http.StatusOK, successResponse(successMessage(resp), data))
}

func successMessage(resp *provider.Response) string {
	if account, ok := resp.Payload.(provider.AccountPayload); ok {
		return fmt.Sprintf(msgAPIKeyWorks, account.Email, account.Balance)
	}
	return msgOperationCompleted
}
