package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware" // For GetReqID
	"github.com/go-playground/validator/v10"
	"github.com/zvonrelay/golang_services/internal/relay_service/domain"
	"github.com/zvonrelay/golang_services/internal/relay_service/provider"
)

// RelayService is the application layer the handlers call into.
type RelayService interface {
	SendVoice(ctx context.Context, req domain.MessageRequest) (*provider.Response, error)
	SendSMS(ctx context.Context, req domain.MessageRequest) (*provider.Response, error)
	TestAPIKey(ctx context.Context) (*provider.Response, error)
	GetOutgoingPhones(ctx context.Context) (*provider.Response, error)
	GetRecords(ctx context.Context) (*provider.Response, error)
	GetUserProfile(ctx context.Context) (*provider.Response, error)
}

type RelayHandler struct {
	service  RelayService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewRelayHandler(service RelayService, validate *validator.Validate, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		service:  service,
		validate: validate,
		logger:   logger.With("handler", "relay"),
	}
}

// RegisterRoutes registers the relay routes with the given router.
func (h *RelayHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send-voice", h.handleSendVoice)
	r.Post("/send-sms", h.handleSendSMS)
	r.Get("/test-api-key", h.handleQuery("Error testing API key", h.service.TestAPIKey))
	r.Get("/get-phones", h.handleQuery("Error fetching outgoing phones", h.service.GetOutgoingPhones))
	r.Get("/get-records", h.handleQuery("Error fetching recordings", h.service.GetRecords))
	r.Get("/get-profile", h.handleQuery("Error fetching profile", h.service.GetUserProfile))
}

func (h *RelayHandler) handleSendVoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, ok := h.decodeMessageRequest(w, r, logger)
	if !ok {
		return
	}
	logger.InfoContext(ctx, "Voice message requested", "request", req)

	resp, err := h.service.SendVoice(ctx, req)
	writeProviderResult(ctx, w, logger, "Error sending voice message", resp, err)
}

func (h *RelayHandler) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, ok := h.decodeMessageRequest(w, r, logger)
	if !ok {
		return
	}
	// recordId only applies to voice calls.
	req.RecordID = nil
	logger.InfoContext(ctx, "SMS requested", "request", req)

	resp, err := h.service.SendSMS(ctx, req)
	writeProviderResult(ctx, w, logger, "Error sending SMS", resp, err)
}

func (h *RelayHandler) handleQuery(operation string, query func(context.Context) (*provider.Response, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp, err := query(ctx)
		writeProviderResult(ctx, w, h.requestLogger(r), operation, resp, err)
	}
}

// decodeMessageRequest writes a 400 and returns false when the body is not
// valid JSON or fails validation.
func (h *RelayHandler) decodeMessageRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (domain.MessageRequest, bool) {
	ctx := r.Context()
	var req domain.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Failed to decode message request", "error", err)
		writeJSON(ctx, w, logger, http.StatusBadRequest, errorResponse(validationErrorPrefix+msgInvalidBody))
		return req, false
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		msg := domain.ValidationMessage(err)
		logger.WarnContext(ctx, "Validation error", "details", msg)
		writeJSON(ctx, w, logger, http.StatusBadRequest, errorResponse(validationErrorPrefix+msg))
		return req, false
	}
	return req, true
}

func (h *RelayHandler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
}
