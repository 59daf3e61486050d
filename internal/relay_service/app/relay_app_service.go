package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zvonrelay/golang_services/internal/relay_service/domain"
	"github.com/zvonrelay/golang_services/internal/relay_service/provider"
)

// EventPublisher is satisfied by *messagebroker.NatsClient.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// RelayService forwards validated requests to the call provider and reports
// what happened to each send.
type RelayService struct {
	provider  provider.CallProvider
	publisher EventPublisher // optional
	logger    *slog.Logger
	now       func() time.Time
}

// NewRelayService creates a RelayService. publisher may be nil.
func NewRelayService(callProvider provider.CallProvider, publisher EventPublisher, logger *slog.Logger) *RelayService {
	return &RelayService{
		provider:  callProvider,
		publisher: publisher,
		logger:    logger.With("service", "relay_app"),
		now:       time.Now,
	}
}

func (s *RelayService) SendVoice(ctx context.Context, req domain.MessageRequest) (*provider.Response, error) {
	resp, err := s.provider.SendVoice(ctx, req.Phone, req.Text, req.RecordID, req.OutgoingPhone)
	s.recordDispatch(ctx, domain.ChannelVoice, req, resp, err)
	return resp, err
}

func (s *RelayService) SendSMS(ctx context.Context, req domain.MessageRequest) (*provider.Response, error) {
	resp, err := s.provider.SendSMS(ctx, req.Phone, req.Text, req.OutgoingPhone)
	s.recordDispatch(ctx, domain.ChannelSMS, req, resp, err)
	return resp, err
}

func (s *RelayService) TestAPIKey(ctx context.Context) (*provider.Response, error) {
	return s.provider.TestAPIKey(ctx)
}

func (s *RelayService) GetOutgoingPhones(ctx context.Context) (*provider.Response, error) {
	return s.provider.GetOutgoingPhones(ctx)
}

func (s *RelayService) GetRecords(ctx context.Context) (*provider.Response, error) {
	return s.provider.GetRecords(ctx)
}

func (s *RelayService) GetUserProfile(ctx context.Context) (*provider.Response, error) {
	return s.provider.GetUserProfile(ctx)
}

func (s *RelayService) recordDispatch(ctx context.Context, channel domain.Channel, req domain.MessageRequest, resp *provider.Response, sendErr error) {
	event := domain.DispatchEvent{
		ID:         uuid.NewString(),
		Channel:    channel,
		Phone:      req.CleanPhone(),
		OccurredAt: s.now().UTC(),
	}
	if req.HasOutgoingPhone() {
		event.OutgoingPhone = req.OutgoingPhone
	}
	if channel == domain.ChannelVoice && req.RecordID != nil {
		id := *req.RecordID
		event.RecordID = &id
	}

	outcome := "success"
	switch {
	case sendErr != nil:
		outcome = "fault"
		event.Error = sendErr.Error()
	case !resp.Success():
		outcome = "api_error"
		event.Error = resp.ErrorMessage()
	default:
		event.Success = true
	}
	dispatchCounter.WithLabelValues(string(channel), outcome).Inc()

	s.publish(ctx, event)
}

// publish is fire-and-forget; failures never reach the caller.
func (s *RelayService) publish(ctx context.Context, event domain.DispatchEvent) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal dispatch event", "event_id", event.ID, "error", err)
		dispatchEventsCounter.WithLabelValues(string(event.Channel), "error").Inc()
		return
	}
	// The request context may already be done once the response is written.
	pubCtx := context.WithoutCancel(ctx)
	if err := s.publisher.Publish(pubCtx, event.Subject(), data); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish dispatch event", "subject", event.Subject(), "event_id", event.ID, "error", err)
		dispatchEventsCounter.WithLabelValues(string(event.Channel), "error").Inc()
		return
	}
	dispatchEventsCounter.WithLabelValues(string(event.Channel), "published").Inc()
}
