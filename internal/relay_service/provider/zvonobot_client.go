package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zvonrelay/golang_services/internal/relay_service/domain"
)

const (
	EndpointCreateCall = "apiCalls/create"
	EndpointUserInfo   = "apiCalls/userInfo"
	EndpointGetPhones  = "apiCalls/getPhones"
	EndpointGetRecords = "apiCalls/getRecords"
)

// ZvonobotClient talks to the call provider's JSON API. The API key is sent
// in every request body.
type ZvonobotClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	phoneCache *OutgoingPhoneCache
}

func NewZvonobotClient(logger *slog.Logger, baseURL, apiKey string, httpClient *http.Client) *ZvonobotClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ZvonobotClient{
		logger:     logger.With("provider", "zvonobot"),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		phoneCache: &OutgoingPhoneCache{},
	}
}

// SendVoice places a call that speaks text, or plays the pre-approved
// recording recordID (skipping synthesis and moderation) when it is set.
func (c *ZvonobotClient) SendVoice(ctx context.Context, phone, text string, recordID *int, outgoingPhone string) (*Response, error) {
	cleanPhone := domain.CleanPhone(phone)
	outgoing := c.outgoingPhoneFor(ctx, outgoingPhone)

	req := newVoiceCallRequest(c.apiKey, cleanPhone, text, recordID, outgoing)
	if recordID != nil {
		c.logger.InfoContext(ctx, "Using pre-approved recording", "record_id", *recordID)
	} else {
		c.logger.InfoContext(ctx, "Using text-to-speech")
	}
	c.logger.InfoContext(ctx, "Sending voice message", "phone", cleanPhone, "outgoing_phone", outgoing, "request", req)

	resp, err := c.post(ctx, EndpointCreateCall, payloadCall, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Voice message failed", "phone", cleanPhone, "error", err)
		return nil, err
	}
	if resp.Success() {
		c.logger.InfoContext(ctx, "Voice message sent", "phone", cleanPhone)
	} else {
		c.logger.ErrorContext(ctx, "Provider rejected voice message", "phone", cleanPhone, "provider_error", resp.ErrorMessage())
	}
	return resp, nil
}

// SendSMS places a call with a placeholder voice leg and a single IVR branch
// whose smsText the provider delivers as an SMS.
func (c *ZvonobotClient) SendSMS(ctx context.Context, phone, text, outgoingPhone string) (*Response, error) {
	cleanPhone := domain.CleanPhone(phone)
	outgoing := c.outgoingPhoneFor(ctx, outgoingPhone)

	req := newSMSCallRequest(c.apiKey, cleanPhone, text, outgoing)
	c.logger.InfoContext(ctx, "Sending SMS", "phone", cleanPhone, "outgoing_phone", outgoing, "request", req)

	resp, err := c.post(ctx, EndpointCreateCall, payloadCall, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "SMS failed", "phone", cleanPhone, "error", err)
		return nil, err
	}
	if resp.Success() {
		c.logger.InfoContext(ctx, "SMS sent", "phone", cleanPhone)
	} else {
		c.logger.ErrorContext(ctx, "Provider rejected SMS", "phone", cleanPhone, "provider_error", resp.ErrorMessage())
	}
	return resp, nil
}

func (c *ZvonobotClient) TestAPIKey(ctx context.Context) (*Response, error) {
	c.logger.InfoContext(ctx, "Testing API key", "api_key", maskKey(c.apiKey))
	return c.query(ctx, EndpointUserInfo, payloadAccount)
}

func (c *ZvonobotClient) GetOutgoingPhones(ctx context.Context) (*Response, error) {
	c.logger.InfoContext(ctx, "Fetching outgoing phones")
	return c.query(ctx, EndpointGetPhones, payloadPhones)
}

func (c *ZvonobotClient) GetRecords(ctx context.Context) (*Response, error) {
	c.logger.InfoContext(ctx, "Fetching pre-approved recordings")
	return c.query(ctx, EndpointGetRecords, payloadRecords)
}

func (c *ZvonobotClient) GetUserProfile(ctx context.Context) (*Response, error) {
	c.logger.InfoContext(ctx, "Fetching user profile")
	return c.query(ctx, EndpointUserInfo, payloadAccount)
}

// ResolveOutgoingPhone returns the default outgoing phone: the cached value,
// else the first number on the account, else DutyPhone. It never fails.
func (c *ZvonobotClient) ResolveOutgoingPhone(ctx context.Context) string {
	return c.phoneCache.GetOrResolve(ctx, c.lookupOutgoingPhone)
}

func (c *ZvonobotClient) outgoingPhoneFor(ctx context.Context, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return c.ResolveOutgoingPhone(ctx)
}

func (c *ZvonobotClient) lookupOutgoingPhone(ctx context.Context) (string, bool) {
	resp, err := c.GetOutgoingPhones(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// The caller went away; don't pin the fallback for everyone else.
			c.logger.WarnContext(ctx, "Outgoing phone lookup cancelled, using duty phone", "error", err)
			return DutyPhone, false
		}
		c.logger.WarnContext(ctx, "Outgoing phone lookup failed, using duty phone", "error", err)
		outgoingPhoneLookupsCounter.WithLabelValues("duty").Inc()
		return DutyPhone, true
	}

	if resp.Success() {
		if list, ok := resp.Payload.(PhoneListPayload); ok && len(list.Phones) > 0 && list.Phones[0].Phone != "" {
			phone := list.Phones[0].Phone
			c.logger.InfoContext(ctx, "Cached outgoing phone", "outgoing_phone", phone)
			outgoingPhoneLookupsCounter.WithLabelValues("phone").Inc()
			return phone, true
		}
	}

	c.logger.InfoContext(ctx, "No outgoing phone on the account, using duty phone")
	outgoingPhoneLookupsCounter.WithLabelValues("duty").Inc()
	return DutyPhone, true
}

func (c *ZvonobotClient) query(ctx context.Context, endpoint string, kind payloadKind) (*Response, error) {
	resp, err := c.post(ctx, endpoint, kind, apiKeyRequest{APIKey: c.apiKey})
	if err != nil {
		c.logger.ErrorContext(ctx, "Provider query failed", "endpoint", endpoint, "error", err)
		return nil, err
	}
	return resp, nil
}

func (c *ZvonobotClient) post(ctx context.Context, endpoint string, kind payloadKind, body any) (*Response, error) {
	timer := time.Now()
	defer func() {
		providerRequestDurationHist.WithLabelValues(endpoint).Observe(time.Since(timer).Seconds())
	}()

	reqBytes, err := json.Marshal(body)
	if err != nil {
		return nil, c.fail(endpoint, "request_error", &ProviderError{Kind: ErrKindRequest, Endpoint: endpoint, Message: "failed to marshal request", Cause: err})
	}

	url := c.baseURL + "/" + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, c.fail(endpoint, "request_error", &ProviderError{Kind: ErrKindRequest, Endpoint: endpoint, Message: "failed to create HTTP request", Cause: err})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Charset", "UTF-8")

	c.logger.DebugContext(ctx, "Sending HTTP request to provider", "url", url, "request", body)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(endpoint, "transport_error", &ProviderError{Kind: ErrKindTransport, Endpoint: endpoint, Message: "failed to send request to provider", Cause: err})
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.fail(endpoint, "transport_error", &ProviderError{
			Kind: ErrKindTransport, Endpoint: endpoint, StatusCode: httpResp.StatusCode,
			Message: fmt.Sprintf("failed to read provider response (status %d)", httpResp.StatusCode), Cause: err,
		})
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		decoded := DecodeUnicodeEscapes(string(respBody))
		c.logger.ErrorContext(ctx, "Provider HTTP error", "endpoint", endpoint, "status_code", httpResp.StatusCode, "body", decoded)
		return nil, c.fail(endpoint, "http_error", &ProviderError{Kind: ErrKindHTTP, Endpoint: endpoint, StatusCode: httpResp.StatusCode, Message: decoded})
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.logger.ErrorContext(ctx, "Undecodable provider response", "endpoint", endpoint, "status_code", httpResp.StatusCode, "body", string(respBody))
		return nil, c.fail(endpoint, "decode_error", &ProviderError{
			Kind: ErrKindDecode, Endpoint: endpoint, StatusCode: httpResp.StatusCode,
			Message: "failed to decode provider response", Cause: err,
		})
	}
	resp.Payload = decodePayload(kind, resp.Data)

	outcome := "success"
	if !resp.Success() {
		outcome = "api_error"
	}
	providerRequestsCounter.WithLabelValues(endpoint, outcome).Inc()

	c.logger.InfoContext(ctx, "Provider response",
		"endpoint", endpoint,
		"status_code", httpResp.StatusCode,
		"success", resp.Success(),
		"result", deref(resp.Result),
		"error", deref(resp.Error),
		"data", string(resp.Data))
	return &resp, nil
}

func (c *ZvonobotClient) fail(endpoint, outcome string, err *ProviderError) error {
	providerRequestsCounter.WithLabelValues(endpoint, outcome).Inc()
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IsProviderError reports whether err came from a failed provider call.
func IsProviderError(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr)
}
