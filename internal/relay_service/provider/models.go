package provider

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

const (
	// DutyPhone means "let the provider pick a caller number".
	DutyPhone = "duty"

	defaultGender      = 0 // female voice
	defaultIVRDigit    = 1 // any keypress
	defaultNeedBlock   = 0 // don't blacklist the recipient
	smsPlaceholderText = "."

	unknownAPIError = "Unknown API error"
)

// CallRequest is the body of apiCalls/create. Voice and SMS share it.
type CallRequest struct {
	APIKey        string      `json:"apiKey"`
	Phone         string      `json:"phone"`
	DutyPhone     *int        `json:"dutyPhone,omitempty"`
	OutgoingPhone string      `json:"outgoingPhone,omitempty"`
	Record        *CallRecord `json:"record,omitempty"`
	RecordID      *int        `json:"recordId,omitempty"` // unused; the provider reads record.id
	IVRs          []IVR       `json:"ivrs,omitempty"`
}

// CallRecord is the audio leg: either text for speech synthesis or the id of
// a pre-approved recording. Text is always sent, empty for recordings.
type CallRecord struct {
	Text   string `json:"text"`
	Gender int    `json:"gender"`
	ID     *int   `json:"id,omitempty"`
}

// IVR is a keypress branch. SMSText is delivered as an SMS when the branch fires.
type IVR struct {
	Digit     int    `json:"digit"`
	SMSText   string `json:"smsText"`
	NeedBlock int    `json:"needBlock"`
}

// LogValue masks the API key.
func (r CallRequest) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("apiKey", maskKey(r.APIKey)),
		slog.String("phone", r.Phone),
	}
	if r.DutyPhone != nil {
		attrs = append(attrs, slog.Int("dutyPhone", *r.DutyPhone))
	}
	if r.OutgoingPhone != "" {
		attrs = append(attrs, slog.String("outgoingPhone", r.OutgoingPhone))
	}
	if r.Record != nil {
		rec := []any{slog.Int("gender", r.Record.Gender), slog.Int("text_length", len(r.Record.Text))}
		if r.Record.ID != nil {
			rec = append(rec, slog.Int("id", *r.Record.ID))
		}
		attrs = append(attrs, slog.Group("record", rec...))
	}
	if len(r.IVRs) > 0 {
		attrs = append(attrs, slog.Int("ivrs", len(r.IVRs)))
	}
	return slog.GroupValue(attrs...)
}

func maskKey(key string) string {
	if len(key) > 10 {
		key = key[:10]
	}
	return key + "..."
}

// newVoiceCallRequest builds a call that speaks text, or plays recording
// recordID when one is given (text is then ignored).
func newVoiceCallRequest(apiKey, phone, text string, recordID *int, outgoingPhone string) *CallRequest {
	req := &CallRequest{APIKey: apiKey, Phone: phone}
	applyOutgoingPhone(req, outgoingPhone)

	if recordID != nil {
		id := *recordID
		req.Record = &CallRecord{ID: &id, Text: "", Gender: defaultGender}
	} else {
		req.Record = &CallRecord{Text: text, Gender: defaultGender}
	}
	return req
}

// newSMSCallRequest builds a call with a trivial voice leg and one IVR branch
// carrying the SMS text.
func newSMSCallRequest(apiKey, phone, text, outgoingPhone string) *CallRequest {
	req := &CallRequest{APIKey: apiKey, Phone: phone}
	applyOutgoingPhone(req, outgoingPhone)

	req.Record = &CallRecord{Text: smsPlaceholderText, Gender: defaultGender}
	req.IVRs = []IVR{{
		Digit:     defaultIVRDigit,
		SMSText:   text,
		NeedBlock: defaultNeedBlock,
	}}
	return req
}

func applyOutgoingPhone(req *CallRequest, outgoingPhone string) {
	if outgoingPhone == DutyPhone {
		duty := 1
		req.DutyPhone = &duty
		return
	}
	req.OutgoingPhone = outgoingPhone
}

// apiKeyRequest is the body of every query endpoint.
type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

func (r apiKeyRequest) LogValue() slog.Value {
	return slog.GroupValue(slog.String("apiKey", maskKey(r.APIKey)))
}

// Response is the provider's reply envelope.
type Response struct {
	Result *string         `json:"result"`
	Error  *string         `json:"error"`
	Data   json.RawMessage `json:"data,omitempty"`

	// Payload is Data decoded into one of the known shapes.
	Payload Payload `json:"-"`
}

// Success mirrors the provider's contract: result "ok", or no result and no
// error but some data.
func (r *Response) Success() bool {
	if r.Result != nil && *r.Result == "ok" {
		return true
	}
	return r.Result == nil && r.Error == nil && r.HasData()
}

// HasData reports whether data is present and not JSON null.
func (r *Response) HasData() bool {
	return hasValue(r.Data)
}

// ErrorMessage is the provider's error text, or a generic one when empty.
func (r *Response) ErrorMessage() string {
	if r.Error == nil || *r.Error == "" {
		return unknownAPIError
	}
	return *r.Error
}

func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// rawText renders a scalar JSON value as text: strings are unquoted, anything
// else is returned as its literal.
func rawText(raw json.RawMessage) string {
	if !hasValue(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
