package domain

import (
	"log/slog"
	"strings"
)

// MessageRequest is the inbound body of /api/send-voice and /api/send-sms.
type MessageRequest struct {
	Phone         string `json:"phone" validate:"required,ru_mobile"`
	Text          string `json:"text" validate:"notblank"`
	RecordID      *int   `json:"recordId,omitempty"`
	OutgoingPhone string `json:"outgoingPhone,omitempty"`
}

// CleanPhone returns the phone with every non-digit removed.
func (r MessageRequest) CleanPhone() string {
	return CleanPhone(r.Phone)
}

// HasOutgoingPhone reports whether the caller picked an outgoing number explicitly.
func (r MessageRequest) HasOutgoingPhone() bool {
	return strings.TrimSpace(r.OutgoingPhone) != ""
}

// LogValue keeps message bodies out of the logs; only the length is recorded.
func (r MessageRequest) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("phone", r.Phone),
		slog.Int("text_length", len(r.Text)),
	}
	if r.RecordID != nil {
		attrs = append(attrs, slog.Int("record_id", *r.RecordID))
	}
	if r.HasOutgoingPhone() {
		attrs = append(attrs, slog.String("outgoing_phone", r.OutgoingPhone))
	}
	return slog.GroupValue(attrs...)
}

// CleanPhone strips everything but ASCII digits.
func CleanPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}
