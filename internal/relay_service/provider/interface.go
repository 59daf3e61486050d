package provider

import "context"

// CallProvider is what the relay needs from the call API.
type CallProvider interface {
	SendVoice(ctx context.Context, phone, text string, recordID *int, outgoingPhone string) (*Response, error)
	SendSMS(ctx context.Context, phone, text, outgoingPhone string) (*Response, error)
	TestAPIKey(ctx context.Context) (*Response, error)
	GetOutgoingPhones(ctx context.Context) (*Response, error)
	GetRecords(ctx context.Context) (*Response, error)
	GetUserProfile(ctx context.Context) (*Response, error)
}

var _ CallProvider = (*ZvonobotClient)(nil)
