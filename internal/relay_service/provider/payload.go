package provider

import (
	"encoding/json"
)

// Payload is the decoded form of Response.Data. The concrete type is one of
// AccountPayload, PhoneListPayload, RecordListPayload or GenericPayload.
type Payload interface {
	isPayload()
}

// AccountPayload is returned by apiCalls/userInfo.
type AccountPayload struct {
	Email   string
	Balance string // literal as sent, number or string
	Fields  map[string]json.RawMessage
}

// PhoneListPayload is returned by apiCalls/getPhones.
type PhoneListPayload struct {
	Phones []OutgoingPhone
}

type OutgoingPhone struct {
	Phone  string
	Fields map[string]json.RawMessage
}

// RecordListPayload is returned by apiCalls/getRecords.
type RecordListPayload struct {
	Records []RecordInfo
}

type RecordInfo struct {
	ID     string
	Name   string
	Fields map[string]json.RawMessage
}

// GenericPayload is anything else, e.g. a call-creation result.
type GenericPayload struct {
	Raw json.RawMessage
}

func (AccountPayload) isPayload()    {}
func (PhoneListPayload) isPayload()  {}
func (RecordListPayload) isPayload() {}
func (GenericPayload) isPayload()    {}

type payloadKind int

const (
	payloadCall payloadKind = iota
	payloadAccount
	payloadPhones
	payloadRecords
)

// decodePayload never fails: data that doesn't fit the expected shape comes
// back as GenericPayload. Missing data yields nil.
func decodePayload(kind payloadKind, raw json.RawMessage) Payload {
	if !hasValue(raw) {
		return nil
	}
	switch kind {
	case payloadPhones:
		if objs, ok := decodeObjectList(raw); ok {
			phones := make([]OutgoingPhone, 0, len(objs))
			for _, obj := range objs {
				phones = append(phones, OutgoingPhone{Phone: rawText(obj["phone"]), Fields: obj})
			}
			return PhoneListPayload{Phones: phones}
		}
	case payloadRecords:
		if objs, ok := decodeObjectList(raw); ok {
			records := make([]RecordInfo, 0, len(objs))
			for _, obj := range objs {
				records = append(records, RecordInfo{ID: rawText(obj["id"]), Name: rawText(obj["name"]), Fields: obj})
			}
			return RecordListPayload{Records: records}
		}
	}
	if account, ok := decodeAccount(raw); ok {
		return account
	}
	return GenericPayload{Raw: raw}
}

// decodeAccount recognizes any object carrying both "email" and "balance".
func decodeAccount(raw json.RawMessage) (AccountPayload, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return AccountPayload{}, false
	}
	email, hasEmail := obj["email"]
	balance, hasBalance := obj["balance"]
	if !hasEmail || !hasBalance {
		return AccountPayload{}, false
	}
	return AccountPayload{Email: rawText(email), Balance: rawText(balance), Fields: obj}, true
}

func decodeObjectList(raw json.RawMessage) ([]map[string]json.RawMessage, bool) {
	var objs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, false
	}
	return objs, true
}
