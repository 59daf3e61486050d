package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a scripted call API. Handlers are keyed by endpoint path.
type fakeProvider struct {
	t        *testing.T
	mu       sync.Mutex
	calls    map[string]int
	bodies   map[string][]map[string]any
	handlers map[string]http.HandlerFunc
}

func newFakeProvider(t *testing.T) (*fakeProvider, *httptest.Server) {
	f := &fakeProvider{
		t:        t,
		calls:    map[string]int{},
		bodies:   map[string][]map[string]any{},
		handlers: map[string]http.HandlerFunc{},
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, http.MethodPost, r.Method)
	assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
	assert.Equal(f.t, "application/json", r.Header.Get("Accept"))
	assert.Equal(f.t, "UTF-8", r.Header.Get("Accept-Charset"))

	body, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)
	var decoded map[string]any
	require.NoError(f.t, json.Unmarshal(body, &decoded))

	path := strings.TrimPrefix(r.URL.Path, "/")
	f.mu.Lock()
	f.calls[path]++
	f.bodies[path] = append(f.bodies[path], decoded)
	h, ok := f.handlers[path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func (f *fakeProvider) on(endpoint string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[endpoint] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func (f *fakeProvider) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *fakeProvider) lastBody(endpoint string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	bodies := f.bodies[endpoint]
	require.NotEmpty(f.t, bodies, "no request to %s", endpoint)
	return bodies[len(bodies)-1]
}

func newTestClient(server *httptest.Server) *ZvonobotClient {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewZvonobotClient(logger, server.URL+"/", "test-api-key-0123456789", server.Client())
}

// escapeNonASCII renders s the way the provider does in error bodies.
func escapeNonASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
			continue
		}
		b.WriteString(string('\\') + "u" + fmt.Sprintf("%04x", r))
	}
	return b.String()
}

func TestZvonobotClient_SendVoice_ExplicitOutgoingPhone(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointCreateCall, http.StatusOK, `{"result":"ok","data":[{"id":9001}]}`)
	client := newTestClient(server)

	resp, err := client.SendVoice(context.Background(), "+79991234567", "Hello", nil, "74951112233")
	require.NoError(t, err)
	assert.True(t, resp.Success())
	assert.IsType(t, GenericPayload{}, resp.Payload)

	body := fake.lastBody(EndpointCreateCall)
	assert.Equal(t, "test-api-key-0123456789", body["apiKey"])
	assert.Equal(t, "79991234567", body["phone"])
	assert.Equal(t, "74951112233", body["outgoingPhone"])
	assert.NotContains(t, body, "dutyPhone")
	record := body["record"].(map[string]any)
	assert.Equal(t, "Hello", record["text"])
	assert.Equal(t, float64(0), record["gender"])
	assert.NotContains(t, record, "id")

	assert.Zero(t, fake.count(EndpointGetPhones), "explicit outgoing phone must not hit the phone list")
	_, cached := client.phoneCache.Get()
	assert.False(t, cached)
}

func TestZvonobotClient_SendVoice_WithRecordID(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointCreateCall, http.StatusOK, `{"result":"ok","data":{}}`)
	client := newTestClient(server)

	recordID := 247273
	_, err := client.SendVoice(context.Background(), "79991234567", "ignored text", &recordID, "74951112233")
	require.NoError(t, err)

	record := fake.lastBody(EndpointCreateCall)["record"].(map[string]any)
	assert.Equal(t, float64(247273), record["id"])
	assert.Equal(t, "", record["text"])
	assert.Equal(t, float64(0), record["gender"])
}

func TestZvonobotClient_DefaultOutgoingPhoneIsCached(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointGetPhones, http.StatusOK, `{"result":"ok","data":[{"phone":"74951112233"},{"phone":"74950000000"}]}`)
	fake.on(EndpointCreateCall, http.StatusOK, `{"result":"ok","data":{}}`)
	client := newTestClient(server)

	_, err := client.SendVoice(context.Background(), "79991234567", "first", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.count(EndpointGetPhones))
	assert.Equal(t, 1, fake.count(EndpointCreateCall))
	assert.Equal(t, "74951112233", fake.lastBody(EndpointCreateCall)["outgoingPhone"])

	_, err = client.SendSMS(context.Background(), "79991234567", "second", "   ")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.count(EndpointGetPhones), "second send must hit the cache")
	assert.Equal(t, 2, fake.count(EndpointCreateCall))
	assert.Equal(t, "74951112233", fake.lastBody(EndpointCreateCall)["outgoingPhone"])
}

func TestZvonobotClient_DutyPhoneFallback(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "phone list HTTP failure", status: http.StatusInternalServerError, body: `oops`},
		{name: "empty phone list", status: http.StatusOK, body: `{"result":"ok","data":[]}`},
		{name: "provider error", status: http.StatusOK, body: `{"error":"no phones"}`},
		{name: "entry without phone", status: http.StatusOK, body: `{"result":"ok","data":[{"id":1}]}`},
		{name: "empty first phone", status: http.StatusOK, body: `{"result":"ok","data":[{"phone":""},{"phone":"74951112233"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake, server := newFakeProvider(t)
			fake.on(EndpointGetPhones, tc.status, tc.body)
			fake.on(EndpointCreateCall, http.StatusOK, `{"result":"ok","data":{}}`)
			client := newTestClient(server)

			_, err := client.SendSMS(context.Background(), "79991234567", "code 1234", "")
			require.NoError(t, err)

			body := fake.lastBody(EndpointCreateCall)
			assert.Equal(t, float64(1), body["dutyPhone"])
			assert.NotContains(t, body, "outgoingPhone")

			_, err = client.SendVoice(context.Background(), "79991234567", "again", nil, "")
			require.NoError(t, err)
			assert.Equal(t, 1, fake.count(EndpointGetPhones), "duty fallback is cached too")

			v, ok := client.phoneCache.Get()
			assert.True(t, ok)
			assert.Equal(t, DutyPhone, v)
		})
	}
}

func TestZvonobotClient_CancelledLookupIsNotCached(t *testing.T) {
	_, server := newFakeProvider(t)
	client := newTestClient(server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, DutyPhone, client.ResolveOutgoingPhone(ctx))
	_, ok := client.phoneCache.Get()
	assert.False(t, ok)
}

func TestZvonobotClient_SendSMS_Payload(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointCreateCall, http.StatusOK, `{"result":"ok","data":{}}`)
	client := newTestClient(server)

	_, err := client.SendSMS(context.Background(), "+79991234567", "Your code is 1234", "74951112233")
	require.NoError(t, err)

	body := fake.lastBody(EndpointCreateCall)
	record := body["record"].(map[string]any)
	assert.Equal(t, ".", record["text"])
	ivrs := body["ivrs"].([]any)
	require.Len(t, ivrs, 1)
	assert.Equal(t, map[string]any{"digit": float64(1), "smsText": "Your code is 1234", "needBlock": float64(0)}, ivrs[0])
}

func TestZvonobotClient_HTTPErrorDecodesUnicode(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointCreateCall, http.StatusForbidden, `{"error":"`+escapeNonASCII("Неверный ключ")+`"}`)
	client := newTestClient(server)

	resp, err := client.SendVoice(context.Background(), "79991234567", "hi", nil, "74951112233")
	require.Error(t, err)
	assert.Nil(t, resp)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrKindHTTP, perr.Kind)
	assert.Equal(t, http.StatusForbidden, perr.StatusCode)
	assert.Equal(t, EndpointCreateCall, perr.Endpoint)
	assert.Equal(t, `API error: {"error":"Неверный ключ"}`, err.Error())
	assert.True(t, IsProviderError(err))
}

func TestZvonobotClient_ProviderLogicalError(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointCreateCall, http.StatusOK, `{"error":"bad key"}`)
	client := newTestClient(server)

	resp, err := client.SendVoice(context.Background(), "79991234567", "hi", nil, "74951112233")
	require.NoError(t, err)
	assert.False(t, resp.Success())
	assert.Equal(t, "bad key", resp.ErrorMessage())
}

func TestZvonobotClient_UndecodableResponse(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointUserInfo, http.StatusOK, `<html>maintenance</html>`)
	client := newTestClient(server)

	_, err := client.TestAPIKey(context.Background())
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrKindDecode, perr.Kind)
}

func TestZvonobotClient_TransportError(t *testing.T) {
	_, server := newFakeProvider(t)
	client := newTestClient(server)
	server.Close()

	_, err := client.GetRecords(context.Background())
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrKindTransport, perr.Kind)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestZvonobotClient_Queries(t *testing.T) {
	fake, server := newFakeProvider(t)
	fake.on(EndpointUserInfo, http.StatusOK, `{"result":null,"error":null,"data":{"email":"ops@example.com","balance":100}}`)
	fake.on(EndpointGetPhones, http.StatusOK, `{"result":"ok","data":[{"phone":"74951112233"}]}`)
	fake.on(EndpointGetRecords, http.StatusOK, `{"result":"ok","data":[{"id":247273,"name":"Greeting"}]}`)
	client := newTestClient(server)
	ctx := context.Background()

	resp, err := client.TestAPIKey(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Success())
	account, ok := resp.Payload.(AccountPayload)
	require.True(t, ok)
	assert.Equal(t, "ops@example.com", account.Email)

	resp, err = client.GetUserProfile(ctx)
	require.NoError(t, err)
	assert.IsType(t, AccountPayload{}, resp.Payload)
	assert.Equal(t, 2, fake.count(EndpointUserInfo))

	resp, err = client.GetOutgoingPhones(ctx)
	require.NoError(t, err)
	assert.IsType(t, PhoneListPayload{}, resp.Payload)

	resp, err = client.GetRecords(ctx)
	require.NoError(t, err)
	records, ok := resp.Payload.(RecordListPayload)
	require.True(t, ok)
	assert.Equal(t, "247273", records.Records[0].ID)

	for _, endpoint := range []string{EndpointUserInfo, EndpointGetPhones, EndpointGetRecords} {
		assert.Equal(t, map[string]any{"apiKey": "test-api-key-0123456789"}, fake.lastBody(endpoint), endpoint)
	}
}
