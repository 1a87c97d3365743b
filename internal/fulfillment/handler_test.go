package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/dialogflow/apiv2/dialogflowpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"quotebot/internal/logger"
	"quotebot/internal/pricing"
	"quotebot/internal/store"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 15, 123_000_000, time.UTC)

// seqRandom replays vals in order.
type seqRandom struct {
	vals []int
	i    int
}

func (s *seqRandom) IntN(n int) int {
	v := s.vals[s.i%len(s.vals)] % n
	s.i++
	return v
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (pricing.Quote, bool, error) {
	return pricing.Quote{}, false, f.err
}

func (f failingStore) Put(context.Context, string, pricing.Quote) error {
	return f.err
}

func newTestHandler(t *testing.T, s store.Store, rnd pricing.Random) *Handler {
	t.Helper()
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	gen := pricing.NewGenerator(rnd, func() time.Time { return testNow })
	return NewHandler(s, gen, DefaultFollowUps(ist), logger.NewTestLogger(t))
}

// webhookBody encodes a request the way Dialogflow sends it.
func webhookBody(session, intent string, params map[string]interface{}) []byte {
	fields, err := structpb.NewStruct(params)
	if err != nil {
		panic(err)
	}
	data, err := protojson.Marshal(&dialogflowpb.WebhookRequest{
		ResponseId: "resp-1",
		Session:    session,
		QueryResult: &dialogflowpb.QueryResult{
			QueryText:  "text",
			Intent:     &dialogflowpb.Intent{Name: "projects/p/agent/intents/1", DisplayName: intent},
			Parameters: fields,
		},
	})
	if err != nil {
		panic(err)
	}
	return data
}

// call runs Handle and returns the response as a generic JSON object.
func call(t *testing.T, h *Handler, body []byte) map[string]interface{} {
	t.Helper()
	resp := h.Handle(context.Background(), body)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Contains(t, out, "fulfillmentText")
	return out
}

func TestHandle_GenerateQuote(t *testing.T) {
	h := newTestHandler(t, store.NewMemoryStore(), &seqRandom{vals: []int{200, 5, 4242}})

	out := call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{
		"assetType": "bike",
		"assetAge":  2,
	}))

	assert.Equal(t, "INSQ4242", out["quoteId"])
	assert.Equal(t, "bike", out["assetType"])
	assert.Equal(t, 2.0, out["assetAge"])
	assert.Equal(t, 800.0, out["premium"])
	assert.Equal(t, 12000.0, out["coverageAmount"])
	assert.Equal(t, "INR", out["currency"])
	assert.Equal(t, "2026-10-20T09:30:15.123Z", out["validTill"])
	assert.Equal(t, out["quotation_details"], out["fulfillmentText"])
	assert.Len(t, out, 9)
}

func TestHandle_GenerateQuote_AgeCoercion(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]interface{}
		wantAge float64
	}{
		{"absent", map[string]interface{}{"assetType": "car"}, 0},
		{"string", map[string]interface{}{"assetType": "car", "assetAge": "4"}, 4},
		{"garbage", map[string]interface{}{"assetType": "car", "assetAge": "old"}, 0},
		{"null", map[string]interface{}{"assetType": "car", "assetAge": nil}, 0},
		{"object", map[string]interface{}{"assetType": "car", "assetAge": map[string]interface{}{"amount": 3}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, store.NewMemoryStore(), pricing.NewRandom(3))
			out := call(t, h, webhookBody("s1", IntentGenerateQuote, tt.params))
			assert.Equal(t, tt.wantAge, out["assetAge"])
		})
	}
}

func TestHandle_GenerateQuote_InvalidAssetType(t *testing.T) {
	wantMsg := "Invalid or missing asset type. Please provide one of the following: bike, car, mobile, laptop, health, travel, home, pet."

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"unknown", map[string]interface{}{"assetType": "drone"}},
		{"missing", map[string]interface{}{}},
		{"empty", map[string]interface{}{"assetType": ""}},
		{"number", map[string]interface{}{"assetType": 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemoryStore()
			h := newTestHandler(t, s, pricing.NewRandom(1))

			out := call(t, h, webhookBody("s1", IntentGenerateQuote, tt.params))
			assert.Equal(t, map[string]interface{}{"fulfillmentText": wantMsg}, out)
			assert.Equal(t, 0, s.Len())
		})
	}

	for _, assetType := range pricing.AssetTypes() {
		assert.Contains(t, wantMsg, assetType)
	}
}

func TestHandle_InvalidAssetType_WithPriorQuote(t *testing.T) {
	h := newTestHandler(t, store.NewMemoryStore(), pricing.NewRandom(1))
	call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{"assetType": "pet"}))

	out := call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{"assetType": "drone"}))
	assert.Equal(t, InvalidAssetTypeMessage(), out["fulfillmentText"])
}

func TestHandle_FollowUps(t *testing.T) {
	h := newTestHandler(t, store.NewMemoryStore(), &seqRandom{vals: []int{200, 5, 4242}})
	call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{"assetType": "bike", "assetAge": 2}))

	tests := []struct {
		intent string
		want   string
	}{
		{IntentGetQuoteID, "Your quote ID is INSQ4242."},
		{IntentGetAssetType, "This quote is for a bike."},
		{IntentGetPremium, "The premium for your bike is INR 800."},
		{IntentGetCoverage, "You're covered for up to INR 12000."},
		{IntentGetValidity, "Your quote is valid till 20/10/2026, 3:00:15 pm."},
		{"Foo", MsgNotUnderstood},
		{"", MsgNotUnderstood},
	}

	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			out := call(t, h, webhookBody("s1", tt.intent, nil))
			assert.Equal(t, map[string]interface{}{"fulfillmentText": tt.want}, out)
		})
	}
}

func TestHandle_SessionIsolation(t *testing.T) {
	h := newTestHandler(t, store.NewMemoryStore(), pricing.NewRandom(9))

	quote := call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{"assetType": "laptop", "assetAge": 1}))

	out := call(t, h, webhookBody("s1", IntentGetPremium, nil))
	assert.Equal(t, fmt.Sprintf("The premium for your laptop is INR %d.", int64(quote["premium"].(float64))), out["fulfillmentText"])

	out = call(t, h, webhookBody("s2", IntentGetPremium, nil))
	assert.Equal(t, MsgNoQuote, out["fulfillmentText"])
}

func TestHandle_SecondQuoteOverwrites(t *testing.T) {
	h := newTestHandler(t, store.NewMemoryStore(), &seqRandom{vals: []int{10, 1, 111, 20, 2, 222}})

	first := call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{"assetType": "home"}))
	second := call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{"assetType": "home"}))
	require.Equal(t, "INSQ111", first["quoteId"])
	require.Equal(t, "INSQ222", second["quoteId"])

	out := call(t, h, webhookBody("s1", IntentGetQuoteID, nil))
	assert.Equal(t, "Your quote ID is INSQ222.", out["fulfillmentText"])
}

func TestHandle_UnknownIntentWithoutQuote(t *testing.T) {
	h := newTestHandler(t, store.NewMemoryStore(), pricing.NewRandom(1))

	out := call(t, h, webhookBody("s1", "Foo", nil))
	assert.Equal(t, map[string]interface{}{"fulfillmentText": MsgNoQuote}, out)
}

func TestHandle_DefaultSession(t *testing.T) {
	s := store.NewMemoryStore()
	h := newTestHandler(t, s, pricing.NewRandom(1))

	call(t, h, webhookBody("", IntentGenerateQuote, map[string]interface{}{"assetType": "travel"}))

	_, ok, err := s.Get(context.Background(), DefaultSessionID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandle_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", MsgNoQuote},
		{"empty object", "{}", MsgNoQuote},
		{"no queryResult", `{"session":"s1"}`, MsgNoQuote},
		{"null queryResult", `{"session":"s1","queryResult":null}`, MsgNoQuote},
		{"no intent", `{"session":"s1","queryResult":{"parameters":{"assetType":"car"}}}`, MsgNoQuote},
		{"invalid json", `{"session":`, MsgServerError},
		{"wrong type", `{"session":42}`, MsgServerError},
		{"array", `[1,2,3]`, MsgServerError},
		{"parameters not an object", `{"session":"s1","queryResult":{"intent":{"displayName":"GenerateQuote"},"parameters":[1]}}`, MsgServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, store.NewMemoryStore(), pricing.NewRandom(1))
			out := call(t, h, []byte(tt.body))
			assert.Equal(t, map[string]interface{}{"fulfillmentText": tt.want}, out)
		})
	}
}

func TestHandle_IgnoresFieldsItDoesNotRead(t *testing.T) {
	const params = `"parameters":{"assetType":"car","assetAge":1}`
	tests := []struct {
		name string
		body string
	}{
		{"numeric responseId", `{"responseId":123,"session":"s1","queryResult":{"intent":{"displayName":"GenerateQuote"},` + params + `}}`},
		{"numeric queryText", `{"session":"s1","queryResult":{"queryText":42,"intent":{"displayName":"GenerateQuote"},` + params + `}}`},
		{"string confidence", `{"session":"s1","queryResult":{"intentDetectionConfidence":"high","intent":{"displayName":"GenerateQuote"},` + params + `}}`},
		{"outputContexts object", `{"session":"s1","queryResult":{"outputContexts":{"name":"ctx"},"intent":{"displayName":"GenerateQuote"},` + params + `}}`},
		{"intent name number", `{"session":"s1","queryResult":{"intent":{"name":7,"displayName":"GenerateQuote"},` + params + `}}`},
		{"originalDetectIntentRequest string", `{"originalDetectIntentRequest":"telegram","session":"s1","queryResult":{"intent":{"displayName":"GenerateQuote"},` + params + `}}`},
		{"duplicate session", `{"session":"other","session":"s1","queryResult":{"intent":{"displayName":"GenerateQuote"},` + params + `}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemoryStore()
			h := newTestHandler(t, s, &seqRandom{vals: []int{200, 5, 4242}})

			out := call(t, h, []byte(tt.body))
			assert.Equal(t, "INSQ4242", out["quoteId"])
			assert.Equal(t, "car", out["assetType"])
			assert.Equal(t, 1.0, out["assetAge"])

			_, ok, err := s.Get(context.Background(), "s1")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestHandle_StoreFailures(t *testing.T) {
	h := newTestHandler(t, failingStore{err: errors.New("connection reset")}, pricing.NewRandom(1))

	out := call(t, h, webhookBody("s1", IntentGenerateQuote, map[string]interface{}{"assetType": "car"}))
	assert.Equal(t, map[string]interface{}{"fulfillmentText": MsgServerError}, out)

	out = call(t, h, webhookBody("s1", IntentGetPremium, nil))
	assert.Equal(t, map[string]interface{}{"fulfillmentText": MsgServerError}, out)
}

func TestHandle_CorruptStoredQuote(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), "s1", pricing.Quote{QuoteID: "INSQ7", ValidTill: "soon"}))
	h := newTestHandler(t, s, pricing.NewRandom(1))

	out := call(t, h, webhookBody("s1", IntentGetValidity, nil))
	assert.Equal(t, MsgServerError, out["fulfillmentText"])

	out = call(t, h, webhookBody("s1", IntentGetQuoteID, nil))
	assert.Equal(t, "Your quote ID is INSQ7.", out["fulfillmentText"])
}

func TestFollowUps_Set(t *testing.T) {
	f := DefaultFollowUps(time.UTC)
	f.Set("GetCurrency", func(q pricing.Quote) (string, error) {
		return "Quotes are priced in " + q.Currency + ".", nil
	})

	s := store.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), "s1", pricing.Quote{Currency: "INR"}))
	h := NewHandler(s, pricing.NewGenerator(pricing.NewRandom(1), nil), f, logger.NewNoOpLogger())

	out := call(t, h, webhookBody("s1", "GetCurrency", nil))
	assert.Equal(t, map[string]interface{}{"fulfillmentText": "Quotes are priced in INR."}, out)
}

func TestParseRequest(t *testing.T) {
	body := `{
		"responseId": "r-1",
		"session": "projects/p/agent/sessions/abc",
		"queryResult": {
			"queryText": "quote for my car",
			"parameters": {"assetType": "car", "assetAge": 3},
			"intent": {"name": "projects/p/agent/intents/9", "displayName": "GenerateQuote"},
			"intentDetectionConfidence": 0.92,
			"languageCode": "en"
		},
		"originalDetectIntentRequest": {"source": "telegram", "payload": {}},
		"outputContexts": "unexpected",
		"someFutureField": true
	}`

	req, err := ParseRequest([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "projects/p/agent/sessions/abc", req.SessionID)
	assert.Equal(t, IntentGenerateQuote, req.Intent)

	assetType, ok := req.StringParam("assetType")
	assert.True(t, ok)
	assert.Equal(t, "car", assetType)
	assert.Equal(t, 3.0, req.AssetAge())

	_, ok = req.StringParam("assetAge")
	assert.False(t, ok)
	_, ok = req.StringParam("missing")
	assert.False(t, ok)
}

func TestParseRequest_Defaults(t *testing.T) {
	req, err := ParseRequest([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionID, req.SessionID)
	assert.Equal(t, "", req.Intent)
	assert.NotNil(t, req.Parameters)
	assert.Equal(t, 0.0, req.AssetAge())
}

func TestParseRequest_Invalid(t *testing.T) {
	_, err := ParseRequest([]byte("not json"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "INVALID_REQUEST"))
}
