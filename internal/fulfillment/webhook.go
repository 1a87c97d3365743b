package fulfillment

import (
	"bytes"
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "quotebot/internal/errors"
	"quotebot/internal/pricing"
)

// DefaultSessionID is used when a request carries no session.
const DefaultSessionID = "default-session"

var unmarshalOptions = protojson.UnmarshalOptions{DiscardUnknown: true}

// webhookRequest is the subset of a Dialogflow ES v2 WebhookRequest the
// handler reads. Every other field is ignored, whatever its type.
type webhookRequest struct {
	Session     string `json:"session"`
	QueryResult *struct {
		Intent *struct {
			DisplayName string `json:"displayName"`
		} `json:"intent"`
		Parameters json.RawMessage `json:"parameters"`
	} `json:"queryResult"`
}

// Request holds the parts of a Dialogflow webhook request the handler uses.
// Every field is populated; absent input is replaced by its default.
type Request struct {
	SessionID  string
	Intent     string
	Parameters *structpb.Struct
}

// ParseRequest decodes a Dialogflow webhook body. An empty body is treated
// as an empty request.
func ParseRequest(body []byte) (*Request, error) {
	var wr webhookRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &wr); err != nil {
			return nil, apperrors.NewInvalidRequestError(err)
		}
	}

	req := &Request{
		SessionID:  wr.Session,
		Parameters: &structpb.Struct{},
	}
	if req.SessionID == "" {
		req.SessionID = DefaultSessionID
	}

	if qr := wr.QueryResult; qr != nil {
		if qr.Intent != nil {
			req.Intent = qr.Intent.DisplayName
		}
		if raw := bytes.TrimSpace(qr.Parameters); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := unmarshalOptions.Unmarshal(raw, req.Parameters); err != nil {
				return nil, apperrors.NewInvalidRequestError(err)
			}
		}
	}
	return req, nil
}

// StringParam returns the named parameter when it is a string.
func (r *Request) StringParam(name string) (string, bool) {
	v, ok := r.Parameters.GetFields()[name]
	if !ok {
		return "", false
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return s.StringValue, true
}

// AssetAge returns the assetAge parameter coerced to a number, 0 when absent.
func (r *Request) AssetAge() float64 {
	v, ok := r.Parameters.GetFields()["assetAge"]
	if !ok {
		return 0
	}
	return pricing.CoerceAge(v.AsInterface())
}

// Response is the reply for every path except a successful quote.
type Response struct {
	FulfillmentText string `json:"fulfillmentText"`
}

// QuoteResponse carries the quote fields next to fulfillmentText.
type QuoteResponse struct {
	FulfillmentText string `json:"fulfillmentText"`
	pricing.Quote
}
