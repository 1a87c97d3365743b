package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "quotebot/internal/errors"
	"quotebot/internal/logger"
	"quotebot/internal/metrics"
	"quotebot/internal/pricing"
	"quotebot/internal/store"
)

const (
	IntentGenerateQuote = "GenerateQuote"
	IntentGetQuoteID    = "GetQuoteId"
	IntentGetAssetType  = "GetAssetType"
	IntentGetPremium    = "GetPremium"
	IntentGetCoverage   = "GetCoverage"
	IntentGetValidity   = "GetValidity"
)

const (
	MsgNoQuote       = "I couldn’t find your recent quote. Please request a new one."
	MsgNotUnderstood = "Sorry, I didn't understand that. Try asking for your quote ID or premium."
	MsgServerError   = "Oops! Something went wrong on the server."
)

const (
	outcomeQuoteGenerated = "quote_generated"
	outcomeInvalidAsset   = "invalid_asset_type"
	outcomeNoQuote        = "no_quote"
	outcomeAnswered       = "answered"
	outcomeNotUnderstood  = "not_understood"
)

// InvalidAssetTypeMessage lists every configured asset type.
func InvalidAssetTypeMessage() string {
	return fmt.Sprintf(
		"Invalid or missing asset type. Please provide one of the following: %s.",
		strings.Join(pricing.AssetTypes(), ", "),
	)
}

// A FollowUpFunc answers a question about the session's stored quote.
type FollowUpFunc func(q pricing.Quote) (string, error)

// FollowUps maps follow-up intent names to their answers.
type FollowUps map[string]FollowUpFunc

// Set registers fn for intent, replacing any existing entry.
func (f FollowUps) Set(intent string, fn FollowUpFunc) {
	f[intent] = fn
}

// DefaultFollowUps returns the built-in follow-up answers. Validity is shown
// in loc.
func DefaultFollowUps(loc *time.Location) FollowUps {
	f := make(FollowUps)
	f.Set(IntentGetQuoteID, func(q pricing.Quote) (string, error) {
		return fmt.Sprintf("Your quote ID is %s.", q.QuoteID), nil
	})
	f.Set(IntentGetAssetType, func(q pricing.Quote) (string, error) {
		return fmt.Sprintf("This quote is for a %s.", q.AssetType), nil
	})
	f.Set(IntentGetPremium, func(q pricing.Quote) (string, error) {
		return fmt.Sprintf("The premium for your %s is INR %d.", q.AssetType, q.Premium), nil
	})
	f.Set(IntentGetCoverage, func(q pricing.Quote) (string, error) {
		return fmt.Sprintf("You're covered for up to INR %d.", q.CoverageAmount), nil
	})
	f.Set(IntentGetValidity, func(q pricing.Quote) (string, error) {
		validity, err := q.FormatValidity(loc)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Your quote is valid till %s.", validity), nil
	})
	return f
}

// Handler answers fulfillment requests.
type Handler struct {
	store     store.Store
	quotes    *pricing.Generator
	followUps FollowUps
	logger    logger.Logger
}

func NewHandler(s store.Store, quotes *pricing.Generator, followUps FollowUps, log logger.Logger) *Handler {
	return &Handler{
		store:     s,
		quotes:    quotes,
		followUps: followUps,
		logger:    log,
	}
}

type result struct {
	body    interface{}
	outcome string
}

// Handle decodes body and fulfills it. It always returns a response body:
// any error is logged and answered with MsgServerError.
func (h *Handler) Handle(ctx context.Context, body []byte) interface{} {
	start := time.Now()
	log := logger.FromContext(ctx, h.logger)

	intent := ""
	req, err := ParseRequest(body)

	var res result
	if err == nil {
		intent = req.Intent
		res, err = h.fulfill(ctx, req)
	}

	if err != nil {
		code := apperrors.CodeOf(err)
		log.WithError(err).Error("webhook request failed", map[string]interface{}{
			"intent": intent,
			"code":   code,
		})
		res = result{body: Response{FulfillmentText: MsgServerError}, outcome: string(code)}
	} else {
		log.Info("webhook request fulfilled", map[string]interface{}{
			"intent":  intent,
			"session": req.SessionID,
			"outcome": res.outcome,
		})
	}

	label := intentLabel(intent)
	metrics.WebhookRequests.WithLabelValues(label, res.outcome).Inc()
	metrics.WebhookDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	return res.body
}

func (h *Handler) fulfill(ctx context.Context, req *Request) (result, error) {
	if req.Intent == IntentGenerateQuote {
		return h.generateQuote(ctx, req)
	}
	return h.followUp(ctx, req)
}

func (h *Handler) generateQuote(ctx context.Context, req *Request) (result, error) {
	assetType, _ := req.StringParam("assetType")

	quote, err := h.quotes.Generate(assetType, req.AssetAge())
	if apperrors.Is(err, apperrors.ErrCodeUnknownAssetType) {
		return result{body: Response{FulfillmentText: InvalidAssetTypeMessage()}, outcome: outcomeInvalidAsset}, nil
	}
	if err != nil {
		return result{}, err
	}

	if err := h.store.Put(ctx, req.SessionID, quote); err != nil {
		return result{}, apperrors.NewStoreWriteFailedError(req.SessionID, err)
	}
	metrics.QuotesGenerated.WithLabelValues(quote.AssetType).Inc()

	return result{
		body:    QuoteResponse{FulfillmentText: quote.QuotationDetails, Quote: quote},
		outcome: outcomeQuoteGenerated,
	}, nil
}

func (h *Handler) followUp(ctx context.Context, req *Request) (result, error) {
	quote, ok, err := h.store.Get(ctx, req.SessionID)
	if err != nil {
		return result{}, apperrors.NewStoreReadFailedError(req.SessionID, err)
	}
	if !ok {
		return result{body: Response{FulfillmentText: MsgNoQuote}, outcome: outcomeNoQuote}, nil
	}

	answer, ok := h.followUps[req.Intent]
	if !ok {
		return result{body: Response{FulfillmentText: MsgNotUnderstood}, outcome: outcomeNotUnderstood}, nil
	}

	text, err := answer(quote)
	if err != nil {
		return result{}, err
	}
	return result{body: Response{FulfillmentText: text}, outcome: outcomeAnswered}, nil
}

func intentLabel(intent string) string {
	switch intent {
	case IntentGenerateQuote, IntentGetQuoteID, IntentGetAssetType,
		IntentGetPremium, IntentGetCoverage, IntentGetValidity:
		return intent
	case "":
		return "none"
	default:
		return "other"
	}
}
