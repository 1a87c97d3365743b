package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "quotebot/internal/errors"
)

const (
	Currency       = "INR"
	QuoteIDPrefix  = "INSQ"
	ValidityPeriod = 24 * time.Hour

	// ValidTillLayout serializes validTill as a UTC ISO-8601 timestamp with
	// millisecond precision.
	ValidTillLayout = "2006-01-02T15:04:05.000Z07:00"

	// validityDisplayLayout renders a timestamp the way the en-IN locale does.
	validityDisplayLayout = "2/1/2006, 3:04:05 pm"

	minCoverageMultiple = 10
	coverageMultiples   = 10
	quoteIDSpace        = 1000000
)

// Quote is one priced insurance offer.
type Quote struct {
	QuoteID          string  `json:"quoteId"`
	AssetType        string  `json:"assetType"`
	AssetAge         float64 `json:"assetAge"`
	Premium          int64   `json:"premium"`
	CoverageAmount   int64   `json:"coverageAmount"`
	Currency         string  `json:"currency"`
	ValidTill        string  `json:"validTill"`
	QuotationDetails string  `json:"quotation_details"`
}

// ValidUntil parses ValidTill.
func (q Quote) ValidUntil() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, q.ValidTill)
}

// FormatValidity renders ValidTill in loc using the en-IN date format,
// e.g. "20/10/2026, 3:04:05 pm".
func (q Quote) FormatValidity(loc *time.Location) (string, error) {
	t, err := q.ValidUntil()
	if err != nil {
		return "", apperrors.NewQuoteCorruptError(q.QuoteID, err)
	}
	return t.In(loc).Format(validityDisplayLayout), nil
}

// Generator prices quotes from the product table.
type Generator struct {
	rnd Random
	now func() time.Time
}

// NewGenerator creates a Generator. A nil now uses time.Now.
func NewGenerator(rnd Random, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rnd: rnd, now: now}
}

// Generate prices a new quote for assetType at the given age. It returns an
// UNKNOWN_ASSET_TYPE error when assetType is not in the product table.
func (g *Generator) Generate(assetType string, assetAge float64) (Quote, error) {
	product, ok := Lookup(assetType)
	if !ok {
		return Quote{}, apperrors.NewUnknownAssetTypeError(assetType)
	}

	age := sanitizeAge(assetAge)

	base := product.Min + g.rnd.IntN(product.Max-product.Min+1)
	premium := int64(math.Round(float64(base) * (1 - Depreciation(product, age))))
	coverage := premium * int64(minCoverageMultiple+g.rnd.IntN(coverageMultiples))
	quoteID := QuoteIDPrefix + strconv.Itoa(g.rnd.IntN(quoteIDSpace))
	validTill := g.now().UTC().Truncate(time.Millisecond).Add(ValidityPeriod)

	return Quote{
		QuoteID:          quoteID,
		AssetType:        assetType,
		AssetAge:         age,
		Premium:          premium,
		CoverageAmount:   coverage,
		Currency:         Currency,
		ValidTill:        validTill.Format(ValidTillLayout),
		QuotationDetails: quotationDetails(assetType, premium, coverage),
	}, nil
}

// Depreciation returns the fraction taken off the base premium for an asset
// of the given age. It never exceeds p.MaxDep.
func Depreciation(p Product, age float64) float64 {
	return math.Min(sanitizeAge(age)*p.Rate, p.MaxDep)
}

// CoerceAge converts a loosely typed assetAge parameter to a number.
// Numbers and numeric strings pass through, booleans count as 1 or 0, and
// anything else (absent, null, non-numeric, NaN, infinite, negative) is 0.
func CoerceAge(v interface{}) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	return sanitizeAge(f)
}

func sanitizeAge(age float64) float64 {
	if math.IsNaN(age) || math.IsInf(age, 0) || age < 0 {
		return 0
	}
	return age
}

func quotationDetails(assetType string, premium, coverage int64) string {
	return fmt.Sprintf(
		"Thanks for reaching out! Your %s insurance quote is ready — the premium is INR %d, and you're covered for up to INR %d.",
		assetType, premium, coverage,
	)
}
