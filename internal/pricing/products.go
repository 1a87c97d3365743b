package pricing

import "fmt"

// Product holds the pricing parameters of one insurable asset type.
type Product struct {
	Min    int     // lowest base premium
	Max    int     // highest base premium
	Rate   float64 // depreciation per unit of asset age
	MaxDep float64 // depreciation cap, as a fraction of the base premium
}

// Validate checks min <= max, rate >= 0 and 0 <= maxDep <= 1.
func (p Product) Validate() error {
	if p.Min > p.Max {
		return fmt.Errorf("min %d exceeds max %d", p.Min, p.Max)
	}
	if p.Rate < 0 {
		return fmt.Errorf("negative rate %v", p.Rate)
	}
	if p.MaxDep < 0 || p.MaxDep > 1 {
		return fmt.Errorf("maxDep %v outside [0, 1]", p.MaxDep)
	}
	return nil
}

var assetTypes = []string{"bike", "car", "mobile", "laptop", "health", "travel", "home", "pet"}

var products = map[string]Product{
	"bike":   {Min: 800, Max: 1200, Rate: 0.1, MaxDep: 0.5},
	"car":    {Min: 1800, Max: 2500, Rate: 0.12, MaxDep: 0.6},
	"mobile": {Min: 400, Max: 700, Rate: 0.2, MaxDep: 0.7},
	"laptop": {Min: 700, Max: 1100, Rate: 0.15, MaxDep: 0.6},
	"health": {Min: 2800, Max: 3500, Rate: 0.05, MaxDep: 0.25},
	"travel": {Min: 1000, Max: 1500, Rate: 0.02, MaxDep: 0.1},
	"home":   {Min: 2200, Max: 3000, Rate: 0.04, MaxDep: 0.2},
	"pet":    {Min: 800, Max: 1000, Rate: 0.06, MaxDep: 0.3},
}

// Lookup returns the product configured for assetType.
func Lookup(assetType string) (Product, bool) {
	p, ok := products[assetType]
	return p, ok
}

// AssetTypes returns the configured asset types in table order.
func AssetTypes() []string {
	out := make([]string, len(assetTypes))
	copy(out, assetTypes)
	return out
}
