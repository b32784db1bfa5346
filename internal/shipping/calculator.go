package shipping

import (
	"math"
	"strings"

	"github.com/StorefrontLabs/checkout-server/internal/config"
)

// Item is one cart line as submitted by the storefront.
type Item struct {
	PriceCents  int64    `json:"price"`
	Quantity    int      `json:"quantity"`
	WeightLbs   float64  `json:"weight,omitempty"`
	ProductType string   `json:"product_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Address carries the destination fields the calculator needs.
type Address struct {
	State string `json:"state"`
	Zip   string `json:"zip,omitempty"`
	City  string `json:"city,omitempty"`
}

// Quote is one shipping method option with its computed price.
type Quote struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	PriceCents   int64  `json:"price"`
	DeliveryDays string `json:"deliveryDays"`
}

// Quotes holds the three method options returned for every request.
type Quotes struct {
	Standard  Quote `json:"standard"`
	Express   Quote `json:"express"`
	Overnight Quote `json:"overnight"`
}

// Calculator prices shipping from item weights, destination zone, subtotal,
// and special-handling policy flags.
type Calculator struct {
	defaultWeightLbs     float64
	freeShippingMin      int64
	restrictedSurcharge  int64
	restrictedMarkers    []string
	caseMarkers          []string
	caseSize             int
}

// NewCalculator builds a calculator from policy configuration; zero values
// fall back to the standard storefront policy.
func NewCalculator(cfg config.ShippingConfig) *Calculator {
	c := &Calculator{
		defaultWeightLbs:    cfg.DefaultWeightLbs,
		freeShippingMin:     cfg.FreeShippingMinCents,
		restrictedSurcharge: cfg.RestrictedSurchargeCents,
		restrictedMarkers:   cfg.RestrictedMarkers,
		caseMarkers:         cfg.CaseMarkers,
		caseSize:            cfg.CaseSize,
	}
	if c.defaultWeightLbs <= 0 {
		c.defaultWeightLbs = 0.5
	}
	if c.freeShippingMin <= 0 {
		c.freeShippingMin = 10000
	}
	if c.restrictedSurcharge <= 0 {
		c.restrictedSurcharge = 500
	}
	if len(c.restrictedMarkers) == 0 {
		c.restrictedMarkers = []string{"special-handling", "restricted"}
	}
	if len(c.caseMarkers) == 0 {
		c.caseMarkers = []string{"onebox"}
	}
	if c.caseSize <= 0 {
		c.caseSize = 12
	}
	return c
}

// Calculate prices the three shipping methods for the given cart and
// destination. An empty cart is valid and quotes at the base rate.
func (c *Calculator) Calculate(items []Item, dest Address) Quotes {
	var totalWeight float64
	var subtotal int64
	var caseUnits int
	hasRestricted := false
	hasCaseItem := false

	for _, item := range items {
		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		weight := item.WeightLbs
		if weight <= 0 {
			weight = c.defaultWeightLbs
		}
		totalWeight += float64(qty) * weight
		subtotal += int64(qty) * item.PriceCents

		if c.matchesMarkers(item, c.restrictedMarkers) {
			hasRestricted = true
		}
		if c.matchesMarkers(item, c.caseMarkers) {
			hasCaseItem = true
			caseUnits += qty
		}
	}

	// Every 2 lbs, rounding up, multiplies the base rate; floors at 1 so
	// empty and weightless carts still quote.
	multiplier := int64(math.Ceil(totalWeight / 2))
	if multiplier < 1 {
		multiplier = 1
	}

	// Case-packed goods price by case count: a bigger case stack dominates
	// the weight multiplier.
	if hasCaseItem {
		cases := int64(math.Ceil(float64(caseUnits) / float64(c.caseSize)))
		if cases > multiplier {
			multiplier = cases
		}
	}

	rates := zoneRates[ZoneForState(dest.State)]
	quotes := Quotes{
		Standard: Quote{
			ID:           "standard",
			Title:        "Standard Shipping",
			PriceCents:   rates.Standard * multiplier,
			DeliveryDays: "5-7",
		},
		Express: Quote{
			ID:           "express",
			Title:        "Express Shipping",
			PriceCents:   rates.Express * multiplier,
			DeliveryDays: "2-3",
		},
		Overnight: Quote{
			ID:           "overnight",
			Title:        "Overnight Shipping",
			PriceCents:   rates.Overnight * multiplier,
			DeliveryDays: "1",
		},
	}

	// Free standard shipping on qualifying orders. Restricted items waive
	// the free-shipping rule entirely, and case-packed goods are never
	// free-shipping eligible.
	if subtotal >= c.freeShippingMin && !hasRestricted && !hasCaseItem {
		quotes.Standard.PriceCents = 0
		quotes.Standard.Title = "Standard Shipping (FREE)"
	}

	// The special-handling surcharge lands on every method, independent of
	// (and composable with) the free-shipping waiver above.
	if hasRestricted {
		quotes.Standard.PriceCents += c.restrictedSurcharge
		quotes.Express.PriceCents += c.restrictedSurcharge
		quotes.Overnight.PriceCents += c.restrictedSurcharge
		quotes.Standard.Title += " (Special Handling)"
		quotes.Express.Title += " (Special Handling)"
		quotes.Overnight.Title += " (Special Handling)"
	}

	return quotes
}

// matchesMarkers reports whether the item's product type or any tag contains
// one of the policy marker substrings, case-insensitively.
func (c *Calculator) matchesMarkers(item Item, markers []string) bool {
	productType := strings.ToLower(item.ProductType)
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.Contains(productType, marker) {
			return true
		}
		for _, tag := range item.Tags {
			if strings.Contains(strings.ToLower(tag), marker) {
				return true
			}
		}
	}
	return false
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
