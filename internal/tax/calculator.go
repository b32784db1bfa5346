package tax

import (
	"math"
	"strings"
)

// Quote is the computed tax for one checkout, all amounts in cents.
type Quote struct {
	StateTaxCents int64   `json:"stateTax"`
	LocalTaxCents int64   `json:"localTax"`
	TotalTaxCents int64   `json:"totalTax"`
	TaxRate       float64 `json:"taxRate"`
}

// Calculate computes tax on subtotal plus shipping for the destination
// state. Shipping is excluded from the taxable base where the jurisdiction
// does not tax delivery charges. Unknown states and no-sales-tax states
// return a zero quote.
func Calculate(subtotalCents, shippingCents int64, state string) Quote {
	j, ok := jurisdictions[strings.ToUpper(strings.TrimSpace(state))]
	if !ok {
		return Quote{}
	}

	base := subtotalCents
	if j.ShippingTaxable {
		base += shippingCents
	}
	if base < 0 {
		base = 0
	}

	stateTax := roundCents(float64(base) * j.StateRate)
	localTax := roundCents(float64(base) * j.LocalRate)

	return Quote{
		StateTaxCents: stateTax,
		LocalTaxCents: localTax,
		TotalTaxCents: stateTax + localTax,
		TaxRate:       j.StateRate + j.LocalRate,
	}
}

// roundCents rounds a fractional cent amount to the nearest whole cent.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
