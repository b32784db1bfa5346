package tax

import "testing"

func TestCalculateNoTaxStates(t *testing.T) {
	for _, state := range []string{"OR", "MT", "NH", "DE", "AK"} {
		quote := Calculate(10000, 1000, state)
		if quote.TotalTaxCents != 0 || quote.TaxRate != 0 {
			t.Errorf("%s: total = %d rate = %v, want zero", state, quote.TotalTaxCents, quote.TaxRate)
		}
	}
}

func TestCalculateUnknownStateReturnsZero(t *testing.T) {
	quote := Calculate(10000, 1000, "ZZ")
	if quote.TotalTaxCents != 0 {
		t.Errorf("unknown state total = %d, want 0", quote.TotalTaxCents)
	}
}

func TestCalculateShippingTaxableFlag(t *testing.T) {
	// NY taxes delivery charges: base includes shipping.
	ny := Calculate(10000, 1000, "NY")
	// 11000 * 0.04 = 440, 11000 * 0.0452 = 497.2 -> 497
	if ny.StateTaxCents != 440 {
		t.Errorf("NY state tax = %d, want 440", ny.StateTaxCents)
	}
	if ny.LocalTaxCents != 497 {
		t.Errorf("NY local tax = %d, want 497", ny.LocalTaxCents)
	}
	if ny.TotalTaxCents != 937 {
		t.Errorf("NY total tax = %d, want 937", ny.TotalTaxCents)
	}

	// CA excludes shipping: base is the subtotal alone.
	ca := Calculate(10000, 1000, "CA")
	// 10000 * 0.0725 = 725, 10000 * 0.0157 = 157
	if ca.StateTaxCents != 725 {
		t.Errorf("CA state tax = %d, want 725", ca.StateTaxCents)
	}
	if ca.LocalTaxCents != 157 {
		t.Errorf("CA local tax = %d, want 157", ca.LocalTaxCents)
	}

	// Same subtotal with more shipping changes nothing in CA.
	caMore := Calculate(10000, 5000, "CA")
	if caMore.TotalTaxCents != ca.TotalTaxCents {
		t.Errorf("CA tax changed with shipping: %d vs %d", caMore.TotalTaxCents, ca.TotalTaxCents)
	}
}

func TestCalculateStateCodeNormalization(t *testing.T) {
	upper := Calculate(10000, 0, "TX")
	lower := Calculate(10000, 0, "tx")
	padded := Calculate(10000, 0, " tx ")

	if upper.TotalTaxCents == 0 {
		t.Fatal("TX should have nonzero tax")
	}
	if lower.TotalTaxCents != upper.TotalTaxCents || padded.TotalTaxCents != upper.TotalTaxCents {
		t.Error("state code matching should ignore case and whitespace")
	}
}

func TestCalculateRounding(t *testing.T) {
	// MA 6.25%, no local: 999 * 0.0625 = 62.4375 -> 62
	quote := Calculate(999, 0, "MA")
	if quote.StateTaxCents != 62 {
		t.Errorf("state tax = %d, want 62", quote.StateTaxCents)
	}
	// 1000 * 0.0625 = 62.5 -> rounds half away from zero to 63
	quote = Calculate(1000, 0, "MA")
	if quote.StateTaxCents != 63 {
		t.Errorf("state tax = %d, want 63", quote.StateTaxCents)
	}
}

func TestCalculateZeroAndNegativeBase(t *testing.T) {
	if got := Calculate(0, 0, "NY").TotalTaxCents; got != 0 {
		t.Errorf("zero base total = %d, want 0", got)
	}
	if got := Calculate(-500, 0, "NY").TotalTaxCents; got != 0 {
		t.Errorf("negative base total = %d, want 0 after clamp", got)
	}
}
