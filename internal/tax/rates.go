package tax

// jurisdiction holds the static tax policy for one state: the state-level
// rate, an average local component, and whether shipping charges are part of
// the taxable base there.
type jurisdiction struct {
	StateRate       float64
	LocalRate       float64
	ShippingTaxable bool
}

// jurisdictions is the static state tax table. States absent from the table
// (and the five no-sales-tax states listed with zero rates) tax nothing.
var jurisdictions = map[string]jurisdiction{
	// No-sales-tax states, listed explicitly so lookups distinguish "known,
	// rate zero" from a typo'd state code in logs.
	"AK": {},
	"DE": {},
	"MT": {},
	"NH": {},
	"OR": {},

	"AL": {StateRate: 0.04, LocalRate: 0.0514, ShippingTaxable: false},
	"AZ": {StateRate: 0.056, LocalRate: 0.0277, ShippingTaxable: false},
	"AR": {StateRate: 0.065, LocalRate: 0.0293, ShippingTaxable: true},
	"CA": {StateRate: 0.0725, LocalRate: 0.0157, ShippingTaxable: false},
	"CO": {StateRate: 0.029, LocalRate: 0.0481, ShippingTaxable: false},
	"CT": {StateRate: 0.0635, LocalRate: 0, ShippingTaxable: true},
	"DC": {StateRate: 0.06, LocalRate: 0, ShippingTaxable: true},
	"FL": {StateRate: 0.06, LocalRate: 0.0102, ShippingTaxable: false},
	"GA": {StateRate: 0.04, LocalRate: 0.0335, ShippingTaxable: true},
	"HI": {StateRate: 0.04, LocalRate: 0.0044, ShippingTaxable: true},
	"ID": {StateRate: 0.06, LocalRate: 0.0003, ShippingTaxable: false},
	"IL": {StateRate: 0.0625, LocalRate: 0.0249, ShippingTaxable: false},
	"IN": {StateRate: 0.07, LocalRate: 0, ShippingTaxable: true},
	"IA": {StateRate: 0.06, LocalRate: 0.0094, ShippingTaxable: false},
	"KS": {StateRate: 0.065, LocalRate: 0.0217, ShippingTaxable: true},
	"KY": {StateRate: 0.06, LocalRate: 0, ShippingTaxable: true},
	"LA": {StateRate: 0.0445, LocalRate: 0.051, ShippingTaxable: false},
	"ME": {StateRate: 0.055, LocalRate: 0, ShippingTaxable: false},
	"MD": {StateRate: 0.06, LocalRate: 0, ShippingTaxable: false},
	"MA": {StateRate: 0.0625, LocalRate: 0, ShippingTaxable: false},
	"MI": {StateRate: 0.06, LocalRate: 0, ShippingTaxable: true},
	"MN": {StateRate: 0.06875, LocalRate: 0.0061, ShippingTaxable: true},
	"MS": {StateRate: 0.07, LocalRate: 0.0007, ShippingTaxable: true},
	"MO": {StateRate: 0.04225, LocalRate: 0.0403, ShippingTaxable: false},
	"NE": {StateRate: 0.055, LocalRate: 0.0144, ShippingTaxable: true},
	"NV": {StateRate: 0.0685, LocalRate: 0.0138, ShippingTaxable: false},
	"NJ": {StateRate: 0.06625, LocalRate: 0, ShippingTaxable: true},
	"NM": {StateRate: 0.05125, LocalRate: 0.0269, ShippingTaxable: true},
	"NY": {StateRate: 0.04, LocalRate: 0.0452, ShippingTaxable: true},
	"NC": {StateRate: 0.0475, LocalRate: 0.0222, ShippingTaxable: true},
	"ND": {StateRate: 0.05, LocalRate: 0.0196, ShippingTaxable: true},
	"OH": {StateRate: 0.0575, LocalRate: 0.0142, ShippingTaxable: true},
	"OK": {StateRate: 0.045, LocalRate: 0.0442, ShippingTaxable: false},
	"PA": {StateRate: 0.06, LocalRate: 0.0034, ShippingTaxable: true},
	"RI": {StateRate: 0.07, LocalRate: 0, ShippingTaxable: true},
	"SC": {StateRate: 0.06, LocalRate: 0.0146, ShippingTaxable: true},
	"SD": {StateRate: 0.045, LocalRate: 0.019, ShippingTaxable: true},
	"TN": {StateRate: 0.07, LocalRate: 0.0255, ShippingTaxable: true},
	"TX": {StateRate: 0.0625, LocalRate: 0.0194, ShippingTaxable: true},
	"UT": {StateRate: 0.061, LocalRate: 0.0109, ShippingTaxable: false},
	"VT": {StateRate: 0.06, LocalRate: 0.0024, ShippingTaxable: true},
	"VA": {StateRate: 0.053, LocalRate: 0.0045, ShippingTaxable: false},
	"WA": {StateRate: 0.065, LocalRate: 0.0288, ShippingTaxable: true},
	"WV": {StateRate: 0.06, LocalRate: 0.0052, ShippingTaxable: true},
	"WI": {StateRate: 0.05, LocalRate: 0.0043, ShippingTaxable: true},
	"WY": {StateRate: 0.04, LocalRate: 0.0133, ShippingTaxable: false},
}
