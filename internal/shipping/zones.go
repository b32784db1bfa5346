package shipping

// Zone identifies a contiguous-US shipping zone. Rates are set per zone and
// method; the zone is derived from the destination state.
type Zone string

const (
	ZoneWest     Zone = "west"
	ZoneMountain Zone = "mountain"
	ZoneCentral  Zone = "central"
	ZoneEast     Zone = "east"
)

// stateZones maps two-letter state codes to shipping zones. Unknown or
// missing states fall back to ZoneEast, the most populous destination.
var stateZones = map[string]Zone{
	// West
	"CA": ZoneWest, "OR": ZoneWest, "WA": ZoneWest, "NV": ZoneWest,
	"AK": ZoneWest, "HI": ZoneWest,

	// Mountain
	"AZ": ZoneMountain, "UT": ZoneMountain, "CO": ZoneMountain,
	"NM": ZoneMountain, "ID": ZoneMountain, "MT": ZoneMountain,
	"WY": ZoneMountain,

	// Central
	"ND": ZoneCentral, "SD": ZoneCentral, "NE": ZoneCentral, "KS": ZoneCentral,
	"OK": ZoneCentral, "TX": ZoneCentral, "MN": ZoneCentral, "IA": ZoneCentral,
	"MO": ZoneCentral, "AR": ZoneCentral, "LA": ZoneCentral, "WI": ZoneCentral,
	"IL": ZoneCentral, "MS": ZoneCentral, "AL": ZoneCentral, "TN": ZoneCentral,
	"KY": ZoneCentral, "IN": ZoneCentral, "MI": ZoneCentral, "OH": ZoneCentral,

	// East
	"ME": ZoneEast, "NH": ZoneEast, "VT": ZoneEast, "MA": ZoneEast,
	"RI": ZoneEast, "CT": ZoneEast, "NY": ZoneEast, "NJ": ZoneEast,
	"PA": ZoneEast, "DE": ZoneEast, "MD": ZoneEast, "DC": ZoneEast,
	"VA": ZoneEast, "WV": ZoneEast, "NC": ZoneEast, "SC": ZoneEast,
	"GA": ZoneEast, "FL": ZoneEast,
}

// methodRate holds per-method base rates in cents for one zone.
type methodRate struct {
	Standard  int64
	Express   int64
	Overnight int64
}

// zoneRates is the static base-rate table in cents. Rates scale with the
// weight multiplier before surcharges and free-shipping adjustments.
var zoneRates = map[Zone]methodRate{
	ZoneWest:     {Standard: 1200, Express: 2500, Overnight: 4500},
	ZoneMountain: {Standard: 1100, Express: 2300, Overnight: 4200},
	ZoneCentral:  {Standard: 900, Express: 1800, Overnight: 3500},
	ZoneEast:     {Standard: 1000, Express: 2000, Overnight: 3800},
}

// ZoneForState resolves a state code to its shipping zone, defaulting to
// ZoneEast for unknown or missing states.
func ZoneForState(state string) Zone {
	if zone, ok := stateZones[normalizeState(state)]; ok {
		return zone
	}
	return ZoneEast
}
